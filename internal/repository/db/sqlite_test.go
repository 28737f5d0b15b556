package db_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"user_accounts/internal/credential"
	"user_accounts/internal/models"
	"user_accounts/internal/repository"
	"user_accounts/internal/repository/db"

	"golang.org/x/crypto/bcrypt"
)

func newStore(t *testing.T) (*repository.Repository, *credential.Guard) {
	t.Helper()

	conn, err := db.InitDB(filepath.Join(t.TempDir(), "accounts.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	guard, err := credential.NewGuard(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	return repository.NewRepository(conn, guard), guard
}

func TestInitDB_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	for i := 0; i < 2; i++ {
		conn, err := db.InitDB(path)
		if err != nil {
			t.Fatalf("InitDB run %d: %v", i+1, err)
		}
		_ = conn.Close()
	}
}

func TestSQLite_CreateHashesAndVerifies(t *testing.T) {
	repo, guard := newStore(t)
	ctx := context.Background()

	u := &models.User{Username: "alice", Email: "alice@example.com", Password: "abcd"}
	id, err := repo.Users.Create(ctx, u)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	stored, err := repo.Users.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Password == "abcd" {
		t.Fatalf("plaintext password was persisted")
	}
	if !guard.Verify("abcd", stored) {
		t.Fatalf("expected stored hash to verify")
	}
	if guard.Verify("wrong", stored) {
		t.Fatalf("wrong password must not verify")
	}
}

func TestSQLite_SamePasswordDifferentHashes(t *testing.T) {
	repo, _ := newStore(t)
	ctx := context.Background()

	a := &models.User{Username: "a", Email: "a@example.com", Password: "shared"}
	b := &models.User{Username: "b", Email: "b@example.com", Password: "shared"}
	if _, err := repo.Users.Create(ctx, a); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if _, err := repo.Users.Create(ctx, b); err != nil {
		t.Fatalf("Create b: %v", err)
	}
	if a.Password == b.Password {
		t.Fatalf("expected distinct salted hashes")
	}
}

func TestSQLite_DuplicateEmailRejected(t *testing.T) {
	repo, _ := newStore(t)
	ctx := context.Background()

	first := &models.User{Username: "alice", Email: "alice@example.com", Password: "abcd"}
	if _, err := repo.Users.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dup := &models.User{Username: "other", Email: "alice@example.com", Password: "efgh"}
	_, err := repo.Users.Create(ctx, dup)
	if !errors.Is(err, repository.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if dup.ID != 0 || dup.Password != "efgh" {
		t.Fatalf("rejected record must be untouched, got %+v", dup)
	}

	stored, err := repo.Users.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if stored.ID != first.ID || stored.Username != "alice" {
		t.Fatalf("original record changed: %+v", stored)
	}
}

func TestSQLite_UpdateRotatesPassword(t *testing.T) {
	repo, guard := newStore(t)
	ctx := context.Background()

	u := &models.User{Username: "alice", Email: "alice@example.com", Password: "first"}
	id, err := repo.Users.Create(ctx, u)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// username-only update keeps the stored hash byte for byte
	name := "alice2"
	if err := repo.Users.Update(ctx, id, models.UserUpdate{Username: &name}); err != nil {
		t.Fatalf("Update username: %v", err)
	}
	stored, _ := repo.Users.GetByID(ctx, id)
	if stored.Password != u.Password {
		t.Fatalf("hash changed on an update without password")
	}

	pw := "second"
	if err := repo.Users.Update(ctx, id, models.UserUpdate{Password: &pw}); err != nil {
		t.Fatalf("Update password: %v", err)
	}
	stored, _ = repo.Users.GetByID(ctx, id)
	if !guard.Verify("second", stored) || guard.Verify("first", stored) {
		t.Fatalf("password rotation not reflected in stored hash")
	}

	if err := repo.Users.Update(ctx, 999, models.UserUpdate{Username: &name}); !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSQLite_AuditRoundTrip(t *testing.T) {
	repo, _ := newStore(t)
	ctx := context.Background()

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	events := []models.AccountEvent{
		{OccurredAt: base, Type: models.EventUserCreated, UserID: 1, Description: "created"},
		{OccurredAt: base.Add(time.Hour), Type: models.EventPasswordChanged, UserID: 1, Description: "pw"},
		{OccurredAt: base.Add(2 * time.Hour), Type: models.EventUserUpdated, UserID: 1, Description: "upd", Metadata: map[string]any{"field": "email"}},
	}
	for _, e := range events {
		if err := repo.AuditRepo.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	all, err := repo.AuditRepo.List(ctx, time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].Type != models.EventUserCreated {
		t.Fatalf("unexpected events: %+v", all)
	}

	ranged, err := repo.AuditRepo.List(ctx, base.Add(30*time.Minute), base.Add(90*time.Minute), "")
	if err != nil {
		t.Fatalf("List range: %v", err)
	}
	if len(ranged) != 1 || ranged[0].Type != models.EventPasswordChanged {
		t.Fatalf("unexpected ranged events: %+v", ranged)
	}
}
