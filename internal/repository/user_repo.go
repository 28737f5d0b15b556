package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"user_accounts/internal/models"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type UserSQLite struct {
	db    *sql.DB
	guard WriteGuard
}

func NewUserSQLite(db *sql.DB, guard WriteGuard) *UserSQLite {
	return &UserSQLite{db: db, guard: guard}
}

// Ensure implementation of Users interface at compile time.
var _ Users = (*UserSQLite)(nil)

const (
	insertUserSQL        = `INSERT INTO "user" (username, email, password) VALUES (?, ?, ?)`
	selectUserByIDSQL    = `SELECT id, username, email, password FROM "user" WHERE id = ?`
	selectUserByEmailSQL = `SELECT id, username, email, password FROM "user" WHERE email = ?`
)

// Create hashes the password and inserts the user. On success u carries the
// new ID and the stored hash; on any failure u is left as it was passed in.
func (r *UserSQLite) Create(ctx context.Context, u *models.User) (int64, error) {
	rec := *u
	if err := r.guard.BeforeCreate(&rec); err != nil {
		return 0, fmt.Errorf("create user %q: %w", u.Email, err)
	}

	res, err := r.db.ExecContext(ctx, insertUserSQL, rec.Username, rec.Email, rec.Password)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrEmailTaken
		}
		return 0, fmt.Errorf("insert user %q: %w", u.Email, err)
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for user %q: %w", u.Email, err)
	}

	rec.ID = lastID
	*u = rec
	return lastID, nil
}

// GetByID fetches a user by primary key.
func (r *UserSQLite) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, selectUserByIDSQL, id)
}

// GetByEmail fetches a user by (normalized) email.
func (r *UserSQLite) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, selectUserByEmailSQL, email)
}

func (r *UserSQLite) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.Email, &u.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("select user %v: %w", arg, err)
	}
	return &u, nil
}

// Update writes the non-nil fields of upd. The password column is only
// touched when upd carries a new password, which the guard hashes first.
func (r *UserSQLite) Update(ctx context.Context, id int64, upd models.UserUpdate) error {
	if upd.Empty() {
		return models.ErrEmptyUpdate
	}
	if err := r.guard.BeforeUpdate(&upd); err != nil {
		return fmt.Errorf("update user %d: %w", id, err)
	}

	sets, args := updateAssignments(upd)
	args = append(args, id)
	q := `UPDATE "user" SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("update user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for user %d: %w", id, err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// updateAssignments builds the SET clause in a fixed column order.
func updateAssignments(upd models.UserUpdate) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	if upd.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *upd.Username)
	}
	if upd.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *upd.Email)
	}
	if upd.Password != nil {
		sets = append(sets, "password = ?")
		args = append(args, *upd.Password)
	}
	return sets, args
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	// primary result code only, when extended codes are off
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}
