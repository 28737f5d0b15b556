package service

import (
	"context"
	"errors"
	"fmt"

	"user_accounts/internal/logger"
	"user_accounts/internal/models"
	"user_accounts/internal/repository"
)

// Domain errors for account flows.
var (
	ErrUserNotFound       = repository.ErrUserNotFound
	ErrEmailTaken         = repository.ErrEmailTaken
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Verifier checks a plaintext candidate against a stored hash.
type Verifier interface {
	Verify(candidate string, u *models.User) bool
}

// AccountService validates input, writes through the user store (which
// hashes passwords right before the statement) and records audit events.
type AccountService struct {
	users    repository.Users
	audit    repository.AuditRepo
	verifier Verifier
	log      *logger.Logger
}

func NewAccountService(users repository.Users, audit repository.AuditRepo, verifier Verifier, log *logger.Logger) *AccountService {
	return &AccountService{users: users, audit: audit, verifier: verifier, log: log}
}

// Register creates a user. Validation failures and duplicate emails come
// back as *models.ValidationError; nothing is written in either case.
func (s *AccountService) Register(ctx context.Context, u models.User) (int64, error) {
	u.Normalize()
	if err := models.ValidateUser(&u); err != nil {
		return 0, err
	}
	if err := s.ensureEmailFree(ctx, u.Email, 0); err != nil {
		return 0, err
	}

	id, err := s.users.Create(ctx, &u)
	if err != nil {
		return 0, asFieldError(err)
	}

	s.record(ctx, models.AccountEvent{
		Type:        models.EventUserCreated,
		UserID:      id,
		Description: "user registered",
		Metadata:    map[string]any{"email": u.Email},
	})
	return id, nil
}

// Get returns the stored user, hash included.
func (s *AccountService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// Update applies a partial update. The password is re-hashed only when
// upd.Password is set.
func (s *AccountService) Update(ctx context.Context, id int64, upd models.UserUpdate) error {
	upd.Normalize()
	if err := models.ValidateUpdate(&upd); err != nil {
		return err
	}
	if upd.Email != nil {
		if err := s.ensureEmailFree(ctx, *upd.Email, id); err != nil {
			return err
		}
	}

	if err := s.users.Update(ctx, id, upd); err != nil {
		return asFieldError(err)
	}

	s.record(ctx, models.AccountEvent{
		Type:        models.EventUserUpdated,
		UserID:      id,
		Description: "user updated",
		Metadata:    map[string]any{"fields": changedFields(upd)},
	})
	if upd.PasswordChanged() {
		s.record(ctx, models.AccountEvent{
			Type:        models.EventPasswordChanged,
			UserID:      id,
			Description: "password changed",
		})
	}
	return nil
}

// Authenticate loads the user by email and verifies the password. Unknown
// email and wrong password both yield ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = models.NormalizeEmail(email)

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.recordFailedSignIn(ctx, email, 0)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.verifier.Verify(password, u) {
		s.recordFailedSignIn(ctx, email, u.ID)
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// ensureEmailFree rejects an email held by a user other than self.
// The UNIQUE constraint still decides races.
func (s *AccountService) ensureEmailFree(ctx context.Context, email string, self int64) error {
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check email: %w", err)
	case existing.ID != self:
		return emailTakenError()
	}
	return nil
}

func (s *AccountService) recordFailedSignIn(ctx context.Context, email string, userID int64) {
	s.record(ctx, models.AccountEvent{
		Type:        models.EventSignInFailed,
		UserID:      userID,
		Description: "sign-in rejected",
		Metadata:    map[string]any{"email": email},
	})
}

// record appends an audit event. Failures are logged, never returned.
func (s *AccountService) record(ctx context.Context, e models.AccountEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, e); err != nil && s.log != nil {
		s.log.Warnw("audit_append_failed", "type", e.Type, "user_id", e.UserID, "err", err)
	}
}

func emailTakenError() error {
	return &models.ValidationError{Field: "email", Rule: "unique", Err: ErrEmailTaken}
}

func asFieldError(err error) error {
	if errors.Is(err, ErrEmailTaken) {
		return emailTakenError()
	}
	return err
}

func changedFields(upd models.UserUpdate) []string {
	var out []string
	if upd.Username != nil {
		out = append(out, "username")
	}
	if upd.Email != nil {
		out = append(out, "email")
	}
	if upd.Password != nil {
		out = append(out, "password")
	}
	return out
}
