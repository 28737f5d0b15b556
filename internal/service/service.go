package service

import (
	"context"

	"user_accounts/internal/logger"
	"user_accounts/internal/models"
	"user_accounts/internal/repository"
)

// Accounts exposes user registration, lookup, update and credential checks.
type Accounts interface {
	Register(ctx context.Context, u models.User) (int64, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, id int64, upd models.UserUpdate) error
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

type Authorization interface {
	SignUp(ctx context.Context, u models.User) (int64, error)
	GenerateToken(ctx context.Context, email, password string) (string, error)
	ParseToken(accessToken string) (int64, error)
}

// AuditLog exposes append-only account history with filtering access.
type AuditLog interface {
	List(ctx context.Context, f LogFilter) ([]models.AccountEvent, error)
}

// Service aggregates all sub-services.
type Service struct {
	Accounts
	Authorization
	AuditLog
}

// NewService wires the repository layer into concrete services.
func NewService(repos *repository.Repository, verifier Verifier, auth AuthConfig, log *logger.Logger) *Service {
	accounts := NewAccountService(repos.Users, repos.AuditRepo, verifier, log)
	return &Service{
		Accounts:      accounts,
		Authorization: NewAuthService(accounts, auth),
		AuditLog:      NewAuditLogService(repos.AuditRepo),
	}
}
