package service

import (
	"context"

	"user_accounts/internal/models"
	"user_accounts/internal/repository"
)

// AuditLogService reads the account audit trail. Writes go through
// AccountService, which records events as a side effect of account changes.
type AuditLogService struct {
	repo repository.AuditRepo
}

func NewAuditLogService(repo repository.AuditRepo) *AuditLogService {
	return &AuditLogService{repo: repo}
}

// List returns events matching f, oldest first. An invalid filter yields
// ErrInvalidFilter and never reaches the store.
func (s *AuditLogService) List(ctx context.Context, f LogFilter) ([]models.AccountEvent, error) {
	nf, err := f.Normalize()
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, nf.From, nf.To, nf.Type)
}
