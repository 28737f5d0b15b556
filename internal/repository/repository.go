package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"user_accounts/internal/models"

	"gorm.io/gorm"
)

// Storage errors shared by every backend.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already in use")
)

// WriteGuard runs right before a user row is written. A non-nil error
// aborts the statement.
type WriteGuard interface {
	BeforeCreate(u *models.User) error
	BeforeUpdate(u *models.UserUpdate) error
}

type Users interface {
	Create(ctx context.Context, u *models.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id int64, upd models.UserUpdate) error
}

type AuditRepo interface {
	Append(ctx context.Context, e models.AccountEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.AccountEvent, error)
}

type Repository struct {
	Users     Users
	AuditRepo AuditRepo
}

// NewRepository wires the SQLite backend.
func NewRepository(db *sql.DB, guard WriteGuard) *Repository {
	return &Repository{
		Users:     NewUserSQLite(db, guard),
		AuditRepo: NewAuditSQLite(db),
	}
}

// NewGormRepository wires the GORM (PostgreSQL) backend.
func NewGormRepository(gdb *gorm.DB, guard WriteGuard) *Repository {
	return &Repository{
		Users:     NewUserGorm(gdb, guard),
		AuditRepo: NewAuditGorm(gdb),
	}
}
