package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"user_accounts/internal/models"

	"gorm.io/gorm"
)

// UserRecord is the GORM mapping of the user table: singular table name,
// snake_case columns, no timestamp columns.
type UserRecord struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	Username string `gorm:"not null"`
	Email    string `gorm:"uniqueIndex;not null"`
	Password string `gorm:"not null"`
}

func (UserRecord) TableName() string { return "user" }

// AuditRecord is the GORM mapping of account_events.
type AuditRecord struct {
	ID         string    `gorm:"primaryKey"`
	OccurredAt time.Time `gorm:"not null;index"`
	Type       string    `gorm:"not null;index"`
	UserID     *int64
	Message    string `gorm:"not null"`
	Meta       *string
}

func (AuditRecord) TableName() string { return "account_events" }

type UserGorm struct {
	db    *gorm.DB
	guard WriteGuard
}

func NewUserGorm(db *gorm.DB, guard WriteGuard) *UserGorm {
	return &UserGorm{db: db, guard: guard}
}

var _ Users = (*UserGorm)(nil)

func (r *UserGorm) Create(ctx context.Context, u *models.User) (int64, error) {
	rec := *u
	if err := r.guard.BeforeCreate(&rec); err != nil {
		return 0, fmt.Errorf("create user %q: %w", u.Email, err)
	}

	row := UserRecord{Username: rec.Username, Email: rec.Email, Password: rec.Password}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, ErrEmailTaken
		}
		return 0, fmt.Errorf("insert user %q: %w", u.Email, err)
	}

	rec.ID = row.ID
	*u = rec
	return row.ID, nil
}

func (r *UserGorm) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var row UserRecord
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("select user %d", id))
	}
	return row.toModel(), nil
}

func (r *UserGorm) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var row UserRecord
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("select user %q", email))
	}
	return row.toModel(), nil
}

func (r *UserGorm) Update(ctx context.Context, id int64, upd models.UserUpdate) error {
	if upd.Empty() {
		return models.ErrEmptyUpdate
	}
	if err := r.guard.BeforeUpdate(&upd); err != nil {
		return fmt.Errorf("update user %d: %w", id, err)
	}

	values := map[string]any{}
	if upd.Username != nil {
		values["username"] = *upd.Username
	}
	if upd.Email != nil {
		values["email"] = *upd.Email
	}
	if upd.Password != nil {
		values["password"] = *upd.Password
	}

	res := r.db.WithContext(ctx).Model(&UserRecord{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return fmt.Errorf("update user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r UserRecord) toModel() *models.User {
	return &models.User{ID: r.ID, Username: r.Username, Email: r.Email, Password: r.Password}
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

type AuditGorm struct {
	db *gorm.DB
}

func NewAuditGorm(db *gorm.DB) *AuditGorm { return &AuditGorm{db: db} }

var _ AuditRepo = (*AuditGorm)(nil)

func (r *AuditGorm) Append(ctx context.Context, e models.AccountEvent) error {
	e = withEventDefaults(e)
	row := AuditRecord{
		ID:         e.EventID,
		OccurredAt: e.OccurredAt,
		Type:       e.Type,
		Message:    e.Description,
		Meta:       marshalMeta(e.Metadata),
	}
	if e.UserID != 0 {
		uid := e.UserID
		row.UserID = &uid
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append audit event %s: %w", e.Type, err)
	}
	return nil
}

func (r *AuditGorm) List(ctx context.Context, from, to time.Time, typ string) ([]models.AccountEvent, error) {
	q := r.db.WithContext(ctx).Model(&AuditRecord{})
	if !from.IsZero() {
		q = q.Where("occurred_at >= ?", from.UTC())
	}
	if !to.IsZero() {
		q = q.Where("occurred_at <= ?", to.UTC())
	}
	if typ != "" {
		q = q.Where("type = ?", typ)
	}

	var rows []AuditRecord
	if err := q.Order("occurred_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}

	out := make([]models.AccountEvent, 0, len(rows))
	for _, row := range rows {
		ev := models.AccountEvent{
			EventID:     row.ID,
			OccurredAt:  row.OccurredAt.UTC(),
			Type:        row.Type,
			Description: row.Message,
		}
		if row.UserID != nil {
			ev.UserID = *row.UserID
		}
		if row.Meta != nil {
			ev.Metadata = unmarshalMeta(sql.NullString{String: *row.Meta, Valid: true})
		}
		out = append(out, ev)
	}
	return out, nil
}
