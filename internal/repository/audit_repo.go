package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"user_accounts/internal/models"

	"github.com/google/uuid"
)

// sqliteTimeLayout is used both for stored values and range arguments so
// that lexical comparison in SQLite matches chronological order.
const sqliteTimeLayout = "2006-01-02 15:04:05"

const (
	insertAuditEventSQL = `INSERT INTO account_events (id, occurred_at, type, user_id, message, meta) VALUES (?, ?, ?, ?, ?, ?)`
	selectAuditEventSQL = `SELECT id, occurred_at, type, user_id, message, meta FROM account_events`
)

type AuditSQLite struct {
	db *sql.DB
}

func NewAuditSQLite(db *sql.DB) *AuditSQLite { return &AuditSQLite{db: db} }

// Append inserts a new event. If EventID or OccurredAt are empty, they’re set.
// Type is stored as given.
func (r *AuditSQLite) Append(ctx context.Context, e models.AccountEvent) error {
	e = withEventDefaults(e)

	metaPtr := marshalMeta(e.Metadata)

	var userID sql.NullInt64
	if e.UserID != 0 {
		userID = sql.NullInt64{Int64: e.UserID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, insertAuditEventSQL,
		e.EventID,
		e.OccurredAt.Format(sqliteTimeLayout),
		e.Type,
		userID,
		e.Description,
		metaPtr,
	)
	if err != nil {
		return fmt.Errorf("append audit event %s: %w", e.Type, err)
	}
	return nil
}

// List returns events filtered by [from, to] (inclusive) and/or exact type, ordered ASC.
// Callers pass an already normalized filter.
func (r *AuditSQLite) List(ctx context.Context, from, to time.Time, typ string) ([]models.AccountEvent, error) {
	var (
		conds []string
		args  []any
	)

	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, from.UTC().Format(sqliteTimeLayout))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, to.UTC().Format(sqliteTimeLayout))
	}
	if typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}

	q := selectAuditEventSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	out := make([]models.AccountEvent, 0, 64)
	for rows.Next() {
		var (
			ev      models.AccountEvent
			userID  sql.NullInt64
			metaStr sql.NullString
		)
		if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &userID, &ev.Description, &metaStr); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		ev.UserID = userID.Int64
		ev.Metadata = unmarshalMeta(metaStr)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func withEventDefaults(e models.AccountEvent) models.AccountEvent {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}
	return e
}

func marshalMeta(v any) *string {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

func unmarshalMeta(ns sql.NullString) any {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(ns.String), &v); err != nil {
		return ns.String // keep raw if malformed
	}
	return v
}
