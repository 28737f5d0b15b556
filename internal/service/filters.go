package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"user_accounts/internal/models"
)

// AuditTimePrecision is the resolution audit timestamps are stored at.
const AuditTimePrecision = time.Second

// ErrInvalidFilter marks an audit filter that cannot match anything.
var ErrInvalidFilter = errors.New("invalid audit filter")

// LogFilter supports audit history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // one of the models.Event* constants, any case; "" matches all
}

// Normalize returns the filter the stores expect: UTC bounds, From floored to
// AuditTimePrecision, and an upper-case known event type.
func (f LogFilter) Normalize() (LogFilter, error) {
	out := LogFilter{Type: strings.ToUpper(strings.TrimSpace(f.Type))}
	if out.Type != "" && !models.IsEventType(out.Type) {
		return LogFilter{}, fmt.Errorf("%w: unknown event type %q", ErrInvalidFilter, f.Type)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return LogFilter{}, fmt.Errorf("%w: from %s is after to %s", ErrInvalidFilter,
			f.From.UTC().Format(time.RFC3339), f.To.UTC().Format(time.RFC3339))
	}
	if !f.From.IsZero() {
		out.From = f.From.UTC().Truncate(AuditTimePrecision)
	}
	if !f.To.IsZero() {
		out.To = f.To.UTC()
	}
	return out, nil
}

// AuthConfig configures token issuance.
type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}
