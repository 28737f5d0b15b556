package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"user_accounts/internal/models"
	"user_accounts/internal/service"
)

func authedGet(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuditHandler_ListAndValidation(t *testing.T) {
	auth := &mockAuth{parseID: 99}
	now := time.Now().UTC().Truncate(time.Second)
	events := []models.AccountEvent{
		{EventID: "e1", OccurredAt: now, Type: models.EventUserCreated, UserID: 1, Description: "user registered"},
		{EventID: "e2", OccurredAt: now.Add(1 * time.Second), Type: models.EventPasswordChanged, UserID: 1, Description: "password changed"},
	}
	audit := &mockAuditLog{resp: events}
	s := &service.Service{
		Authorization: auth,
		AuditLog:      audit,
	}
	r := newTestRouter(s)

	// invalid 'from' → 400
	w := authedGet(r, "/api/v1/audit?from=notatime")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid 'from', got %d", w.Code)
	}

	// valid range; the raw type is handed to the service, which owns normalization
	q := "/api/v1/audit?from=" + now.Format(time.RFC3339) + "&to=" + now.Add(2*time.Second).Format(time.RFC3339) + "&type=password_changed"
	w = authedGet(r, q)
	if w.Code != http.StatusOK {
		t.Fatalf("audit status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count  int                   `json:"count"`
		Events []models.AccountEvent `json:"events"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Events) != 2 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if got := audit.last().Type; got != "password_changed" {
		t.Fatalf("expected raw type password_changed, got %q", got)
	}
}

func TestAuditHandler_DateOnlyToIsEndOfDay(t *testing.T) {
	audit := &mockAuditLog{}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, AuditLog: audit})

	w := authedGet(r, "/api/v1/audit?to=2026-10-16")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	want := time.Date(2026, 10, 16, 23, 59, 59, 999999999, time.UTC)
	if got := audit.last().To; !got.Equal(want) {
		t.Fatalf("to: got %v, want %v", got, want)
	}
}

func TestAuditHandler_InvalidFilterIsBadRequest(t *testing.T) {
	audit := &mockAuditLog{err: fmt.Errorf("%w: from after to", service.ErrInvalidFilter)}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, AuditLog: audit})

	w := authedGet(r, "/api/v1/audit?from=2026-10-02&to=2026-10-01")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for rejected filter, got %d (body=%s)", w.Code, w.Body.String())
	}
}

func TestAuditHandler_ServiceError(t *testing.T) {
	audit := &mockAuditLog{err: errors.New("db down")}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, AuditLog: audit})

	w := authedGet(r, "/api/v1/audit")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestParseQueryTime(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2026-10-16T10:00:00Z", want: time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)},
		{in: "2026-10-16T12:00:00+02:00", want: time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)},
		{in: "2026-10-16 10:00:00", want: time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)},
		{in: "2026-10-16", want: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)},
		{in: "16/10/2026", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseQueryTime(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}
