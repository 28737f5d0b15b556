package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"user_accounts/internal/models"
	"user_accounts/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// --- parseInterval unit tests ---

func TestParseInterval(t *testing.T) {
	h := NewHandler(&service.Service{}, nil)

	cases := []struct {
		name string
		u    string
		want time.Duration
	}{
		{"default_when_missing", "/ws", defaultAuditPoll},
		{"interval_string_valid", "/ws?interval=200ms", 200 * time.Millisecond},
		{"interval_ms_valid", "/ws?interval_ms=150", 150 * time.Millisecond},
		{"interval_too_large", "/ws?interval=20s", defaultAuditPoll},
		{"interval_ms_too_large", "/ws?interval_ms=20000", defaultAuditPoll},
		{"interval_invalid_string", "/ws?interval=bogus", defaultAuditPoll},
		{"interval_ms_invalid", "/ws?interval_ms=NaN", defaultAuditPoll},
		{"both_present_interval_wins", "/ws?interval=2s&interval_ms=150", 2 * time.Second},
		{"both_present_invalid_interval_ms_used", "/ws?interval=bogus&interval_ms=250", 250 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.u, nil)
			c, _ := gin.CreateTestContext(w)
			c.Request = req
			got := h.parseInterval(c)
			if got != tc.want {
				t.Fatalf("got %v, want %v for %s", got, tc.want, tc.u)
			}
		})
	}
}

func TestParseInterval_ConfiguredDefault(t *testing.T) {
	h := NewHandler(&service.Service{}, nil)
	h.SetAuditPollInterval(3 * time.Second)
	h.SetAuditPollInterval(0) // ignored

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/ws", nil)
	if got := h.parseInterval(c); got != 3*time.Second {
		t.Fatalf("got %v, want 3s", got)
	}
}

func TestAuditCursor_SkipsSeenAndAdvances(t *testing.T) {
	base := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	f, err := service.LogFilter{From: base.Add(300 * time.Millisecond)}.Normalize()
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	cur := newAuditCursor(f)
	if !cur.filter.From.Equal(base) {
		t.Fatalf("from should start at the stored second, got %v", cur.filter.From)
	}

	first := []models.AccountEvent{
		{EventID: "a", OccurredAt: base},
		{EventID: "b", OccurredAt: base.Add(2 * time.Second)},
	}
	if got := cur.fresh(first); len(got) != 2 {
		t.Fatalf("first batch: got %d events, want 2", len(got))
	}
	if !cur.filter.From.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("cursor not advanced: %v", cur.filter.From)
	}
	if _, ok := cur.seen["a"]; ok {
		t.Fatal("ids older than the cursor should be pruned")
	}

	second := []models.AccountEvent{
		{EventID: "b", OccurredAt: base.Add(2 * time.Second)},
		{EventID: "c", OccurredAt: base.Add(2 * time.Second)},
	}
	got := cur.fresh(second)
	if len(got) != 1 || got[0].EventID != "c" {
		t.Fatalf("second batch: got %+v, want only c", got)
	}
}

// --- websocket integration tests ---

type envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func dialAudit(t *testing.T, s *service.Service, query url.Values) *websocket.Conn {
	t.Helper()
	r := gin.New()
	h := NewHandler(s, nil)
	r.GET("/ws/audit", h.wsAuditConnect)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws/audit"
	u.RawQuery = query.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWebSocket_AuditStream_ReplayAndNewEvents(t *testing.T) {
	base := time.Now().UTC().Add(-time.Minute).Truncate(time.Second)
	audit := &mockAuditLog{resp: []models.AccountEvent{
		{EventID: "e1", OccurredAt: base, Type: models.EventUserCreated, UserID: 1},
	}}
	s := &service.Service{AuditLog: audit}

	q := url.Values{}
	q.Set("interval_ms", "20")
	q.Set("since", base.Format(time.RFC3339))
	q.Set("type", "user_created")
	conn := dialAudit(t, s, q)

	readEvent := func() models.AccountEvent {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("read: %v", err)
		}
		if env.Type != "event" {
			t.Fatalf("bad envelope: %+v", env)
		}
		var e models.AccountEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return e
	}

	if e := readEvent(); e.EventID != "e1" {
		t.Fatalf("first event: got %q, want e1", e.EventID)
	}

	audit.set([]models.AccountEvent{
		{EventID: "e1", OccurredAt: base, Type: models.EventUserCreated, UserID: 1},
		{EventID: "e2", OccurredAt: base.Add(time.Second), Type: models.EventUserCreated, UserID: 2},
	})
	if e := readEvent(); e.EventID != "e2" {
		t.Fatalf("next event: got %q, want e2 (e1 must not repeat)", e.EventID)
	}
	if got := audit.last().Type; got != models.EventUserCreated {
		t.Fatalf("type filter not forwarded: %q", got)
	}
}

func TestWebSocket_UnknownTypeRejectedBeforeUpgrade(t *testing.T) {
	audit := &mockAuditLog{}
	r := gin.New()
	h := NewHandler(&service.Service{AuditLog: audit}, nil)
	r.GET("/ws/audit", h.wsAuditConnect)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/audit?type=user_deleted", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400 (body=%s)", w.Code, w.Body.String())
	}
	if len(audit.calls) != 0 {
		t.Fatalf("audit log must not be queried, calls=%d", len(audit.calls))
	}
}

func TestWebSocket_InitialListError_Closes(t *testing.T) {
	s := &service.Service{AuditLog: &mockAuditLog{err: errors.New("boom")}}
	conn := dialAudit(t, s, url.Values{})

	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	var raw json.RawMessage
	if err := conn.ReadJSON(&raw); err == nil {
		t.Fatalf("expected read error (closed), got message: %s", string(raw))
	}
}
