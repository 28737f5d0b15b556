package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"user_accounts/internal/models"
	"user_accounts/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms
)

type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict to configured origins once the UI host is known
}

// auditCursor tracks which events a connection has already been sent.
// Stored timestamps have AuditTimePrecision, so ids seen at the cursor are kept.
type auditCursor struct {
	filter service.LogFilter
	seen   map[string]time.Time
}

// newAuditCursor expects a filter already passed through LogFilter.Normalize.
func newAuditCursor(f service.LogFilter) *auditCursor {
	return &auditCursor{filter: f, seen: make(map[string]time.Time)}
}

func storedAt(t time.Time) time.Time {
	return t.UTC().Truncate(service.AuditTimePrecision)
}

// fresh returns unseen events and advances the cursor past them.
func (a *auditCursor) fresh(events []models.AccountEvent) []models.AccountEvent {
	out := make([]models.AccountEvent, 0, len(events))
	for _, e := range events {
		if _, ok := a.seen[e.EventID]; ok {
			continue
		}
		a.seen[e.EventID] = e.OccurredAt
		out = append(out, e)
		if t := storedAt(e.OccurredAt); t.After(a.filter.From) {
			a.filter.From = t
		}
	}
	for id, at := range a.seen {
		if storedAt(at).Before(a.filter.From) {
			delete(a.seen, id)
		}
	}
	return out
}

// @Summary      Live audit feed
// @Description  WebSocket stream of account events. Pass the JWT as ?token=. Optional ?since=, ?type=, ?interval= or ?interval_ms=.
// @Tags         audit
// @Param        token        query  string  false  "JWT"
// @Param        since        query  string  false  "Replay events from this time"
// @Param        type         query  string  false  "Event type"
// @Param        interval     query  string  false  "Poll interval, e.g. 500ms (max 10s)"
// @Param        interval_ms  query  int     false  "Poll interval in ms (max 10000)"
// @Router       /ws/audit [get]
func (h *Handler) wsAuditConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	since := time.Now()
	if qs := c.Query("since"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'since' time; use RFC3339 or YYYY-MM-DD"})
			return
		}
		since = t
	}
	filter, err := service.LogFilter{From: since, Type: c.Query("type")}.Normalize()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cursor := newAuditCursor(filter)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	if err := h.sendAudit(c.Request.Context(), conn, cursor); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := h.sendAudit(c.Request.Context(), conn, cursor); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return h.auditPoll
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

// sendAudit writes every event the connection has not seen yet, one envelope each.
func (h *Handler) sendAudit(ctx context.Context, conn *websocket.Conn, cursor *auditCursor) error {
	events, err := h.services.AuditLog.List(ctx, cursor.filter)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_audit_list_failed", "err", err)
		}
		return err
	}
	for _, e := range cursor.fresh(events) {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(wsEnvelope{Type: "event", Data: e}); err != nil {
			return err
		}
	}
	return nil
}
