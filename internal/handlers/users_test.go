package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"user_accounts/internal/models"
	"user_accounts/internal/service"
)

func patchJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer valid")
	r.ServeHTTP(w, req)
	return w
}

func TestUserHandlers_GetMeAndByID(t *testing.T) {
	accounts := &mockAccounts{user: &models.User{ID: 5, Username: "alice", Email: "alice@example.com", Password: "$2a$10$hash"}}
	s := &service.Service{Authorization: &mockAuth{parseID: 5}, Accounts: accounts}
	r := newTestRouter(s)

	w := authedGet(r, "/api/v1/users/me")
	if w.Code != http.StatusOK {
		t.Fatalf("me status=%d body=%s", w.Code, w.Body.String())
	}
	if accounts.lastGetID != 5 {
		t.Fatalf("Get called with %d, want 5", accounts.lastGetID)
	}
	var m map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &m)
	if m["email"] != "alice@example.com" {
		t.Fatalf("unexpected body: %v", m)
	}
	if _, ok := m["password"]; ok {
		t.Fatal("password hash must not be serialized")
	}

	accounts.lastGetID = 0
	w = authedGet(r, "/api/v1/users/5")
	if w.Code != http.StatusOK || accounts.lastGetID != 5 {
		t.Fatalf("get own id: status=%d lastGetID=%d", w.Code, accounts.lastGetID)
	}

	w = authedGet(r, "/api/v1/users/abc")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", w.Code)
	}
}

func TestUserHandlers_GetOtherUserForbidden(t *testing.T) {
	accounts := &mockAccounts{user: &models.User{ID: 12, Username: "bob", Email: "bob@example.com"}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 5}, Accounts: accounts})

	w := authedGet(r, "/api/v1/users/12")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (body=%s)", w.Code, w.Body.String())
	}
	if accounts.lastGetID != 0 {
		t.Fatalf("another user's record must not be loaded, Get called with %d", accounts.lastGetID)
	}
}

func TestUserHandlers_GetNotFound(t *testing.T) {
	accounts := &mockAccounts{getErr: service.ErrUserNotFound}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 9}, Accounts: accounts})

	w := authedGet(r, "/api/v1/users/9")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestUserHandlers_Update(t *testing.T) {
	cases := []struct {
		name      string
		path      string
		body      string
		updateErr error
		wantCode  int
		wantCalls int
	}{
		{
			name:      "owner rotates password",
			path:      "/api/v1/users/5",
			body:      `{"password":"efgh"}`,
			wantCode:  http.StatusOK,
			wantCalls: 1,
		},
		{
			name:     "other user is forbidden",
			path:     "/api/v1/users/6",
			body:     `{"password":"efgh"}`,
			wantCode: http.StatusForbidden,
		},
		{
			name:      "validation error",
			path:      "/api/v1/users/5",
			body:      `{"email":"nope"}`,
			updateErr: &models.ValidationError{Field: "email", Rule: "email"},
			wantCode:  http.StatusBadRequest,
			wantCalls: 1,
		},
		{
			name:      "empty update",
			path:      "/api/v1/users/5",
			body:      `{}`,
			updateErr: models.ErrEmptyUpdate,
			wantCode:  http.StatusBadRequest,
			wantCalls: 1,
		},
		{
			name:      "email taken",
			path:      "/api/v1/users/5",
			body:      `{"email":"bob@example.com"}`,
			updateErr: &models.ValidationError{Field: "email", Rule: "unique", Err: service.ErrEmailTaken},
			wantCode:  http.StatusConflict,
			wantCalls: 1,
		},
		{
			name:     "malformed body",
			path:     "/api/v1/users/5",
			body:     `{"password":1}`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			accounts := &mockAccounts{updateErr: tc.updateErr}
			r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 5}, Accounts: accounts})

			w := patchJSON(r, tc.path, tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("status: got %d, want %d (body=%s)", w.Code, tc.wantCode, w.Body.String())
			}
			if accounts.updateCalls != tc.wantCalls {
				t.Fatalf("Update calls: got %d, want %d", accounts.updateCalls, tc.wantCalls)
			}
		})
	}
}

func TestUserHandlers_UpdatePassesOnlySuppliedFields(t *testing.T) {
	accounts := &mockAccounts{}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 5}, Accounts: accounts})

	w := patchJSON(r, "/api/v1/users/5", `{"username":"alice2"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	upd := accounts.lastUpdate
	if upd.Username == nil || *upd.Username != "alice2" {
		t.Fatalf("username not forwarded: %+v", upd)
	}
	if upd.Email != nil || upd.PasswordChanged() {
		t.Fatalf("unsupplied fields must stay nil: %+v", upd)
	}
}
