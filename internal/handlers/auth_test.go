package handlers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"salud-dashboard/internal/auth"
)

func testAuthHandlers(t *testing.T) (*AuthHandlers, *auth.Sessions) {
	t.Helper()
	sessions := auth.NewSessions(time.Hour)
	h := NewAuthHandlers(auth.NewGate("salud2025"), sessions, time.Hour, slog.Default())
	return h, sessions
}

func postLogin(h *AuthHandlers, code string) *httptest.ResponseRecorder {
	form := url.Values{"access_code": {code}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)
	return rec
}

func TestHandleLogin_WrongCode(t *testing.T) {
	h, _ := testAuthHandlers(t)

	rec := postLogin(h, "wrong")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("no session cookie should be set on a failed login")
	}
}

func TestHandleLogin_CorrectCode(t *testing.T) {
	h, sessions := testAuthHandlers(t)

	rec := postLogin(h, "salud2025")

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("session cookie not set")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if !sessions.Valid(cookie.Value) {
		t.Error("issued token should validate")
	}
}

func TestHandleLogout_RevokesSession(t *testing.T) {
	h, sessions := testAuthHandlers(t)

	token := sessions.Create()

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	h.HandleLogout(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
	if sessions.Valid(token) {
		t.Error("token should be revoked after logout")
	}
}

func TestHandleLoginPage_RedirectsActiveSession(t *testing.T) {
	h, sessions := testAuthHandlers(t)

	token := sessions.Create()

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	h.HandleLoginPage(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
}
