package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"salud-dashboard/internal/auth"
	"salud-dashboard/internal/ui/templates"
)

type AuthHandlers struct {
	gate       *auth.Gate
	sessions   *auth.Sessions
	sessionTTL time.Duration
	logger     *slog.Logger
}

func NewAuthHandlers(gate *auth.Gate, sessions *auth.Sessions, sessionTTL time.Duration, logger *slog.Logger) *AuthHandlers {
	return &AuthHandlers{
		gate:       gate,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

func (h *AuthHandlers) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil && h.sessions.Valid(cookie.Value) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := templates.Login(false).Render(r.Context(), w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func (h *AuthHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	code := r.PostFormValue("access_code")
	if !h.gate.Check(code) {
		h.logger.Warn("access denied", "remote_addr", r.RemoteAddr)
		w.WriteHeader(http.StatusUnauthorized)
		if err := templates.Login(true).Render(r.Context(), w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
		return
	}

	token := h.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("session opened", "remote_addr", r.RemoteAddr)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil {
		h.sessions.Revoke(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
