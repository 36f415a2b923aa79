package handlers

import (
	"errors"
	"net/http"

	"immigration/internal/middleware"
	"immigration/internal/service"
)

// ReportHandler: сводная статистика, healthz и вход сотрудников.
type ReportHandler struct {
	*base
	svc    *service.ReportService
	db     Pinger
	secret string
}

func (h *ReportHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			h.logger.Errorw("Health: database unavailable", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Statistics обрабатывает GET /api/statistics?days=N
func (h *ReportHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	ov, err := h.svc.Overview(r.Context(), queryInt(r, "days", 0))
	if err != nil {
		h.fail(w, r, "Statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

// Cookie обменивает валидный bearer-токен на cookie для браузерного фронтенда.
func (h *ReportHandler) Cookie(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	if err := middleware.SetLoginCookie(w, uid, h.secret); err != nil {
		h.fail(w, r, "Cookie", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": uid})
}

type loginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login обрабатывает POST /api/auth/login: по паролю выдаёт токен и ставит cookie.
func (h *ReportHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if !h.decode(w, r, "Login", &in) {
		return
	}
	u, err := h.users.Login(r.Context(), in.Username, in.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		h.fail(w, r, "Login", err)
		return
	}
	token, err := h.users.IssueToken(u.ID)
	if err != nil {
		h.fail(w, r, "Login", err)
		return
	}
	if err := middleware.SetLoginCookie(w, u.ID, h.secret); err != nil {
		h.fail(w, r, "Login", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": u.ID, "username": u.Username, "token": token})
}
