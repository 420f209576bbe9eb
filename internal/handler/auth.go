package handler

import (
	"log/slog"
	"net/http"

	"github.com/ideaflow-app/ideaflow/internal/auth"
	"github.com/ideaflow-app/ideaflow/internal/model"
	"github.com/ideaflow-app/ideaflow/internal/service"
)

// AuthHandler serves registration, login and profile routes. The session
// token travels in an HttpOnly cookie so page scripts never see it.
type AuthHandler struct {
	svc    *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister creates an account and logs it in.
//
// POST /api/auth/register {"email","username","password"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setSessionCookie(w, res.Token)
	writeJSON(w, http.StatusCreated, res.User.Redacted())
}

// HandleLogin authenticates and opens a session.
//
// POST /api/auth/login {"email","password"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setSessionCookie(w, res.Token)
	writeJSON(w, http.StatusOK, res.User.Redacted())
}

// HandleRecover accepts a password recovery request. The response does not
// reveal whether the account exists.
//
// POST /api/auth/recover {"email"}
func (h *AuthHandler) HandleRecover(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.svc.RequestRecovery(req.Email)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "if an account exists for this address, recovery instructions have been sent",
	})
}

// HandleLogout ends the session and expires the cookie.
//
// POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the authenticated user's profile.
//
// GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.svc.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user.Redacted())
}

type profileRequest struct {
	Username             *string `json:"username"`
	Password             *string `json:"password"`
	NotificationsEnabled *bool   `json:"notificationsEnabled"`
	HasCompletedTour     *bool   `json:"hasCompletedTour"`
}

// HandleUpdateMe applies a partial profile edit. Absent fields are left
// unchanged.
//
// PATCH /api/me
func (h *AuthHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), userID, service.ProfileUpdate{
		Username:             req.Username,
		Password:             req.Password,
		NotificationsEnabled: req.NotificationsEnabled,
		HasCompletedTour:     req.HasCompletedTour,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user.Redacted())
}

type planRequest struct {
	Plan model.Plan `json:"subscriptionPlan"`
}

// HandleChangePlan switches the subscription plan. Payment is simulated.
//
// POST /api/billing/plan {"subscriptionPlan"}
func (h *AuthHandler) HandleChangePlan(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req planRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.ChangePlan(r.Context(), userID, req.Plan)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user.Redacted())
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
