package handler

import (
	"log/slog"
	"net/http"

	"github.com/ideaflow-app/ideaflow/internal/auth"
	"github.com/ideaflow-app/ideaflow/internal/directory"
	"github.com/ideaflow-app/ideaflow/internal/model"
	"github.com/ideaflow-app/ideaflow/internal/service"
)

// UserHandler serves the admin user-management routes. All of them are
// mounted behind the admin middleware; the self-modification guards live
// in the directory, not here.
type UserHandler struct {
	users  *directory.Directory
	svc    *service.AuthService
	logger *slog.Logger
}

func NewUserHandler(users *directory.Directory, svc *service.AuthService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, svc: svc, logger: logger}
}

// HandleList returns the user directory with password hashes stripped.
//
// GET /api/admin/users?filter=<text>&sort=username|joinedAt|subscriptionPlan
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	sortKey := directory.SortKey(r.URL.Query().Get("sort"))

	users := h.users.List(filter, sortKey)
	redacted := make([]model.User, len(users))
	for i := range users {
		redacted[i] = *users[i].Redacted()
	}

	writeJSON(w, http.StatusOK, redacted)
}

type adminCreateUserRequest struct {
	Email            string     `json:"email"`
	Username         string     `json:"username"`
	Password         string     `json:"password"`
	IsAdmin          bool       `json:"isAdmin"`
	SubscriptionPlan model.Plan `json:"subscriptionPlan"`
}

// HandleCreate registers a user on their behalf. No session is opened.
// Unlike self-service registration, the admin flag and plan come from
// the request, not from the email rules; an omitted plan means Free.
//
// POST /api/admin/users {"email","username","password","isAdmin","subscriptionPlan"}
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req adminCreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	plan := req.SubscriptionPlan
	if plan == "" {
		plan = model.PlanFree
	}

	user, err := h.svc.CreateUser(r.Context(), req.Email, req.Username, req.Password, req.IsAdmin, plan)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user.Redacted())
}

// HandleToggleAdmin flips the target's admin flag. Toggling yourself is
// refused.
//
// POST /api/admin/users/{id}/toggle-admin
func (h *UserHandler) HandleToggleAdmin(w http.ResponseWriter, r *http.Request) {
	actingID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.users.ToggleAdmin(r.Context(), r.PathValue("id"), actingID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user.Redacted())
}

// HandleDelete removes the target account. Deleting yourself is refused.
//
// DELETE /api/admin/users/{id}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actingID, _ := auth.UserIDFromContext(r.Context())

	if err := h.users.Delete(r.Context(), r.PathValue("id"), actingID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
