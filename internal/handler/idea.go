package handler

import (
	"log/slog"
	"net/http"

	"github.com/ideaflow-app/ideaflow/internal/auth"
	"github.com/ideaflow-app/ideaflow/internal/bank"
	"github.com/ideaflow-app/ideaflow/internal/model"
)

// IdeaHandler serves the idea bank routes. Every route is owner-scoped:
// the acting user comes from the session and is passed through to the
// bank, which refuses cross-user access.
type IdeaHandler struct {
	bank   *bank.Bank
	logger *slog.Logger
}

func NewIdeaHandler(b *bank.Bank, logger *slog.Logger) *IdeaHandler {
	return &IdeaHandler{bank: b, logger: logger}
}

// HandleList returns the caller's ideas, newest first.
//
// GET /api/ideas?q=<text>&category=<name>
func (h *IdeaHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	q := r.URL.Query().Get("q")
	category := model.Category(r.URL.Query().Get("category"))

	writeJSON(w, http.StatusOK, h.bank.Query(userID, q, category))
}

type createIdeaRequest struct {
	Content  string         `json:"content"`
	Source   model.Source   `json:"source"`
	Category model.Category `json:"category"`
	Tags     []string       `json:"tags"`
}

// HandleCreate captures a new idea. Enhancement runs during this request;
// the response carries the final record including any AI summary and
// merged tags.
//
// POST /api/ideas
func (h *IdeaHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req createIdeaRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	idea, err := h.bank.Add(r.Context(), userID, req.Content, req.Source, req.Category, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, idea)
}

// HandleStats returns capture counts for the caller.
//
// GET /api/ideas/stats
func (h *IdeaHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	writeJSON(w, http.StatusOK, h.bank.Stats(userID))
}

// HandleGet returns one idea.
//
// GET /api/ideas/{id}
func (h *IdeaHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	idea, err := h.bank.Get(r.PathValue("id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, idea)
}

type updateIdeaRequest struct {
	Content  *string         `json:"content"`
	Category *model.Category `json:"category"`
	Tags     []string        `json:"tags"`
}

// HandleUpdate applies a partial edit to one idea.
//
// PATCH /api/ideas/{id}
func (h *IdeaHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req updateIdeaRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	idea, err := h.bank.Update(r.Context(), r.PathValue("id"), userID, bank.UpdateFields{
		Content:  req.Content,
		Category: req.Category,
		Tags:     req.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, idea)
}

// HandleToggleStar flips the starred flag.
//
// POST /api/ideas/{id}/star
func (h *IdeaHandler) HandleToggleStar(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	idea, err := h.bank.ToggleStar(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, idea)
}

// HandleDelete removes one idea.
//
// DELETE /api/ideas/{id}
func (h *IdeaHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.bank.Delete(r.Context(), r.PathValue("id"), userID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
