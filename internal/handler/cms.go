package handler

import (
	"log/slog"
	"net/http"

	"github.com/ideaflow-app/ideaflow/internal/board"
)

// CMSHandler serves announcement routes. Reading is open to every
// signed-in user; authoring routes are mounted behind the admin check.
type CMSHandler struct {
	board  *board.Board
	logger *slog.Logger
}

func NewCMSHandler(b *board.Board, logger *slog.Logger) *CMSHandler {
	return &CMSHandler{board: b, logger: logger}
}

// HandleListActive returns the active announcements, newest first.
//
// GET /api/announcements
func (h *CMSHandler) HandleListActive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.board.ListActive())
}

// HandleFeatured returns the newest active announcement, or null when no
// announcement is active.
//
// GET /api/announcements/featured
func (h *CMSHandler) HandleFeatured(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.board.Featured())
}

// HandleListAll returns every announcement including inactive drafts.
//
// GET /api/admin/announcements
func (h *CMSHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.board.List())
}

type createAnnouncementRequest struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl"`
	IsActive bool   `json:"isActive"`
}

// HandleCreate publishes a new announcement.
//
// POST /api/admin/announcements
func (h *CMSHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createAnnouncementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.board.Create(r.Context(), req.Title, req.Text, req.IsActive, req.ImageURL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// HandleDelete removes an announcement.
//
// DELETE /api/admin/announcements/{id}
func (h *CMSHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.board.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
