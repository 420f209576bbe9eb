package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ideaflow-app/ideaflow/internal/apperror"
	"github.com/ideaflow-app/ideaflow/internal/auth"
	"github.com/ideaflow-app/ideaflow/internal/directory"
	"github.com/ideaflow-app/ideaflow/internal/gateway"
	"github.com/ideaflow-app/ideaflow/internal/model"
)

// Searcher performs a grounded web search. *gateway.Client satisfies
// this; tests supply fakes.
type Searcher interface {
	Search(ctx context.Context, query string) (*gateway.SearchResult, error)
}

// SearchHandler serves the deep-search route. Search is a premium
// feature: Free-plan callers get a 402 with an upgrade prompt before any
// remote call is made.
type SearchHandler struct {
	users    *directory.Directory
	searcher Searcher // nil when no gateway is configured
	logger   *slog.Logger
}

func NewSearchHandler(users *directory.Directory, searcher Searcher, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{users: users, searcher: searcher, logger: logger}
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Text    string              `json:"text"`
	Sources []gateway.WebSource `json:"sources"`
	Failed  bool                `json:"failed,omitempty"`
}

// HandleSearch runs a grounded search for the caller's query. A gateway
// failure degrades to an empty failed result rather than an error status,
// so the client can offer a retry.
//
// POST /api/search {"query"}
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.users.GetByID(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if user.SubscriptionPlan == model.PlanFree {
		writeError(w, apperror.PaymentRequired("deep search requires a Pro or Enterprise plan"))
		return
	}

	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, apperror.ValidationFailed("query", "query is required"))
		return
	}

	if h.searcher == nil {
		writeJSON(w, http.StatusOK, searchResponse{Sources: []gateway.WebSource{}, Failed: true})
		return
	}

	result, err := h.searcher.Search(r.Context(), query)
	if err != nil {
		h.logger.Warn("search degraded", slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, searchResponse{Sources: []gateway.WebSource{}, Failed: true})
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Text: result.Text, Sources: result.Sources})
}
