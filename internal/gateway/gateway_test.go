package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, APIKey: "test-key"}, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{}, testLogger())
	assert.Error(t, err)
}

func TestEnhance(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/enhance", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Buy milk", req["content"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"summary":"Grocery reminder","tags":["errand","shopping"]}`))
	})

	enh, err := c.Enhance(context.Background(), "Buy milk")
	assert.NoError(t, err)
	assert.Equal(t, "Grocery reminder", enh.Summary)
	assert.Equal(t, []string{"errand", "shopping"}, enh.Tags)
}

func TestEnhanceStripsCodeFence(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("```json\n{\"summary\":\"Fenced\",\"tags\":[\"a\"]}\n```"))
	})

	enh, err := c.Enhance(context.Background(), "anything")
	assert.NoError(t, err)
	assert.Equal(t, "Fenced", enh.Summary)
}

func TestEnhanceServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	enh, err := c.Enhance(context.Background(), "anything")
	assert.Error(t, err)
	assert.Nil(t, enh)
}

func TestEnhanceMalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`this is not json`))
	})

	enh, err := c.Enhance(context.Background(), "anything")
	assert.Error(t, err)
	assert.Nil(t, enh)
}

func TestSearchDeduplicatesAndCapsSources(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)

		res := SearchResult{Text: "answer"}
		// 3 duplicates of the same URI, one empty URI, then 8 distinct.
		res.Sources = append(res.Sources,
			WebSource{Title: "dup", URI: "https://a.example"},
			WebSource{Title: "dup2", URI: "https://a.example"},
			WebSource{Title: "dup3", URI: "https://a.example"},
			WebSource{Title: "no-uri", URI: ""},
		)
		for _, uri := range []string{"b", "c", "d", "e", "f", "g", "h", "i"} {
			res.Sources = append(res.Sources, WebSource{Title: uri, URI: "https://" + uri + ".example"})
		}
		json.NewEncoder(w).Encode(res)
	})

	res, err := c.Search(context.Background(), "query")
	assert.NoError(t, err)
	assert.Equal(t, "answer", res.Text)
	assert.Len(t, res.Sources, 6)
	assert.Equal(t, "https://a.example", res.Sources[0].URI)
	// First occurrence wins on duplicates.
	assert.Equal(t, "dup", res.Sources[0].Title)
	for i, s := range res.Sources {
		for j, other := range res.Sources {
			if i != j {
				assert.NotEqual(t, s.URI, other.URI, "duplicate URI survived dedupe")
			}
		}
	}
}

func TestSearchFillsMissingTitle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SearchResult{
			Text:    "answer",
			Sources: []WebSource{{URI: "https://x.example"}},
		})
	})

	res, err := c.Search(context.Background(), "query")
	assert.NoError(t, err)
	assert.Equal(t, "External Source", res.Sources[0].Title)
}

func TestSearchTransportFailure(t *testing.T) {
	c, err := New(Config{BaseURL: "http://127.0.0.1:0"}, testLogger())
	assert.NoError(t, err)

	res, err := c.Search(context.Background(), "query")
	assert.Error(t, err)
	assert.Nil(t, res)
}
