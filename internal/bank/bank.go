// Package bank maintains the idea collection: an id-indexed, newest-first
// in-memory view of the persisted "ideas" key.
//
// New ideas pass through the enhancement gateway before they are stored;
// when the gateway fails the idea is saved without a summary and with only
// the caller's tags. Mutations enforce ownership: an idea can only be
// starred, edited or deleted by the user it belongs to.
package bank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/ideaflow-app/ideaflow/internal/apperror"
	"github.com/ideaflow-app/ideaflow/internal/gateway"
	"github.com/ideaflow-app/ideaflow/internal/model"
	"github.com/ideaflow-app/ideaflow/internal/store"
)

// MaxContentLength bounds idea content.
const MaxContentLength = 10000

// Enhancer produces an AI summary and tag suggestions for idea content.
// *gateway.Client satisfies this; tests supply fakes.
type Enhancer interface {
	Enhance(ctx context.Context, content string) (*gateway.Enhancement, error)
}

// Stats summarises a user's captured ideas.
type Stats struct {
	Total int `json:"total"`
	Voice int `json:"voice"`
	Typed int `json:"typed"`
	Today int `json:"today"`
}

// UpdateFields carries a partial idea update. Nil fields are left unchanged;
// a non-nil Tags replaces the tag set (deduplicated).
type UpdateFields struct {
	Content  *string
	Category *model.Category
	Tags     []string
}

// Bank is the idea collection.
type Bank struct {
	mu       sync.RWMutex
	store    *store.Store
	enhancer Enhancer // nil disables enhancement
	logger   *slog.Logger
	byID     map[string]*model.Idea
	order    []string // idea IDs, newest first

	now func() time.Time
}

// Open loads the persisted idea collection. Malformed or unreadable data is
// logged and treated as empty.
func Open(ctx context.Context, st *store.Store, enhancer Enhancer, logger *slog.Logger) *Bank {
	b := &Bank{
		store:    st,
		enhancer: enhancer,
		logger:   logger,
		byID:     make(map[string]*model.Idea),
		now:      time.Now,
	}

	ideas, err := st.Ideas(ctx)
	if err != nil {
		if errors.Is(err, apperror.ErrDecode) {
			logger.Warn("stored idea collection is malformed, starting empty",
				slog.String("error", err.Error()))
		} else {
			logger.Error("failed to load idea collection, starting empty",
				slog.String("error", err.Error()))
		}
		return b
	}

	for i := range ideas {
		idea := ideas[i]
		b.byID[idea.ID] = &idea
		b.order = append(b.order, idea.ID)
	}
	return b
}

// Add captures a new idea for ownerID.
//
// The enhancement round-trip happens before the record is constructed; on
// any gateway failure the idea is still created, with no aiSummary and only
// the caller-supplied tags. The stored tag set is the union of caller tags
// and gateway tags, caller tags first, duplicates removed.
func (b *Bank) Add(ctx context.Context, ownerID, content string, source model.Source, category model.Category, tags []string) (*model.Idea, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "idea content is required")
	}
	if len(content) > MaxContentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("idea content must be %d characters or less", MaxContentLength))
	}
	if ownerID == "" {
		return nil, apperror.ValidationFailed("userId", "owner is required")
	}
	if !model.ValidSource(source) {
		return nil, apperror.ValidationFailed("source", fmt.Sprintf("unknown source %q", source))
	}
	if !model.ValidCategory(category) {
		return nil, apperror.ValidationFailed("category", fmt.Sprintf("unknown category %q", category))
	}

	// The gateway call is the only suspension point; it runs outside the
	// lock so slow enhancements never block reads or other writers.
	var enh *gateway.Enhancement
	if b.enhancer != nil {
		var err error
		enh, err = b.enhancer.Enhance(ctx, content)
		if err != nil {
			b.logger.Warn("idea enhancement failed, saving without it",
				slog.String("error", err.Error()))
			enh = nil
		}
	}

	idea := &model.Idea{
		ID:        xid.New().String(),
		UserID:    ownerID,
		Content:   content,
		Source:    source,
		Category:  category,
		CreatedAt: b.now(),
	}
	if enh != nil {
		idea.Tags = mergeTags(tags, enh.Tags)
		idea.AISummary = enh.Summary
	} else {
		idea.Tags = mergeTags(tags, nil)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.byID[idea.ID] = idea
	b.order = append([]string{idea.ID}, b.order...)

	if err := b.persistLocked(ctx); err != nil {
		delete(b.byID, idea.ID)
		b.order = b.order[1:]
		return nil, err
	}

	b.logger.Info("idea captured",
		slog.String("ideaID", idea.ID),
		slog.String("userID", ownerID),
		slog.String("source", string(source)),
		slog.Bool("enhanced", enh != nil),
	)

	copy := *idea
	return &copy, nil
}

// Query returns ownerID's ideas, newest first. textFilter matches
// case-insensitively as a substring of the content or of any tag; category
// filters exactly, with model.CategoryAll (or empty) matching everything.
func (b *Bank) Query(ownerID, textFilter string, category model.Category) []model.Idea {
	textFilter = strings.ToLower(strings.TrimSpace(textFilter))

	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]model.Idea, 0)
	for _, id := range b.order {
		idea := b.byID[id]
		if idea.UserID != ownerID {
			continue
		}
		if category != "" && category != model.CategoryAll && idea.Category != category {
			continue
		}
		if textFilter != "" && !matchesText(idea, textFilter) {
			continue
		}
		result = append(result, *idea)
	}
	return result
}

// Get returns a copy of the idea, enforcing ownership.
func (b *Bank) Get(ideaID, actingID string) (*model.Idea, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	idea, err := b.ownedLocked(ideaID, actingID)
	if err != nil {
		return nil, err
	}
	copy := *idea
	return &copy, nil
}

// ToggleStar flips the starred flag on the caller's idea.
func (b *Bank) ToggleStar(ctx context.Context, ideaID, actingID string) (*model.Idea, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idea, err := b.ownedLocked(ideaID, actingID)
	if err != nil {
		return nil, err
	}

	idea.Starred = !idea.Starred
	if err := b.persistLocked(ctx); err != nil {
		idea.Starred = !idea.Starred
		return nil, err
	}

	copy := *idea
	return &copy, nil
}

// Update applies a partial update to the caller's idea.
func (b *Bank) Update(ctx context.Context, ideaID, actingID string, fields UpdateFields) (*model.Idea, error) {
	if fields.Content != nil {
		trimmed := strings.TrimSpace(*fields.Content)
		if trimmed == "" {
			return nil, apperror.ValidationFailed("content", "idea content is required")
		}
		if len(trimmed) > MaxContentLength {
			return nil, apperror.ValidationFailed("content",
				fmt.Sprintf("idea content must be %d characters or less", MaxContentLength))
		}
		fields.Content = &trimmed
	}
	if fields.Category != nil && !model.ValidCategory(*fields.Category) {
		return nil, apperror.ValidationFailed("category", fmt.Sprintf("unknown category %q", *fields.Category))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	idea, err := b.ownedLocked(ideaID, actingID)
	if err != nil {
		return nil, err
	}

	prev := *idea
	if fields.Content != nil {
		idea.Content = *fields.Content
	}
	if fields.Category != nil {
		idea.Category = *fields.Category
	}
	if fields.Tags != nil {
		idea.Tags = mergeTags(fields.Tags, nil)
	}

	if err := b.persistLocked(ctx); err != nil {
		*idea = prev
		return nil, err
	}

	copy := *idea
	return &copy, nil
}

// Delete removes the caller's idea.
func (b *Bank) Delete(ctx context.Context, ideaID, actingID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idea, err := b.ownedLocked(ideaID, actingID)
	if err != nil {
		return err
	}

	delete(b.byID, ideaID)
	pos := -1
	for i, id := range b.order {
		if id == ideaID {
			pos = i
			break
		}
	}
	if pos >= 0 {
		b.order = append(b.order[:pos], b.order[pos+1:]...)
	}

	if err := b.persistLocked(ctx); err != nil {
		b.byID[ideaID] = idea
		if pos >= 0 {
			b.order = append(b.order[:pos], append([]string{ideaID}, b.order[pos:]...)...)
		}
		return err
	}

	b.logger.Info("idea deleted",
		slog.String("ideaID", ideaID),
		slog.String("userID", actingID),
	)
	return nil
}

// Stats aggregates ownerID's ideas. "Today" compares calendar dates in the
// server's local time zone.
func (b *Bank) Stats(ownerID string) Stats {
	now := b.now().Local()
	ny, nm, nd := now.Date()

	b.mu.RLock()
	defer b.mu.RUnlock()

	var s Stats
	for _, id := range b.order {
		idea := b.byID[id]
		if idea.UserID != ownerID {
			continue
		}
		s.Total++
		switch idea.Source {
		case model.SourceVoice:
			s.Voice++
		case model.SourceTyped:
			s.Typed++
		}
		cy, cm, cd := idea.CreatedAt.Local().Date()
		if cy == ny && cm == nm && cd == nd {
			s.Today++
		}
	}
	return s
}

func (b *Bank) ownedLocked(ideaID, actingID string) (*model.Idea, error) {
	idea, ok := b.byID[ideaID]
	if !ok {
		return nil, apperror.NotFound("idea", ideaID)
	}
	if idea.UserID != actingID {
		return nil, apperror.Forbidden("you can only modify your own ideas")
	}
	return idea, nil
}

func (b *Bank) persistLocked(ctx context.Context) error {
	ideas := make([]model.Idea, 0, len(b.order))
	for _, id := range b.order {
		ideas = append(ideas, *b.byID[id])
	}
	if err := b.store.WriteIdeas(ctx, ideas); err != nil {
		b.logger.Error("failed to persist idea collection", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// mergeTags unions the two tag lists, preserving first-seen order and
// dropping empties and exact duplicates.
func mergeTags(primary, secondary []string) []string {
	merged := make([]string, 0, len(primary)+len(secondary))
	seen := make(map[string]bool, len(primary)+len(secondary))
	for _, t := range append(append([]string{}, primary...), secondary...) {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		merged = append(merged, t)
	}
	return merged
}

func matchesText(idea *model.Idea, lowerFilter string) bool {
	if strings.Contains(strings.ToLower(idea.Content), lowerFilter) {
		return true
	}
	for _, tag := range idea.Tags {
		if strings.Contains(strings.ToLower(tag), lowerFilter) {
			return true
		}
	}
	return false
}
