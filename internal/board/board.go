// Package board maintains the announcement collection (CMS content).
//
// Announcements are prepended on creation, so the stored order is newest
// first and the featured announcement is simply the first active entry.
// The active flag is set at creation and never toggled afterwards; the
// admin workflow for retiring a banner is deleting it.
package board

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/ideaflow-app/ideaflow/internal/apperror"
	"github.com/ideaflow-app/ideaflow/internal/model"
	"github.com/ideaflow-app/ideaflow/internal/store"
)

// defaultTitle is used when an announcement is created without one.
const defaultTitle = "New Announcement"

// Board is the announcement collection.
type Board struct {
	mu     sync.RWMutex
	store  *store.Store
	logger *slog.Logger
	items  []model.Announcement // newest first
}

// Open loads the persisted CMS content. Malformed or unreadable data is
// logged and treated as empty.
func Open(ctx context.Context, st *store.Store, logger *slog.Logger) *Board {
	b := &Board{store: st, logger: logger}

	items, err := st.Announcements(ctx)
	if err != nil {
		if errors.Is(err, apperror.ErrDecode) {
			logger.Warn("stored CMS content is malformed, starting empty",
				slog.String("error", err.Error()))
		} else {
			logger.Error("failed to load CMS content, starting empty",
				slog.String("error", err.Error()))
		}
		return b
	}

	b.items = items
	return b
}

// Create adds a new announcement at the front of the board.
func (b *Board) Create(ctx context.Context, title, text string, isActive bool, imageURL string) (*model.Announcement, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}

	item := model.Announcement{
		ID:        xid.New().String(),
		Title:     title,
		Text:      strings.TrimSpace(text),
		ImageURL:  strings.TrimSpace(imageURL),
		IsActive:  isActive,
		CreatedAt: time.Now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append([]model.Announcement{item}, b.items...)
	if err := b.persistLocked(ctx); err != nil {
		b.items = b.items[1:]
		return nil, err
	}

	b.logger.Info("announcement created",
		slog.String("id", item.ID),
		slog.String("title", item.Title),
		slog.Bool("isActive", item.IsActive),
	)

	copy := item
	return &copy, nil
}

// Delete removes an announcement by ID.
func (b *Board) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos := -1
	for i := range b.items {
		if b.items[i].ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return apperror.NotFound("announcement", id)
	}

	removed := b.items[pos]
	b.items = append(b.items[:pos], b.items[pos+1:]...)
	if err := b.persistLocked(ctx); err != nil {
		b.items = append(b.items[:pos], append([]model.Announcement{removed}, b.items[pos:]...)...)
		return err
	}

	b.logger.Info("announcement deleted", slog.String("id", id))
	return nil
}

// List returns all announcements, newest first.
func (b *Board) List() []model.Announcement {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]model.Announcement(nil), b.items...)
}

// ListActive returns the active announcements, newest first.
func (b *Board) ListActive() []model.Announcement {
	b.mu.RLock()
	defer b.mu.RUnlock()

	active := make([]model.Announcement, 0, len(b.items))
	for _, item := range b.items {
		if item.IsActive {
			active = append(active, item)
		}
	}
	return active
}

// Featured returns the most recently created active announcement, or nil if
// no announcement is active.
func (b *Board) Featured() *model.Announcement {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i := range b.items {
		if b.items[i].IsActive {
			copy := b.items[i]
			return &copy
		}
	}
	return nil
}

func (b *Board) persistLocked(ctx context.Context) error {
	if err := b.store.WriteAnnouncements(ctx, b.items); err != nil {
		b.logger.Error("failed to persist CMS content", slog.String("error", err.Error()))
		return err
	}
	return nil
}
