// Package store implements the persistent key-value store behind every
// collection.
//
// Each logical collection lives under one fixed key as a single JSON value,
// and every write replaces that value whole. The key names and the JSON
// layout match what earlier deployments of the app persisted, so a database
// populated by an older build keeps working.
//
// Storage itself is behind the Adapter interface: the server uses the
// SQLite adapter (store/sqlite), tests and embedded callers can use the
// in-memory one.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ideaflow-app/ideaflow/internal/apperror"
	"github.com/ideaflow-app/ideaflow/internal/model"
)

// Fixed collection keys. Adding a key here means adding typed accessors on
// Store; arbitrary keys are deliberately not supported.
const (
	KeyUsers   = "users"
	KeyIdeas   = "ideas"
	KeyCMS     = "cms-content"
	KeySession = "active-session"
)

// Adapter is the durable medium under the store.
//
// Get returns (nil, false, nil) for a missing key; absence is not an
// error. Put replaces the whole value for the key.
type Adapter interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Store reads and writes typed collections over an Adapter.
type Store struct {
	adapter Adapter
}

// New creates a Store over the given adapter. The adapter's lifecycle is
// owned by the caller.
func New(adapter Adapter) *Store {
	return &Store{adapter: adapter}
}

// Users returns the persisted user directory, or nil if the key is absent.
// Malformed stored JSON is reported as apperror.ErrDecode; callers fall
// back to an empty collection.
func (s *Store) Users(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.read(ctx, KeyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// WriteUsers replaces the persisted user directory.
func (s *Store) WriteUsers(ctx context.Context, users []model.User) error {
	return s.write(ctx, KeyUsers, users)
}

// Ideas returns the persisted idea bank, or nil if the key is absent.
func (s *Store) Ideas(ctx context.Context) ([]model.Idea, error) {
	var ideas []model.Idea
	if err := s.read(ctx, KeyIdeas, &ideas); err != nil {
		return nil, err
	}
	return ideas, nil
}

// WriteIdeas replaces the persisted idea bank.
func (s *Store) WriteIdeas(ctx context.Context, ideas []model.Idea) error {
	return s.write(ctx, KeyIdeas, ideas)
}

// Announcements returns the persisted CMS content, or nil if absent.
func (s *Store) Announcements(ctx context.Context) ([]model.Announcement, error) {
	var items []model.Announcement
	if err := s.read(ctx, KeyCMS, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// WriteAnnouncements replaces the persisted CMS content.
func (s *Store) WriteAnnouncements(ctx context.Context, items []model.Announcement) error {
	return s.write(ctx, KeyCMS, items)
}

// Session returns the persisted active-session snapshot, or nil if no
// session is stored.
func (s *Store) Session(ctx context.Context) (*model.User, error) {
	raw, ok, err := s.adapter.Get(ctx, KeySession)
	if err != nil {
		return nil, fmt.Errorf("store: reading %q: %w", KeySession, err)
	}
	if !ok {
		return nil, nil
	}
	var user model.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, apperror.Decode(KeySession, err)
	}
	return &user, nil
}

// WriteSession replaces the persisted active-session snapshot.
func (s *Store) WriteSession(ctx context.Context, user *model.User) error {
	return s.write(ctx, KeySession, user)
}

// ClearSession removes the persisted session, if any.
func (s *Store) ClearSession(ctx context.Context) error {
	if err := s.adapter.Delete(ctx, KeySession); err != nil {
		return fmt.Errorf("store: clearing %q: %w", KeySession, err)
	}
	return nil
}

func (s *Store) read(ctx context.Context, key string, dst any) error {
	raw, ok, err := s.adapter.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("store: reading %q: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperror.Decode(key, err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: encoding %q: %w", key, err)
	}
	if err := s.adapter.Put(ctx, key, raw); err != nil {
		return apperror.Storage(fmt.Errorf("writing %q: %w", key, err))
	}
	return nil
}
