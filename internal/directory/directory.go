// Package directory maintains the user collection: an id-indexed in-memory
// view of the persisted "users" key.
//
// Every mutation updates the in-memory index and synchronously rewrites the
// whole collection through the store. Reads never touch the store after
// Open. A RWMutex makes the directory safe for the server's concurrent
// request handlers.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/ideaflow-app/ideaflow/internal/apperror"
	"github.com/ideaflow-app/ideaflow/internal/model"
	"github.com/ideaflow-app/ideaflow/internal/store"
)

// SortKey selects the ordering of List results.
type SortKey string

const (
	// SortByUsername orders ascending, lexicographic on username.
	SortByUsername SortKey = "username"
	// SortByJoinedAt orders newest first. This is the default.
	SortByJoinedAt SortKey = "joinedAt"
	// SortByPlan orders ascending, lexicographic on the plan name.
	// That yields Enterprise < Free < Pro, the ordering the app has
	// always shown, not a tier ranking.
	SortByPlan SortKey = "subscriptionPlan"
)

// Directory is the user collection.
type Directory struct {
	mu     sync.RWMutex
	store  *store.Store
	logger *slog.Logger
	byID   map[string]*model.User
	order  []string // insertion order of IDs
}

// Open loads the persisted user collection. A malformed or unreadable
// collection is logged and treated as empty rather than failing startup.
func Open(ctx context.Context, st *store.Store, logger *slog.Logger) *Directory {
	d := &Directory{
		store:  st,
		logger: logger,
		byID:   make(map[string]*model.User),
	}

	users, err := st.Users(ctx)
	if err != nil {
		if errors.Is(err, apperror.ErrDecode) {
			logger.Warn("stored user collection is malformed, starting empty",
				slog.String("error", err.Error()))
		} else {
			logger.Error("failed to load user collection, starting empty",
				slog.String("error", err.Error()))
		}
		return d
	}

	for i := range users {
		u := users[i]
		d.byID[u.ID] = &u
		d.order = append(d.order, u.ID)
	}
	return d
}

// Create registers a new user record. Email is lower-cased and must be
// unique (case-insensitively) across the directory. passwordHash must
// already be a bcrypt hash; the directory never sees plaintext.
func (d *Directory) Create(ctx context.Context, username, email, passwordHash string, isAdmin bool, plan model.Plan) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if passwordHash == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}
	if !model.ValidPlan(plan) {
		return nil, apperror.ValidationFailed("subscriptionPlan", fmt.Sprintf("unknown subscription plan %q", plan))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.findByEmailLocked(email) != nil {
		return nil, apperror.Conflict("an account with this email already exists")
	}

	user := &model.User{
		ID:                 xid.New().String(),
		Email:              email,
		Username:           username,
		Password:           passwordHash,
		IsAdmin:            isAdmin,
		JoinedAt:           time.Now(),
		SubscriptionPlan:   plan,
		SubscriptionActive: true,
	}

	d.byID[user.ID] = user
	d.order = append(d.order, user.ID)

	if err := d.persistLocked(ctx); err != nil {
		// Roll back the in-memory insert so the directory matches storage.
		delete(d.byID, user.ID)
		d.order = d.order[:len(d.order)-1]
		return nil, err
	}

	d.logger.Info("user created",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
		slog.Bool("isAdmin", user.IsAdmin),
	)

	copy := *user
	return &copy, nil
}

// GetByID returns a copy of the user with the given ID.
func (d *Directory) GetByID(id string) (*model.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copy := *user
	return &copy, nil
}

// GetByEmail returns a copy of the user with the given email, matched
// case-insensitively.
func (d *Directory) GetByEmail(email string) (*model.User, bool) {
	email = strings.ToLower(strings.TrimSpace(email))

	d.mu.RLock()
	defer d.mu.RUnlock()

	user := d.findByEmailLocked(email)
	if user == nil {
		return nil, false
	}
	copy := *user
	return &copy, true
}

// List returns users whose username or email contains filter
// (case-insensitive substring; empty matches all), ordered by key.
func (d *Directory) List(filter string, key SortKey) []model.User {
	filter = strings.ToLower(strings.TrimSpace(filter))

	d.mu.RLock()
	result := make([]model.User, 0, len(d.order))
	for _, id := range d.order {
		u := d.byID[id]
		if filter != "" &&
			!strings.Contains(strings.ToLower(u.Username), filter) &&
			!strings.Contains(strings.ToLower(u.Email), filter) {
			continue
		}
		result = append(result, *u)
	}
	d.mu.RUnlock()

	switch key {
	case SortByUsername:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Username < result[j].Username
		})
	case SortByPlan:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].SubscriptionPlan < result[j].SubscriptionPlan
		})
	default: // SortByJoinedAt, newest first
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].JoinedAt.After(result[j].JoinedAt)
		})
	}

	return result
}

// Update replaces the stored record for user.ID with user. The email is
// normalized like in Create; changing it to another account's address is
// refused.
func (d *Directory) Update(ctx context.Context, user *model.User) (*model.User, error) {
	updated := *user
	updated.Email = strings.ToLower(strings.TrimSpace(updated.Email))

	d.mu.Lock()
	defer d.mu.Unlock()

	prev, ok := d.byID[updated.ID]
	if !ok {
		return nil, apperror.NotFound("user", updated.ID)
	}

	if updated.Email != prev.Email {
		if updated.Email == "" || !strings.Contains(updated.Email, "@") {
			return nil, apperror.ValidationFailed("email", "a valid email address is required")
		}
		if other := d.findByEmailLocked(updated.Email); other != nil && other.ID != updated.ID {
			return nil, apperror.Conflict("an account with this email already exists")
		}
	}

	d.byID[updated.ID] = &updated

	if err := d.persistLocked(ctx); err != nil {
		d.byID[user.ID] = prev
		return nil, err
	}

	copy := updated
	return &copy, nil
}

// ToggleAdmin flips the admin flag on the target user. Admins cannot change
// their own admin status.
func (d *Directory) ToggleAdmin(ctx context.Context, targetID, actingID string) (*model.User, error) {
	if targetID == actingID {
		return nil, apperror.Forbidden("you cannot change your own admin status")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[targetID]
	if !ok {
		return nil, apperror.NotFound("user", targetID)
	}

	user.IsAdmin = !user.IsAdmin
	if err := d.persistLocked(ctx); err != nil {
		user.IsAdmin = !user.IsAdmin
		return nil, err
	}

	d.logger.Info("admin flag toggled",
		slog.String("targetID", targetID),
		slog.String("actingID", actingID),
		slog.Bool("isAdmin", user.IsAdmin),
	)

	copy := *user
	return &copy, nil
}

// Delete removes the target user. Admins cannot delete themselves.
//
// Ideas owned by the deleted user are NOT cascade-deleted; they remain in
// the bank with no owner able to query them.
func (d *Directory) Delete(ctx context.Context, targetID, actingID string) error {
	if targetID == actingID {
		return apperror.Forbidden("you cannot delete your own account")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[targetID]
	if !ok {
		return apperror.NotFound("user", targetID)
	}

	delete(d.byID, targetID)
	pos := -1
	for i, id := range d.order {
		if id == targetID {
			pos = i
			break
		}
	}
	if pos >= 0 {
		d.order = append(d.order[:pos], d.order[pos+1:]...)
	}

	if err := d.persistLocked(ctx); err != nil {
		d.byID[targetID] = user
		if pos >= 0 {
			d.order = append(d.order[:pos], append([]string{targetID}, d.order[pos:]...)...)
		}
		return err
	}

	d.logger.Info("user deleted",
		slog.String("targetID", targetID),
		slog.String("actingID", actingID),
	)
	return nil
}

// Count returns the number of users in the directory.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

func (d *Directory) findByEmailLocked(lowerEmail string) *model.User {
	for _, u := range d.byID {
		if strings.ToLower(u.Email) == lowerEmail {
			return u
		}
	}
	return nil
}

func (d *Directory) persistLocked(ctx context.Context) error {
	users := make([]model.User, 0, len(d.order))
	for _, id := range d.order {
		users = append(users, *d.byID[id])
	}
	if err := d.store.WriteUsers(ctx, users); err != nil {
		d.logger.Error("failed to persist user collection", slog.String("error", err.Error()))
		return err
	}
	return nil
}
