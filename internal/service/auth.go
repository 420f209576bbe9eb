// Package service contains the business logic layer.
//
// AuthService is the session/auth manager: it validates credentials
// against the user directory, issues session tokens, and keeps the
// persisted active-session snapshot in sync with the directory. Identity
// is always an explicit parameter; there is no ambient current-user
// state anywhere in the core.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ideaflow-app/ideaflow/internal/apperror"
	"github.com/ideaflow-app/ideaflow/internal/auth"
	"github.com/ideaflow-app/ideaflow/internal/directory"
	"github.com/ideaflow-app/ideaflow/internal/model"
	"github.com/ideaflow-app/ideaflow/internal/store"
)

// AuthService handles registration, login and profile management.
type AuthService struct {
	users       *directory.Directory
	store       *store.Store
	passwords   *auth.PasswordService
	tokens      *auth.TokenService
	adminEmails map[string]bool
	logger      *slog.Logger
}

// NewAuthService creates an AuthService. adminEmails is the allow-list of
// designated administrator addresses (compared lower-cased).
func NewAuthService(
	users *directory.Directory,
	st *store.Store,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	adminEmails []string,
	logger *slog.Logger,
) *AuthService {
	allow := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			allow[e] = true
		}
	}
	return &AuthService{
		users:       users,
		store:       st,
		passwords:   passwords,
		tokens:      tokens,
		adminEmails: allow,
		logger:      logger,
	}
}

// AuthResult bundles the authenticated user with their session token so
// the handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// ProfileUpdate carries a partial profile edit. Nil fields are unchanged.
type ProfileUpdate struct {
	Username             *string
	Password             *string
	NotificationsEnabled *bool
	HasCompletedTour     *bool
}

// Register creates a new account and opens a session for it.
//
// The email is lower-cased before the uniqueness check and storage.
// Allow-listed addresses become admins on the Enterprise plan; an email
// whose local part contains "admin" also gets the admin flag. Everyone
// else starts on Free. All new accounts have an active subscription and
// an unfinished onboarding tour.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	plan := model.PlanFree
	if s.adminEmails[email] {
		plan = model.PlanEnterprise
	}

	user, err := s.CreateUser(ctx, email, username, password, s.isAdminEmail(email), plan)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
		slog.Bool("isAdmin", user.IsAdmin),
		slog.String("plan", string(user.SubscriptionPlan)),
	)

	return s.openSession(ctx, user)
}

// CreateUser registers an account without opening a session for it. The
// admin flag and plan are explicit: admin-facing creation passes the
// caller's choices through verbatim, while Register derives them from
// the email rules before calling here.
func (s *AuthService) CreateUser(ctx context.Context, email, username, password string, isAdmin bool, plan model.Plan) (*model.User, error) {
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user, err := s.users.Create(ctx, username, email, hash, isAdmin, plan)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return user, nil
}

// Login authenticates an email/password pair. Unknown email and wrong
// password yield the same invalid-credentials error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, ok := s.users.GetByEmail(email)
	if !ok {
		return nil, apperror.Unauthorized("invalid credentials")
	}
	if err := s.passwords.Verify(user.Password, password); err != nil {
		return nil, apperror.Unauthorized("invalid credentials")
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.openSession(ctx, user)
}

// RequestRecovery reports success for any address. No mail is actually
// sent in this deployment; the flow exists so the UI can show the same
// response whether or not the account exists.
func (s *AuthService) RequestRecovery(email string) {
	s.logger.Info("password recovery requested",
		slog.String("email", strings.ToLower(strings.TrimSpace(email))))
}

// Logout clears the persisted session snapshot. The HTTP cookie is the
// handler's concern.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.store.ClearSession(ctx); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

// GetUserByID returns the user record for id.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	_ = ctx
	return s.users.GetByID(id)
}

// UpdateProfile merges the given fields into the user's record and
// refreshes the persisted session snapshot if it belongs to the same
// user.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*model.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if upd.Username != nil {
		name := strings.TrimSpace(*upd.Username)
		if name == "" {
			return nil, apperror.ValidationFailed("username", "username is required")
		}
		user.Username = name
	}
	if upd.Password != nil {
		if *upd.Password == "" {
			return nil, apperror.ValidationFailed("password", "password is required")
		}
		hash, err := s.passwords.Hash(*upd.Password)
		if err != nil {
			return nil, apperror.ValidationFailed("password", err.Error())
		}
		user.Password = hash
	}
	if upd.NotificationsEnabled != nil {
		user.NotificationsEnabled = *upd.NotificationsEnabled
	}
	if upd.HasCompletedTour != nil {
		user.HasCompletedTour = *upd.HasCompletedTour
	}

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	s.refreshSession(ctx, updated)
	return updated, nil
}

// ChangePlan switches the user's subscription plan. Payment is simulated:
// the switch always succeeds and activates the subscription.
func (s *AuthService) ChangePlan(ctx context.Context, userID string, plan model.Plan) (*model.User, error) {
	if !model.ValidPlan(plan) {
		return nil, apperror.ValidationFailed("subscriptionPlan", fmt.Sprintf("unknown subscription plan %q", plan))
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}

	user.SubscriptionPlan = plan
	user.SubscriptionActive = true

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("changing plan: %w", err)
	}

	s.logger.Info("subscription plan changed",
		slog.String("userID", userID),
		slog.String("plan", string(plan)),
	)

	s.refreshSession(ctx, updated)
	return updated, nil
}

// isAdminEmail implements the admin-detection rule: the configured
// allow-list, or a local part containing "admin". The rule is kept for
// compatibility with existing deployments and lives only here.
func (s *AuthService) isAdminEmail(email string) bool {
	if s.adminEmails[email] {
		return true
	}
	local, _, found := strings.Cut(email, "@")
	if !found {
		return false
	}
	return strings.Contains(strings.ToLower(local), "admin")
}

func (s *AuthService) openSession(ctx context.Context, user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generating session token for user %s: %w", user.ID, err)
	}

	// The snapshot is re-derivable from the directory on the next login,
	// so a failed write degrades the stored session rather than the login.
	if err := s.store.WriteSession(ctx, user); err != nil {
		s.logger.Warn("failed to persist session snapshot", slog.String("error", err.Error()))
	}

	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) refreshSession(ctx context.Context, user *model.User) {
	session, err := s.store.Session(ctx)
	if err != nil || session == nil || session.ID != user.ID {
		return
	}
	if err := s.store.WriteSession(ctx, user); err != nil {
		s.logger.Warn("failed to refresh session snapshot", slog.String("error", err.Error()))
	}
}
