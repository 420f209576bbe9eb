package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ideaflow-app/ideaflow/internal/apperror"
	"github.com/ideaflow-app/ideaflow/internal/model"
)

func newTestStore(t *testing.T) (*Store, *MemoryAdapter) {
	t.Helper()
	adapter := NewMemoryAdapter()
	return New(adapter), adapter
}

func testUser(id, email string) model.User {
	return model.User{
		ID:                 id,
		Email:              email,
		Username:           "Test User",
		Password:           "$2a$12$fakehashfakehashfakehash",
		JoinedAt:           time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		SubscriptionPlan:   model.PlanFree,
		SubscriptionActive: true,
	}
}

func TestUsersRoundTrip(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		users []model.User
	}{
		{"empty", []model.User{}},
		{"singleton", []model.User{testUser("u1", "a@x.com")}},
		{"multiple", []model.User{
			testUser("u1", "a@x.com"),
			testUser("u2", "b@x.com"),
			testUser("u3", "c@x.com"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, _ := newTestStore(t)
			if err := st.WriteUsers(ctx, tt.users); err != nil {
				t.Fatalf("WriteUsers() error = %v", err)
			}

			got, err := st.Users(ctx)
			if err != nil {
				t.Fatalf("Users() error = %v", err)
			}
			if len(got) != len(tt.users) {
				t.Fatalf("Users() returned %d users, want %d", len(got), len(tt.users))
			}
			for i := range got {
				if got[i] != tt.users[i] {
					t.Errorf("user %d = %+v, want %+v", i, got[i], tt.users[i])
				}
			}
		})
	}
}

func TestIdeasRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)

	ideas := []model.Idea{
		{
			ID:        "i1",
			UserID:    "u1",
			Content:   "Buy milk",
			Source:    model.SourceTyped,
			Category:  model.CategoryTask,
			Tags:      []string{"errand"},
			CreatedAt: time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
			AISummary: "Grocery reminder",
		},
		{
			ID:        "i2",
			UserID:    "u1",
			Content:   "App concept",
			Source:    model.SourceVoice,
			Category:  model.CategoryInspiration,
			Tags:      []string{},
			CreatedAt: time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC),
			Starred:   true,
		},
	}

	if err := st.WriteIdeas(ctx, ideas); err != nil {
		t.Fatalf("WriteIdeas() error = %v", err)
	}
	got, err := st.Ideas(ctx)
	if err != nil {
		t.Fatalf("Ideas() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Ideas() returned %d ideas, want 2", len(got))
	}
	if got[0].AISummary != "Grocery reminder" {
		t.Errorf("aiSummary = %q, want %q", got[0].AISummary, "Grocery reminder")
	}
	if !got[1].Starred {
		t.Error("second idea lost its starred flag")
	}
	if len(got[0].Tags) != 1 || got[0].Tags[0] != "errand" {
		t.Errorf("tags = %v, want [errand]", got[0].Tags)
	}
}

func TestLegacyBillingFieldSurvivesRewrite(t *testing.T) {
	ctx := context.Background()
	st, adapter := newTestStore(t)

	// A record imported from a deployment with real billing carries a
	// subscription ID that this build never sets itself.
	adapter.Seed(KeyUsers, []byte(`[{"id":"u1","email":"a@x.com","username":"A","paypalSubscriptionId":"I-LEGACY123"}]`))

	users, err := st.Users(ctx)
	if err != nil {
		t.Fatalf("Users() error = %v", err)
	}
	if len(users) != 1 || users[0].PayPalSubscriptionID != "I-LEGACY123" {
		t.Fatalf("Users() = %+v, want the legacy subscription ID", users)
	}

	if err := st.WriteUsers(ctx, users); err != nil {
		t.Fatalf("WriteUsers() error = %v", err)
	}
	got, err := st.Users(ctx)
	if err != nil {
		t.Fatalf("Users() after rewrite error = %v", err)
	}
	if got[0].PayPalSubscriptionID != "I-LEGACY123" {
		t.Errorf("rewrite dropped paypalSubscriptionId, got %+v", got[0])
	}
}

func TestMissingKeyIsAbsentNotError(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)

	users, err := st.Users(ctx)
	if err != nil {
		t.Fatalf("Users() on empty store error = %v", err)
	}
	if users != nil {
		t.Errorf("Users() = %v, want nil for absent key", users)
	}

	session, err := st.Session(ctx)
	if err != nil {
		t.Fatalf("Session() on empty store error = %v", err)
	}
	if session != nil {
		t.Errorf("Session() = %v, want nil for absent key", session)
	}
}

func TestMalformedValueIsDecodeFailure(t *testing.T) {
	ctx := context.Background()
	st, adapter := newTestStore(t)

	adapter.Seed(KeyUsers, []byte(`{"this is": "not a user array"`))

	_, err := st.Users(ctx)
	if !errors.Is(err, apperror.ErrDecode) {
		t.Fatalf("Users() error = %v, want ErrDecode", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)

	user := testUser("u1", "a@x.com")
	if err := st.WriteSession(ctx, &user); err != nil {
		t.Fatalf("WriteSession() error = %v", err)
	}

	got, err := st.Session(ctx)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if got == nil || got.ID != "u1" {
		t.Fatalf("Session() = %+v, want user u1", got)
	}

	if err := st.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession() error = %v", err)
	}
	got, err = st.Session(ctx)
	if err != nil {
		t.Fatalf("Session() after clear error = %v", err)
	}
	if got != nil {
		t.Errorf("Session() after clear = %+v, want nil", got)
	}
}

func TestWriteReplacesWholeValue(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)

	if err := st.WriteUsers(ctx, []model.User{testUser("u1", "a@x.com"), testUser("u2", "b@x.com")}); err != nil {
		t.Fatalf("WriteUsers() error = %v", err)
	}
	if err := st.WriteUsers(ctx, []model.User{testUser("u3", "c@x.com")}); err != nil {
		t.Fatalf("WriteUsers() error = %v", err)
	}

	got, err := st.Users(ctx)
	if err != nil {
		t.Fatalf("Users() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "u3" {
		t.Errorf("Users() = %+v, want single user u3", got)
	}
}
