package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ideaflow-app/ideaflow/internal/model"
	"github.com/ideaflow-app/ideaflow/internal/store"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test adapter: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestGetMissingKey(t *testing.T) {
	a := newTestAdapter(t)

	_, ok, err := a.Get(context.Background(), store.KeyUsers)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() reported a value for a key that was never written")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	payload := []byte(`[{"id":"u1","email":"a@x.com"}]`)
	if err := a.Put(ctx, store.KeyUsers, payload); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok, err := a.Get(ctx, store.KeyUsers)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() found no value after Put()")
	}
	if string(got) != string(payload) {
		t.Errorf("Get() = %s, want %s", got, payload)
	}
}

func TestPutReplaces(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if err := a.Put(ctx, store.KeyCMS, []byte(`[{"id":"a1"}]`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := a.Put(ctx, store.KeyCMS, []byte(`[]`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok, err := a.Get(ctx, store.KeyCMS)
	if err != nil || !ok {
		t.Fatalf("Get() = ok=%v, err=%v", ok, err)
	}
	if string(got) != `[]` {
		t.Errorf("Get() = %s, want []", got)
	}
}

func TestDelete(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if err := a.Put(ctx, store.KeySession, []byte(`{"id":"u1"}`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := a.Delete(ctx, store.KeySession); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, ok, err := a.Get(ctx, store.KeySession)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() found a value after Delete()")
	}

	// Deleting an absent key is a no-op, not an error.
	if err := a.Delete(ctx, store.KeySession); err != nil {
		t.Errorf("Delete() of absent key error = %v", err)
	}
}

func TestStoreOverSQLiteRoundTrip(t *testing.T) {
	// End to end through the typed Store, against a real file so the data
	// survives reopening the database.
	dbPath := filepath.Join(t.TempDir(), "ideaflow.db")
	ctx := context.Background()

	a, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	st := store.New(a)

	users := []model.User{{ID: "u1", Email: "a@x.com", Username: "Ada", SubscriptionPlan: model.PlanPro}}
	if err := st.WriteUsers(ctx, users); err != nil {
		t.Fatalf("WriteUsers() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() on reopen error = %v", err)
	}
	t.Cleanup(func() { reopened.Close() })

	got, err := store.New(reopened).Users(ctx)
	if err != nil {
		t.Fatalf("Users() error = %v", err)
	}
	if len(got) != 1 || got[0].Email != "a@x.com" || got[0].SubscriptionPlan != model.PlanPro {
		t.Errorf("Users() after reopen = %+v", got)
	}
}
