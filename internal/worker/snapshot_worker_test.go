package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/mailseat/internal/directory"
	"github.com/yourorg/mailseat/internal/domain"
)

type memSnapshotStore struct {
	mu    sync.Mutex
	saved [][]*domain.EmailUser
	fail  bool
}

func (m *memSnapshotStore) SaveAll(ctx context.Context, users []*domain.EmailUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store down")
	}
	m.saved = append(m.saved, users)
	return nil
}

func (m *memSnapshotStore) LoadAll(ctx context.Context) ([]*domain.EmailUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return nil, nil
	}
	return m.saved[len(m.saved)-1], nil
}

func (m *memSnapshotStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func seededDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	dir := directory.New()
	ref := domain.DomainRef{ID: 1, Verified: true, MaxUsers: 10}
	if _, err := dir.AddUser(ref, "alice", ""); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ref.CurrentUserCount = 1
	if _, err := dir.AddUser(ref, "bob", ""); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return dir
}

func TestSnapshotNowPersistsDirectory(t *testing.T) {
	dir := seededDirectory(t)
	store := &memSnapshotStore{}
	w := NewSnapshotWorker(dir, store, nil, time.Minute)

	if err := w.SnapshotNow(context.Background(), "test"); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if store.saveCount() != 1 {
		t.Fatalf("expected one save, got %d", store.saveCount())
	}

	users, _ := store.LoadAll(context.Background())
	if len(users) != 2 || users[0].Username != "alice" || users[1].Username != "bob" {
		t.Fatalf("unexpected snapshot contents: %+v", users)
	}
}

func TestSnapshotRoundTripRestoresWatermark(t *testing.T) {
	dir := seededDirectory(t)
	store := &memSnapshotStore{}
	w := NewSnapshotWorker(dir, store, nil, time.Minute)

	if err := w.SnapshotNow(context.Background(), "test"); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	users, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	restored := directory.New()
	if err := restored.Restore(users); err != nil {
		t.Fatalf("restore: %v", err)
	}

	ref := domain.DomainRef{ID: 1, Verified: true, MaxUsers: 10, CurrentUserCount: 2}
	carol, err := restored.AddUser(ref, "carol", "")
	if err != nil {
		t.Fatalf("add after restore: %v", err)
	}
	if carol.ID != 3 {
		t.Fatalf("expected id watermark to advance past snapshot, got %d", carol.ID)
	}
}

func TestSnapshotCircuitOpensAfterFailures(t *testing.T) {
	dir := seededDirectory(t)
	store := &memSnapshotStore{fail: true}
	w := NewSnapshotWorker(dir, store, nil, time.Minute)
	w.retryCfg.MaxAttempts = 1
	w.retryCfg.InitialBackoff = time.Millisecond

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := w.SnapshotNow(ctx, "test"); err == nil {
			t.Fatalf("expected save failure on attempt %d", i+1)
		}
	}

	// Breaker is open now, the next snapshot is skipped without error
	if err := w.SnapshotNow(ctx, "test"); err != nil {
		t.Fatalf("expected skip while circuit open, got %v", err)
	}
	if store.saveCount() != 0 {
		t.Fatalf("expected no successful saves, got %d", store.saveCount())
	}
}
