package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yourorg/mailseat/internal/directory"
	"github.com/yourorg/mailseat/internal/domain"
	"github.com/yourorg/mailseat/internal/events"
)

// fakeDomainSource serves a fixed set of domains and derives occupancy
// live from the directory, like the registry does in production.
type fakeDomainSource struct {
	domains map[int64]*domain.Domain
	dir     *directory.Directory
}

func (f *fakeDomainSource) Get(domainID int64) (*domain.Domain, error) {
	d, ok := f.domains[domainID]
	if !ok {
		return nil, domain.ErrDomainNotFound
	}
	return d, nil
}

func (f *fakeDomainSource) RefFor(domainID int64) (domain.DomainRef, error) {
	d, err := f.Get(domainID)
	if err != nil {
		return domain.DomainRef{}, err
	}
	return d.Ref(f.dir.UserCount(domainID)), nil
}

func newTestDirectoryService(t *testing.T, domains map[int64]*domain.Domain) (*DirectoryService, *directory.Directory) {
	t.Helper()
	dir := directory.New()
	src := &fakeDomainSource{domains: domains, dir: dir}
	broker := events.NewBroker(8)
	t.Cleanup(broker.Close)
	svc := NewDirectoryService(dir, src, broker, []string{"postmaster", "abuse"}, nil)
	return svc, dir
}

func verifiedTestDomain(id int64, maxUsers int) *domain.Domain {
	now := time.Now()
	return &domain.Domain{ID: id, Name: "example.com", Verified: true, MaxUsers: maxUsers, CreatedAt: now, UpdatedAt: now}
}

func TestCreateUserLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestDirectoryService(t, map[int64]*domain.Domain{
		7: verifiedTestDomain(7, 2),
	})

	alice, err := svc.CreateUser(ctx, 7, "alice", "Alice A")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	if alice.ID != 1 {
		t.Fatalf("expected first id 1, got %d", alice.ID)
	}

	// Case-insensitive conflict
	if _, err := svc.CreateUser(ctx, 7, "ALICE", ""); !errors.Is(err, domain.ErrUsernameConflict) {
		t.Fatalf("expected username conflict, got %v", err)
	}

	if _, err := svc.CreateUser(ctx, 7, "bob", ""); err != nil {
		t.Fatalf("create bob: %v", err)
	}

	// Occupancy is read live, so the third create hits the seat limit
	if _, err := svc.CreateUser(ctx, 7, "carol", ""); !errors.Is(err, domain.ErrDomainFull) {
		t.Fatalf("expected domain full, got %v", err)
	}

	users, err := svc.ListUsers(ctx, 7)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 || users[0].Username != "alice" || users[1].Username != "bob" {
		t.Fatalf("unexpected listing: %+v", users)
	}
}

func TestCreateUserUnknownDomain(t *testing.T) {
	svc, _ := newTestDirectoryService(t, map[int64]*domain.Domain{})
	if _, err := svc.CreateUser(context.Background(), 99, "alice", ""); !errors.Is(err, domain.ErrDomainNotFound) {
		t.Fatalf("expected domain not found, got %v", err)
	}
}

func TestCreateUserUnverifiedDomain(t *testing.T) {
	d := verifiedTestDomain(3, 10)
	d.Verified = false
	svc, _ := newTestDirectoryService(t, map[int64]*domain.Domain{3: d})

	if _, err := svc.CreateUser(context.Background(), 3, "alice", ""); !errors.Is(err, domain.ErrDomainUnverified) {
		t.Fatalf("expected unverified error, got %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newTestDirectoryService(t, map[int64]*domain.Domain{
		1: verifiedTestDomain(1, 100),
	})
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
	}{
		{"empty", ""},
		{"leading dot", ".alice"},
		{"trailing dot", "alice."},
		{"double dot", "ali..ce"},
		{"bad char", "al ice"},
		{"bad symbol", "alice!"},
		{"too long", string(make([]byte, 65))},
		{"reserved", "postmaster"},
		{"reserved mixed case", "Abuse"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateUser(ctx, 1, tc.username, ""); !errors.Is(err, domain.ErrInvalidUsername) {
				t.Fatalf("expected invalid username for %q, got %v", tc.username, err)
			}
		})
	}

	// Dots, dashes, underscores inside the local part are fine
	if _, err := svc.CreateUser(ctx, 1, "a.li-ce_9", ""); err != nil {
		t.Fatalf("expected valid username, got %v", err)
	}
}

func TestCreateUserCapacityBypassFlag(t *testing.T) {
	t.Setenv("FLAG_CAPACITY_BYPASS", "true")

	svc, _ := newTestDirectoryService(t, map[int64]*domain.Domain{
		5: verifiedTestDomain(5, 1),
	})
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, 5, "alice", ""); err != nil {
		t.Fatalf("create alice: %v", err)
	}
	// Seat limit no longer applies
	if _, err := svc.CreateUser(ctx, 5, "bob", ""); err != nil {
		t.Fatalf("expected bypass to admit bob, got %v", err)
	}
	// Uniqueness still applies
	if _, err := svc.CreateUser(ctx, 5, "ALICE", ""); !errors.Is(err, domain.ErrUsernameConflict) {
		t.Fatalf("expected conflict under bypass, got %v", err)
	}
}

func TestRenameUser(t *testing.T) {
	svc, _ := newTestDirectoryService(t, map[int64]*domain.Domain{
		1: verifiedTestDomain(1, 10),
	})
	ctx := context.Background()

	alice, _ := svc.CreateUser(ctx, 1, "alice", "")
	svc.CreateUser(ctx, 1, "bob", "")

	if _, err := svc.RenameUser(ctx, alice.ID, "BOB"); !errors.Is(err, domain.ErrUsernameConflict) {
		t.Fatalf("expected rename conflict, got %v", err)
	}
	// Case-only self-rename succeeds
	renamed, err := svc.RenameUser(ctx, alice.ID, "Alice")
	if err != nil {
		t.Fatalf("case-only rename: %v", err)
	}
	if renamed.Username != "Alice" {
		t.Fatalf("expected stored spelling Alice, got %q", renamed.Username)
	}
	// Reserved names are blocked on rename too
	if _, err := svc.RenameUser(ctx, alice.ID, "postmaster"); !errors.Is(err, domain.ErrInvalidUsername) {
		t.Fatalf("expected reserved rename rejection, got %v", err)
	}
}

func TestDeleteUserFreesSeat(t *testing.T) {
	svc, _ := newTestDirectoryService(t, map[int64]*domain.Domain{
		1: verifiedTestDomain(1, 1),
	})
	ctx := context.Background()

	alice, _ := svc.CreateUser(ctx, 1, "alice", "")
	if !svc.DeleteUser(ctx, alice.ID) {
		t.Fatalf("expected delete to report true")
	}
	if svc.DeleteUser(ctx, alice.ID) {
		t.Fatalf("expected second delete to report false")
	}

	// Seat and username are free again, id is not reused
	bob, err := svc.CreateUser(ctx, 1, "alice", "")
	if err != nil {
		t.Fatalf("recreate after delete: %v", err)
	}
	if bob.ID == alice.ID {
		t.Fatalf("id %d was reused", alice.ID)
	}
}

func TestCreateUserPublishesEvent(t *testing.T) {
	dir := directory.New()
	src := &fakeDomainSource{domains: map[int64]*domain.Domain{1: verifiedTestDomain(1, 10)}, dir: dir}
	broker := events.NewBroker(8)
	defer broker.Close()
	svc := NewDirectoryService(dir, src, broker, nil, nil)

	ch, cancel := broker.Subscribe()
	defer cancel()

	if _, err := svc.CreateUser(context.Background(), 1, "alice", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	select {
	case ev := <-ch:
		if ev.Type != events.TypeUserCreated || ev.User == nil || ev.User.Username != "alice" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("no event published")
	}
}
