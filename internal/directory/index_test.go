package directory

import (
	"errors"
	"testing"

	"github.com/yourorg/mailseat/internal/domain"
)

func TestIndexCaseInsensitiveMembership(t *testing.T) {
	ix := newUsernameIndex()
	if err := ix.add(1, "Alice"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	for _, probe := range []string{"alice", "ALICE", "aLiCe"} {
		if !ix.contains(1, probe) {
			t.Fatalf("expected %q to be a member", probe)
		}
	}
	if ix.contains(2, "alice") {
		t.Fatalf("membership leaked across domains")
	}
}

func TestIndexAddRechecks(t *testing.T) {
	ix := newUsernameIndex()
	if err := ix.add(1, "alice"); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := ix.add(1, "ALICE"); !errors.Is(err, domain.ErrUsernameConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestIndexRemoveIdempotent(t *testing.T) {
	ix := newUsernameIndex()
	ix.remove(1, "ghost") // absent pair is a no-op
	if err := ix.add(1, "alice"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	ix.remove(1, "ALICE")
	ix.remove(1, "alice")
	if ix.contains(1, "alice") {
		t.Fatalf("remove did not free the name")
	}
}

func TestIndexRenameAtomic(t *testing.T) {
	ix := newUsernameIndex()
	ix.add(1, "alice")
	ix.add(1, "bob")

	if err := ix.rename(1, "alice", "bob"); !errors.Is(err, domain.ErrUsernameConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// Failed rename leaves the index unchanged
	if !ix.contains(1, "alice") || !ix.contains(1, "bob") {
		t.Fatalf("failed rename mutated the index")
	}

	if err := ix.rename(1, "alice", "alicia"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if ix.contains(1, "alice") || !ix.contains(1, "alicia") {
		t.Fatalf("rename did not swap names")
	}

	// Case-only rename is a success and keeps the key
	if err := ix.rename(1, "alicia", "ALICIA"); err != nil {
		t.Fatalf("case-only rename failed: %v", err)
	}
	if !ix.contains(1, "alicia") {
		t.Fatalf("case-only rename dropped the name")
	}
}
