package directory

import (
	"strings"

	"github.com/yourorg/mailseat/internal/domain"
)

// usernameIndex tracks which usernames are registered per domain, compared
// case-insensitively. The same username may exist in two different domains
// at once. The index carries no lock of its own: every call happens inside
// the directory's critical section, which is what keeps it transactionally
// consistent with the canonical collection.
type usernameIndex struct {
	byDomain map[int64]map[string]struct{}
}

func newUsernameIndex() *usernameIndex {
	return &usernameIndex{byDomain: map[int64]map[string]struct{}{}}
}

func fold(username string) string {
	return strings.ToLower(username)
}

// contains reports whether the username is registered in the domain.
func (ix *usernameIndex) contains(domainID int64, username string) bool {
	names, ok := ix.byDomain[domainID]
	if !ok {
		return false
	}
	_, taken := names[fold(username)]
	return taken
}

// add records the pair, re-checking membership so a duplicate can never slip
// in between a caller's contains() and the insertion.
func (ix *usernameIndex) add(domainID int64, username string) error {
	names, ok := ix.byDomain[domainID]
	if !ok {
		names = map[string]struct{}{}
		ix.byDomain[domainID] = names
	}
	key := fold(username)
	if _, taken := names[key]; taken {
		return domain.ErrUsernameConflict
	}
	names[key] = struct{}{}
	return nil
}

// remove is idempotent; removing an absent pair is a no-op.
func (ix *usernameIndex) remove(domainID int64, username string) {
	names, ok := ix.byDomain[domainID]
	if !ok {
		return
	}
	delete(names, fold(username))
	if len(names) == 0 {
		delete(ix.byDomain, domainID)
	}
}

// rename atomically swaps oldUsername for newUsername. A rename that only
// changes letter case maps to the same key and succeeds. On conflict the
// index is left unchanged.
func (ix *usernameIndex) rename(domainID int64, oldUsername, newUsername string) error {
	oldKey, newKey := fold(oldUsername), fold(newUsername)
	if oldKey == newKey {
		return nil
	}
	if ix.contains(domainID, newUsername) {
		return domain.ErrUsernameConflict
	}
	ix.remove(domainID, oldUsername)
	return ix.add(domainID, newUsername)
}
