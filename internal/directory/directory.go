// Package directory implements the canonical in-memory user directory: one
// owned collection of EmailUser records keyed by id, with a per-domain
// username index and a monotonic id allocator kept consistent with it inside
// a single critical section.
package directory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yourorg/mailseat/internal/domain"
)

// Directory owns the canonical user collection. All mutating operations run
// under one write lock so a reader can never observe a user present in the
// collection but absent from the username index, or vice versa. Reads take
// the shared lock and work off the collection alone.
//
// Construct one instance at service start and pass it by reference; each
// test builds its own.
type Directory struct {
	mu    sync.RWMutex
	users map[int64]*domain.EmailUser
	order []int64 // creation order, survives updates and renames
	index *usernameIndex
	ids   idAllocator
	now   func() time.Time
}

// New returns an empty directory.
func New() *Directory {
	return &Directory{
		users: map[int64]*domain.EmailUser{},
		index: newUsernameIndex(),
		now:   time.Now,
	}
}

// AddUser admits a new user into the domain described by ref. Capacity and
// uniqueness are checked strictly before any shared state changes; on any
// failure the directory is observably untouched.
func (d *Directory) AddUser(ref domain.DomainRef, username, displayName string) (*domain.EmailUser, error) {
	if username == "" {
		return nil, domain.ErrInvalidUsername
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := admit(ref); err != nil {
		return nil, err
	}
	return d.insertLocked(ref.ID, username, displayName)
}

// ImportUser adds a user without consulting the capacity guard. It exists
// for bulk migration imports where occupancy is reconciled afterwards;
// uniqueness and id invariants still hold.
func (d *Directory) ImportUser(domainID int64, username, displayName string) (*domain.EmailUser, error) {
	if username == "" {
		return nil, domain.ErrInvalidUsername
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.insertLocked(domainID, username, displayName)
}

// insertLocked performs the index insertion and collection insertion as one
// step. Callers hold the write lock.
func (d *Directory) insertLocked(domainID int64, username, displayName string) (*domain.EmailUser, error) {
	if err := d.index.add(domainID, username); err != nil {
		return nil, err
	}

	user := &domain.EmailUser{
		ID:          d.ids.next(),
		DomainID:    domainID,
		Username:    username,
		DisplayName: displayName,
		Active:      true,
		CreatedAt:   d.now(),
	}
	d.users[user.ID] = user
	d.order = append(d.order, user.ID)
	return user.Clone(), nil
}

// GetUser returns the user with the given id, or false if it does not exist.
func (d *Directory) GetUser(id int64) (*domain.EmailUser, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[id]
	return user.Clone(), ok
}

// ListUsers returns the domain's users in creation order.
func (d *Directory) ListUsers(domainID int64) []*domain.EmailUser {
	d.mu.RLock()
	defer d.mu.RUnlock()

	users := []*domain.EmailUser{}
	for _, id := range d.order {
		if u := d.users[id]; u != nil && u.DomainID == domainID {
			users = append(users, u.Clone())
		}
	}
	return users
}

// UpdateUser merges the non-nil fields of update into the user. Identity
// fields and the username are out of scope; renames go through RenameUser.
func (d *Directory) UpdateUser(id int64, update domain.UserUpdate) (*domain.EmailUser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if update.DisplayName != nil {
		user.DisplayName = *update.DisplayName
	}
	if update.Active != nil {
		user.Active = *update.Active
	}
	return user.Clone(), nil
}

// RenameUser changes the user's username after re-validating uniqueness in
// its domain. On conflict the user and the index are unchanged.
func (d *Directory) RenameUser(id int64, newUsername string) (*domain.EmailUser, error) {
	if newUsername == "" {
		return nil, domain.ErrInvalidUsername
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if err := d.index.rename(user.DomainID, user.Username, newUsername); err != nil {
		return nil, err
	}
	user.Username = newUsername
	return user.Clone(), nil
}

// DeleteUser permanently removes the user and frees its username slot.
// Deleting an absent id returns false rather than an error: "already gone"
// is an expected outcome under concurrent deletes.
func (d *Directory) DeleteUser(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.users[id]
	if !ok {
		return false
	}
	d.index.remove(user.DomainID, user.Username)
	delete(d.users, id)
	for i, oid := range d.order {
		if oid == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return true
}

// UsernameTaken reports whether the username is registered in the domain,
// case-insensitively.
func (d *Directory) UsernameTaken(domainID int64, username string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.index.contains(domainID, username)
}

// UserCount returns the number of users currently in the domain.
func (d *Directory) UserCount(domainID int64) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := 0
	for _, u := range d.users {
		if u.DomainID == domainID {
			n++
		}
	}
	return n
}

// Size returns the total number of users across all domains.
func (d *Directory) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.users)
}

// Snapshot returns a consistent copy of every user in creation order, for
// the persistence collaborator.
func (d *Directory) Snapshot() []*domain.EmailUser {
	d.mu.RLock()
	defer d.mu.RUnlock()

	users := make([]*domain.EmailUser, 0, len(d.order))
	for _, id := range d.order {
		if u := d.users[id]; u != nil {
			users = append(users, u.Clone())
		}
	}
	return users
}

// Restore replaces the directory contents from a snapshot, rebuilding the
// username index and advancing the id watermark past the highest restored
// id so deleted-then-restored histories can never collide. Invoked only at
// process start, never mid-operation.
func (d *Directory) Restore(users []*domain.EmailUser) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	restored := make([]*domain.EmailUser, len(users))
	for i, u := range users {
		restored[i] = u.Clone()
	}
	sort.Slice(restored, func(i, j int) bool { return restored[i].ID < restored[j].ID })

	index := newUsernameIndex()
	byID := make(map[int64]*domain.EmailUser, len(restored))
	order := make([]int64, 0, len(restored))
	for _, u := range restored {
		if u.ID <= 0 {
			return fmt.Errorf("restore: invalid user id %d", u.ID)
		}
		if _, dup := byID[u.ID]; dup {
			return fmt.Errorf("restore: duplicate user id %d", u.ID)
		}
		if err := index.add(u.DomainID, u.Username); err != nil {
			return fmt.Errorf("restore: user %d: %w", u.ID, err)
		}
		byID[u.ID] = u
		order = append(order, u.ID)
	}

	d.users = byID
	d.order = order
	d.index = index
	if len(order) > 0 {
		d.ids.advance(order[len(order)-1])
	}
	return nil
}
