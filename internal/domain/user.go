package domain

import (
	"context"
	"fmt"
	"time"
)

// EmailUser represents a mail-enabled seat inside one organizational domain.
// ID is unique across the whole directory; Username is unique within the
// domain under case-insensitive comparison.
type EmailUser struct {
	ID          int64     `json:"id"`
	DomainID    int64     `json:"domainId"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Address renders the routable address for a user given its domain name.
// The directory never sends mail; this exists for the dispatch collaborator.
func (u *EmailUser) Address(domainName string) string {
	return fmt.Sprintf("%s@%s", u.Username, domainName)
}

// Clone returns a copy so callers never alias directory-owned state.
func (u *EmailUser) Clone() *EmailUser {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// UserUpdate carries a partial field merge for an existing user.
// Nil fields are left untouched. ID, DomainID and CreatedAt are immutable
// and therefore have no place here.
type UserUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// SnapshotStore persists the full directory state at process boundaries.
// It is never invoked mid-operation.
type SnapshotStore interface {
	LoadAll(ctx context.Context) ([]*EmailUser, error)
	SaveAll(ctx context.Context, users []*EmailUser) error
}
