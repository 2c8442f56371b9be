package domain

import "time"

// Domain represents an organizational mail domain owned by the registry.
// MaxUsers bounds seat capacity; only verified domains may gain users.
type Domain struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"` // e.g. acme.example
	Verified  bool      `json:"verified"`
	MaxUsers  int       `json:"maxUsers"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DomainRef is the read-only capacity view the registry hands to the
// directory on every addUser call. The directory trusts it at call time and
// never caches or mutates it.
type DomainRef struct {
	ID               int64 `json:"id"`
	Verified         bool  `json:"verified"`
	MaxUsers         int   `json:"maxUsers"`
	CurrentUserCount int   `json:"currentUserCount"`
}

// Ref builds a capacity view for this domain with the occupancy observed by
// the caller at this moment.
func (d *Domain) Ref(currentUserCount int) DomainRef {
	return DomainRef{
		ID:               d.ID,
		Verified:         d.Verified,
		MaxUsers:         d.MaxUsers,
		CurrentUserCount: currentUserCount,
	}
}

// DomainRepository defines data access for domains.
type DomainRepository interface {
	Create(domain *Domain) error
	GetByID(id int64) (*Domain, error)
	GetByName(name string) (*Domain, error)
	Update(domain *Domain) error
	Delete(id int64) error
	List() ([]*Domain, error)
}
