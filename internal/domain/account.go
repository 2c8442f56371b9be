package domain

import "time"

// Account represents an operator of the admin API. Accounts authenticate
// against this service; EmailUser seats never do.
type Account struct {
	ID           string // UUID
	Email        string // Unique login email
	Username     string // Unique operator handle
	PasswordHash string // Bcrypt hashed password (not returned in API)
	DomainID     int64  // Domain this operator administers (0 for platform admins)
	Role         string // admin, domain_admin, member
	CreatedAt    time.Time
	UpdatedAt    time.Time
	IsActive     bool
}

// AccountRepository defines data access for operator accounts.
type AccountRepository interface {
	Create(account *Account) error
	GetByID(id string) (*Account, error)
	GetByEmail(email string) (*Account, error)
	GetByUsername(username string) (*Account, error)
	Update(account *Account) error
	Delete(id string) error
	ListByDomain(domainID int64) ([]*Account, error)
}
