// Package registry owns the organizational domain records and their seat
// limits. It is the capacity-owning collaborator: the directory never tracks
// domain state itself, it only trusts the DomainRef the registry builds at
// call time.
package registry

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yourorg/mailseat/internal/domain"
	"github.com/yourorg/mailseat/pkg/cache"
)

const domainCacheTTL = 30 * time.Second

// Occupancy reports how many seats a domain currently holds. The directory
// satisfies this; the registry uses it to keep currentUserCount consistent
// with the directory's own count.
type Occupancy interface {
	UserCount(domainID int64) int
}

// Registry manages domains and assembles capacity views for the directory.
type Registry struct {
	repo      domain.DomainRepository
	occupancy Occupancy
	cache     *cache.Cache
	logger    *slog.Logger
}

// New creates a domain registry.
func New(repo domain.DomainRepository, occupancy Occupancy, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		repo:      repo,
		occupancy: occupancy,
		cache:     cache.New(),
		logger:    logger,
	}
}

// CreateDomain registers a new, unverified domain with the given seat limit.
func (r *Registry) CreateDomain(name string, maxUsers int) (*domain.Domain, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || !strings.Contains(name, ".") {
		return nil, fmt.Errorf("invalid domain name %q", name)
	}
	if maxUsers < 0 {
		return nil, fmt.Errorf("maxUsers must not be negative")
	}

	if existing, err := r.repo.GetByName(name); err == nil && existing != nil {
		return nil, domain.ErrDomainExists
	}

	d := &domain.Domain{
		Name:     name,
		Verified: false,
		MaxUsers: maxUsers,
	}
	if err := r.repo.Create(d); err != nil {
		r.logger.Error("failed to create domain", slog.String("name", name), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create domain: %w", err)
	}

	r.logger.Info("domain registered",
		slog.Int64("domain_id", d.ID),
		slog.String("name", d.Name),
		slog.Int("max_users", d.MaxUsers),
	)
	return d, nil
}

// Get retrieves a domain by id, serving repeated reads from a short TTL
// cache.
func (r *Registry) Get(id int64) (*domain.Domain, error) {
	key := cacheKey(id)
	if cached, ok := r.cache.Get(key); ok {
		return cached.(*domain.Domain), nil
	}

	d, err := r.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, d, domainCacheTTL)
	return d, nil
}

// GetByName retrieves a domain by its name.
func (r *Registry) GetByName(name string) (*domain.Domain, error) {
	return r.repo.GetByName(strings.ToLower(strings.TrimSpace(name)))
}

// List returns all registered domains.
func (r *Registry) List() ([]*domain.Domain, error) {
	return r.repo.List()
}

// Verify marks a domain as verified, making it eligible for new users.
// Verification proof (DNS records) happens upstream; this records the
// outcome.
func (r *Registry) Verify(id int64) (*domain.Domain, error) {
	d, err := r.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if d.Verified {
		return d, nil
	}
	d.Verified = true
	if err := r.repo.Update(d); err != nil {
		return nil, fmt.Errorf("failed to verify domain: %w", err)
	}
	r.cache.Delete(cacheKey(id))
	r.logger.Info("domain verified", slog.Int64("domain_id", id), slog.String("name", d.Name))
	return d, nil
}

// SetMaxUsers changes a domain's seat limit. Lowering the limit below the
// current occupancy is allowed; existing users are never evicted, the domain
// simply admits no more until occupancy drops.
func (r *Registry) SetMaxUsers(id int64, maxUsers int) (*domain.Domain, error) {
	if maxUsers < 0 {
		return nil, fmt.Errorf("maxUsers must not be negative")
	}
	d, err := r.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	d.MaxUsers = maxUsers
	if err := r.repo.Update(d); err != nil {
		return nil, fmt.Errorf("failed to update domain: %w", err)
	}
	r.cache.Delete(cacheKey(id))
	r.logger.Info("domain seat limit changed", slog.Int64("domain_id", id), slog.Int("max_users", maxUsers))
	return d, nil
}

// Delete removes a domain. A domain that still holds users cannot be
// deleted.
func (r *Registry) Delete(id int64) error {
	if n := r.occupancy.UserCount(id); n > 0 {
		return fmt.Errorf("domain %d still has %d users", id, n)
	}
	if err := r.repo.Delete(id); err != nil {
		return err
	}
	r.cache.Delete(cacheKey(id))
	r.logger.Info("domain deleted", slog.Int64("domain_id", id))
	return nil
}

// RefFor builds the capacity view handed to the directory on addUser. The
// occupancy is read at this moment; the directory trusts it for exactly one
// call.
func (r *Registry) RefFor(domainID int64) (domain.DomainRef, error) {
	d, err := r.Get(domainID)
	if err != nil {
		return domain.DomainRef{}, err
	}
	return d.Ref(r.occupancy.UserCount(domainID)), nil
}

func cacheKey(id int64) string {
	return fmt.Sprintf("domain:%d", id)
}
