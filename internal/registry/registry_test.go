package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/yourorg/mailseat/internal/domain"
)

type memDomainRepo struct {
	nextID  int64
	byID    map[int64]*domain.Domain
	updates int
}

func newMemDomainRepo() *memDomainRepo {
	return &memDomainRepo{byID: map[int64]*domain.Domain{}}
}

func (m *memDomainRepo) Create(d *domain.Domain) error {
	m.nextID++
	d.ID = m.nextID
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	copy := *d
	m.byID[d.ID] = &copy
	return nil
}

func (m *memDomainRepo) GetByID(id int64) (*domain.Domain, error) {
	if d, ok := m.byID[id]; ok {
		copy := *d
		return &copy, nil
	}
	return nil, domain.ErrDomainNotFound
}

func (m *memDomainRepo) GetByName(name string) (*domain.Domain, error) {
	for _, d := range m.byID {
		if d.Name == name {
			copy := *d
			return &copy, nil
		}
	}
	return nil, domain.ErrDomainNotFound
}

func (m *memDomainRepo) Update(d *domain.Domain) error {
	if _, ok := m.byID[d.ID]; !ok {
		return domain.ErrDomainNotFound
	}
	m.updates++
	d.UpdatedAt = time.Now()
	copy := *d
	m.byID[d.ID] = &copy
	return nil
}

func (m *memDomainRepo) Delete(id int64) error {
	if _, ok := m.byID[id]; !ok {
		return domain.ErrDomainNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memDomainRepo) List() ([]*domain.Domain, error) {
	out := []*domain.Domain{}
	for _, d := range m.byID {
		copy := *d
		out = append(out, &copy)
	}
	return out, nil
}

type fixedOccupancy map[int64]int

func (f fixedOccupancy) UserCount(domainID int64) int { return f[domainID] }

func TestCreateDomain(t *testing.T) {
	r := New(newMemDomainRepo(), fixedOccupancy{}, nil)

	d, err := r.CreateDomain("Acme.Example", 10)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if d.Name != "acme.example" {
		t.Fatalf("name not normalized: %q", d.Name)
	}
	if d.Verified {
		t.Fatalf("new domain must start unverified")
	}

	if _, err := r.CreateDomain("acme.example", 5); !errors.Is(err, domain.ErrDomainExists) {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
	if _, err := r.CreateDomain("not-a-domain", 5); err == nil {
		t.Fatalf("expected invalid name error")
	}
}

func TestRefForReflectsLiveOccupancy(t *testing.T) {
	occ := fixedOccupancy{}
	r := New(newMemDomainRepo(), occ, nil)

	d, err := r.CreateDomain("acme.example", 2)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := r.Verify(d.ID); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	ref, err := r.RefFor(d.ID)
	if err != nil {
		t.Fatalf("ref failed: %v", err)
	}
	if !ref.Verified || ref.MaxUsers != 2 || ref.CurrentUserCount != 0 {
		t.Fatalf("unexpected ref: %+v", ref)
	}

	occ[d.ID] = 2
	ref, _ = r.RefFor(d.ID)
	if ref.CurrentUserCount != 2 {
		t.Fatalf("ref did not observe live occupancy: %+v", ref)
	}
}

func TestVerifyInvalidatesCache(t *testing.T) {
	r := New(newMemDomainRepo(), fixedOccupancy{}, nil)
	d, _ := r.CreateDomain("acme.example", 2)

	// Prime the cache with the unverified record
	if _, err := r.Get(d.ID); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if _, err := r.Verify(d.ID); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	got, err := r.Get(d.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !got.Verified {
		t.Fatalf("stale cache entry served after verify")
	}
}

func TestDeleteRefusesOccupiedDomain(t *testing.T) {
	occ := fixedOccupancy{}
	r := New(newMemDomainRepo(), occ, nil)
	d, _ := r.CreateDomain("acme.example", 5)

	occ[d.ID] = 3
	if err := r.Delete(d.ID); err == nil {
		t.Fatalf("expected delete of occupied domain to fail")
	}

	occ[d.ID] = 0
	if err := r.Delete(d.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := r.Get(d.ID); !errors.Is(err, domain.ErrDomainNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestSetMaxUsersAllowsShrinkBelowOccupancy(t *testing.T) {
	occ := fixedOccupancy{}
	r := New(newMemDomainRepo(), occ, nil)
	d, _ := r.CreateDomain("acme.example", 10)
	occ[d.ID] = 8

	got, err := r.SetMaxUsers(d.ID, 5)
	if err != nil {
		t.Fatalf("shrink failed: %v", err)
	}
	if got.MaxUsers != 5 {
		t.Fatalf("limit not updated: %d", got.MaxUsers)
	}
}
