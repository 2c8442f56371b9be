package directory

import "github.com/yourorg/mailseat/internal/domain"

// admit decides whether a domain may gain one more user. It is read-only:
// the ref is the caller's view of the domain at this instant and is never
// mutated or cached here.
func admit(ref domain.DomainRef) error {
	if !ref.Verified {
		return domain.ErrDomainUnverified
	}
	if ref.CurrentUserCount >= ref.MaxUsers {
		return domain.ErrDomainFull
	}
	return nil
}
