package domain

import "errors"

// Directory error kinds. Every precondition is checked before mutation, so
// these are the only failures the core reports; callers classify them with
// errors.Is and translate to transport codes.
var (
	// ErrUsernameConflict means the username is already taken in the domain
	// under case-insensitive comparison.
	ErrUsernameConflict = errors.New("username already taken in domain")

	// ErrDomainFull means the domain is at its seat limit.
	ErrDomainFull = errors.New("domain has no free seats")

	// ErrDomainUnverified means the domain may not gain new users yet.
	ErrDomainUnverified = errors.New("domain is not verified")

	// ErrUserNotFound means the referenced user id does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidUsername means the username is empty or not a valid
	// address local part.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrDomainNotFound means the referenced domain does not exist in the
	// registry.
	ErrDomainNotFound = errors.New("domain not found")

	// ErrDomainExists means the domain name is already registered.
	ErrDomainExists = errors.New("domain name already registered")
)
