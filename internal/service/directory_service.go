package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yourorg/mailseat/internal/directory"
	"github.com/yourorg/mailseat/internal/domain"
	"github.com/yourorg/mailseat/internal/events"
	"github.com/yourorg/mailseat/internal/featureflags"
	"github.com/yourorg/mailseat/internal/observability/metrics"
)

// DomainSource supplies domain records and capacity views. The registry
// implements it; tests substitute a fake.
type DomainSource interface {
	Get(domainID int64) (*domain.Domain, error)
	RefFor(domainID int64) (domain.DomainRef, error)
}

// DirectoryService wraps the core directory with validation, logging,
// metrics and event publication. All mail-seat traffic from the transport
// layer goes through here.
type DirectoryService struct {
	dir      *directory.Directory
	domains  DomainSource
	broker   *events.Broker
	reserved map[string]struct{}
	logger   *slog.Logger
}

const maxUsernameLength = 64

// NewDirectoryService creates a directory service. reservedUsernames are
// rejected at creation and rename in every domain (role addresses like
// postmaster stay routable to the operator).
func NewDirectoryService(
	dir *directory.Directory,
	domains DomainSource,
	broker *events.Broker,
	reservedUsernames []string,
	logger *slog.Logger,
) *DirectoryService {
	if logger == nil {
		logger = slog.Default()
	}
	reserved := map[string]struct{}{}
	for _, name := range reservedUsernames {
		reserved[strings.ToLower(name)] = struct{}{}
	}
	return &DirectoryService{
		dir:      dir,
		domains:  domains,
		broker:   broker,
		reserved: reserved,
		logger:   logger,
	}
}

// CreateUser admits a new user into the domain. The capacity view is built
// fresh from the registry for this one call; nothing is cached across calls.
func (s *DirectoryService) CreateUser(ctx context.Context, domainID int64, username, displayName string) (*domain.EmailUser, error) {
	start := time.Now()

	if err := s.validateUsername(username); err != nil {
		metrics.ObserveUserCreate("invalid", time.Since(start))
		return nil, err
	}

	// Migration imports may bypass the capacity guard; uniqueness always holds.
	if featureflags.Enabled("capacity_bypass") {
		user, err := s.dir.ImportUser(domainID, username, displayName)
		s.finishCreate(ctx, user, err, start)
		return user, err
	}

	ref, err := s.domains.RefFor(domainID)
	if err != nil {
		metrics.ObserveUserCreate("error", time.Since(start))
		return nil, err
	}

	user, err := s.dir.AddUser(ref, username, displayName)
	s.finishCreate(ctx, user, err, start)
	return user, err
}

func (s *DirectoryService) finishCreate(ctx context.Context, user *domain.EmailUser, err error, start time.Time) {
	if err != nil {
		metrics.ObserveUserCreate("error", time.Since(start))
		s.logger.Warn("user create rejected", slog.String("error", err.Error()))
		return
	}
	metrics.ObserveUserCreate("success", time.Since(start))
	metrics.SetDirectorySize(s.dir.Size())
	s.logger.Info("user created",
		slog.Int64("user_id", user.ID),
		slog.Int64("domain_id", user.DomainID),
		slog.String("username", user.Username),
	)
	s.broker.Publish(events.Event{
		Type:     events.TypeUserCreated,
		DomainID: user.DomainID,
		UserID:   user.ID,
		User:     user,
	})
}

// GetUser returns the user or ErrUserNotFound.
func (s *DirectoryService) GetUser(ctx context.Context, userID int64) (*domain.EmailUser, error) {
	user, ok := s.dir.GetUser(userID)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// ListUsers returns the domain's users in creation order. The domain must
// exist in the registry.
func (s *DirectoryService) ListUsers(ctx context.Context, domainID int64) ([]*domain.EmailUser, error) {
	if _, err := s.domains.Get(domainID); err != nil {
		return nil, err
	}
	return s.dir.ListUsers(domainID), nil
}

// UpdateUser merges mutable fields into the user.
func (s *DirectoryService) UpdateUser(ctx context.Context, userID int64, update domain.UserUpdate) (*domain.EmailUser, error) {
	user, err := s.dir.UpdateUser(userID, update)
	if err != nil {
		metrics.ObserveUserOperation("update", "error")
		return nil, err
	}
	metrics.ObserveUserOperation("update", "success")
	s.broker.Publish(events.Event{
		Type:     events.TypeUserUpdated,
		DomainID: user.DomainID,
		UserID:   user.ID,
		User:     user,
	})
	return user, nil
}

// RenameUser changes a user's username after re-validating uniqueness.
func (s *DirectoryService) RenameUser(ctx context.Context, userID int64, newUsername string) (*domain.EmailUser, error) {
	if err := s.validateUsername(newUsername); err != nil {
		metrics.ObserveUserOperation("rename", "invalid")
		return nil, err
	}

	user, err := s.dir.RenameUser(userID, newUsername)
	if err != nil {
		metrics.ObserveUserOperation("rename", "error")
		return nil, err
	}
	metrics.ObserveUserOperation("rename", "success")
	s.logger.Info("user renamed",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)
	s.broker.Publish(events.Event{
		Type:     events.TypeUserRenamed,
		DomainID: user.DomainID,
		UserID:   user.ID,
		User:     user,
	})
	return user, nil
}

// DeleteUser removes the user. Deleting an id that is already gone returns
// false without error; concurrent deletes are a benign race.
func (s *DirectoryService) DeleteUser(ctx context.Context, userID int64) bool {
	user, ok := s.dir.GetUser(userID)
	if !ok {
		return false
	}
	if !s.dir.DeleteUser(userID) {
		return false
	}
	metrics.ObserveUserOperation("delete", "success")
	metrics.SetDirectorySize(s.dir.Size())
	s.logger.Info("user deleted",
		slog.Int64("user_id", userID),
		slog.Int64("domain_id", user.DomainID),
	)
	s.broker.Publish(events.Event{
		Type:     events.TypeUserDeleted,
		DomainID: user.DomainID,
		UserID:   userID,
	})
	return true
}

// UsernameTaken reports case-insensitive membership in the domain.
func (s *DirectoryService) UsernameTaken(domainID int64, username string) bool {
	return s.dir.UsernameTaken(domainID, username)
}

// UserCount returns the domain's current occupancy.
func (s *DirectoryService) UserCount(domainID int64) int {
	return s.dir.UserCount(domainID)
}

// validateUsername enforces address local-part syntax and the reserved
// name list. Uniqueness is the directory's job, not ours.
func (s *DirectoryService) validateUsername(username string) error {
	if username == "" || len(username) > maxUsernameLength {
		return domain.ErrInvalidUsername
	}
	if strings.HasPrefix(username, ".") || strings.HasSuffix(username, ".") || strings.Contains(username, "..") {
		return fmt.Errorf("%w: misplaced dot in %q", domain.ErrInvalidUsername, username)
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return fmt.Errorf("%w: character %q not allowed", domain.ErrInvalidUsername, r)
		}
	}
	if _, reserved := s.reserved[strings.ToLower(username)]; reserved {
		return fmt.Errorf("%w: %q is reserved", domain.ErrInvalidUsername, username)
	}
	return nil
}
