package security

import (
	"fmt"
	"log/slog"
)

// Role represents an operator role
type Role string

const (
	RoleAdmin       Role = "admin"        // platform operator, all domains
	RoleDomainAdmin Role = "domain_admin" // administers one domain
	RoleMember      Role = "member"       // read-only directory access
)

// Permission represents an action permission
type Permission string

const (
	PermManageUsers     Permission = "manage_users"
	PermReadUsers       Permission = "read_users"
	PermManageDomain    Permission = "manage_domain"
	PermManageAccounts  Permission = "manage_accounts"
	PermTriggerSnapshot Permission = "trigger_snapshot"
	PermViewAuditLog    Permission = "view_audit_log"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermManageUsers,
		PermReadUsers,
		PermManageDomain,
		PermManageAccounts,
		PermTriggerSnapshot,
		PermViewAuditLog,
	},
	RoleDomainAdmin: {
		PermManageUsers,
		PermReadUsers,
		PermManageAccounts,
		PermViewAuditLog,
	},
	RoleMember: {
		PermReadUsers,
	},
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{logger: logger}
}

// ValidatePermission checks whether a role carries a permission
func (s *AuthorizationService) ValidatePermission(role Role, perm Permission) error {
	for _, p := range RolePermissions[role] {
		if p == perm {
			return nil
		}
	}
	s.logger.Warn("permission denied",
		slog.String("role", string(role)),
		slog.String("permission", string(perm)),
	)
	return fmt.Errorf("role %s lacks permission %s", role, perm)
}

// ValidateDomainScope checks that a caller may act on the given domain.
// Platform admins may act anywhere; everyone else only on their own domain.
func (s *AuthorizationService) ValidateDomainScope(role Role, callerDomainID, targetDomainID int64) error {
	if role == RoleAdmin {
		return nil
	}
	if callerDomainID != targetDomainID {
		s.logger.Warn("cross-domain access denied",
			slog.String("role", string(role)),
			slog.Int64("caller_domain", callerDomainID),
			slog.Int64("target_domain", targetDomainID),
		)
		return fmt.Errorf("domain %d is out of scope for this caller", targetDomainID)
	}
	return nil
}
