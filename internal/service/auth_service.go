package service

import (
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/mailseat/internal/domain"
	"github.com/yourorg/mailseat/internal/security"
	"github.com/yourorg/mailseat/internal/security/auth"
)

// AuthService handles operator account authentication. Directory seats
// (EmailUser) never authenticate; only operators of the admin API do.
type AuthService struct {
	accounts domain.AccountRepository
	tokens   *auth.TokenManager
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	accounts domain.AccountRepository,
	tokens *auth.TokenManager,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		accounts: accounts,
		tokens:   tokens,
		logger:   logger,
	}
}

const tokenLifetime = 15 * time.Minute

// RegisterResult represents registration response
type RegisterResult struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Token     string `json:"token"`
}

// LoginResult represents login response
type LoginResult struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
	TokenType string `json:"token_type"`
}

// Register creates a new operator account scoped to a domain.
func (s *AuthService) Register(email, username, password string, domainID int64, role string) (*RegisterResult, error) {
	if email == "" || password == "" || username == "" {
		return nil, errors.New("email, username, and password are required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	switch security.Role(role) {
	case security.RoleAdmin, security.RoleDomainAdmin, security.RoleMember:
	case "":
		role = string(security.RoleMember)
	default:
		return nil, errors.New("unknown role")
	}

	if existing, err := s.accounts.GetByEmail(email); err == nil && existing != nil {
		return nil, errors.New("email already registered")
	}
	if existing, err := s.accounts.GetByUsername(username); err == nil && existing != nil {
		return nil, errors.New("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, errors.New("failed to register account")
	}

	account := &domain.Account{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		DomainID:     domainID,
		Role:         role,
		IsActive:     true,
	}
	if err := s.accounts.Create(account); err != nil {
		s.logger.Error("failed to create account", slog.String("error", err.Error()))
		return nil, errors.New("failed to register account")
	}

	token, err := s.generateToken(account)
	if err != nil {
		return nil, err
	}

	return &RegisterResult{
		AccountID: account.ID,
		Email:     account.Email,
		Username:  account.Username,
		Token:     token,
	}, nil
}

// Login authenticates an operator and returns a JWT token.
func (s *AuthService) Login(email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	account, err := s.accounts.GetByEmail(email)
	if err != nil {
		s.logger.Info("login attempt with non-existent email", slog.String("email", email))
		return nil, errors.New("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("email", email))
		return nil, errors.New("invalid credentials")
	}

	token, err := s.generateToken(account)
	if err != nil {
		return nil, err
	}

	s.logger.Info("operator logged in",
		slog.String("account_id", account.ID),
		slog.Int64("domain_id", account.DomainID),
		slog.String("email", account.Email),
	)

	return &LoginResult{
		AccountID: account.ID,
		Email:     account.Email,
		Token:     token,
		ExpiresIn: int(tokenLifetime.Seconds()),
		TokenType: "Bearer",
	}, nil
}

// VerifyToken verifies and parses a JWT token.
func (s *AuthService) VerifyToken(tokenString string) (*auth.Claims, error) {
	return s.tokens.ValidateToken(tokenString)
}

func (s *AuthService) generateToken(account *domain.Account) (string, error) {
	token, err := s.tokens.GenerateToken(account.ID, account.Email, account.DomainID, account.Role, tokenLifetime)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return "", errors.New("failed to generate token")
	}
	return token, nil
}

// ChangePassword changes an operator's password.
func (s *AuthService) ChangePassword(accountID, oldPassword, newPassword string) error {
	if newPassword == "" || len(newPassword) < 8 {
		return errors.New("new password must be at least 8 characters")
	}

	account, err := s.accounts.GetByID(accountID)
	if err != nil {
		return errors.New("account not found")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(oldPassword)); err != nil {
		return errors.New("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.String("error", err.Error()))
		return errors.New("failed to change password")
	}

	account.PasswordHash = string(hash)
	if err := s.accounts.Update(account); err != nil {
		s.logger.Error("failed to update account password", slog.String("error", err.Error()))
		return errors.New("failed to change password")
	}

	s.logger.Info("operator changed password", slog.String("account_id", accountID))
	return nil
}
