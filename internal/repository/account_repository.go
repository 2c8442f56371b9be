package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/mailseat/internal/domain"
)

// PostgresAccountRepository implements domain.AccountRepository using PostgreSQL
type PostgresAccountRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresAccountRepository creates a new account repository
func NewPostgresAccountRepository(db *sql.DB, logger *slog.Logger) *PostgresAccountRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAccountRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new operator account
func (r *PostgresAccountRepository) Create(account *domain.Account) error {
	query := `
		INSERT INTO accounts (email, username, password_hash, domain_id, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		account.Email,
		account.Username,
		account.PasswordHash,
		account.DomainID,
		account.Role,
		account.IsActive,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create account",
			slog.String("email", account.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by ID
func (r *PostgresAccountRepository) GetByID(id string) (*domain.Account, error) {
	account := &domain.Account{}

	query := `
		SELECT id, email, username, password_hash, domain_id, role, created_at, updated_at, is_active
		FROM accounts
		WHERE id = $1
	`

	err := r.db.QueryRow(query, id).Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&account.PasswordHash,
		&account.DomainID,
		&account.Role,
		&account.CreatedAt,
		&account.UpdatedAt,
		&account.IsActive,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account not found")
		}
		r.logger.Error("failed to get account by id",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// GetByEmail retrieves an active account by email
func (r *PostgresAccountRepository) GetByEmail(email string) (*domain.Account, error) {
	account := &domain.Account{}

	query := `
		SELECT id, email, username, password_hash, domain_id, role, created_at, updated_at, is_active
		FROM accounts
		WHERE email = $1 AND is_active = true
	`

	err := r.db.QueryRow(query, email).Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&account.PasswordHash,
		&account.DomainID,
		&account.Role,
		&account.CreatedAt,
		&account.UpdatedAt,
		&account.IsActive,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account not found")
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	return account, nil
}

// GetByUsername retrieves an active account by username
func (r *PostgresAccountRepository) GetByUsername(username string) (*domain.Account, error) {
	account := &domain.Account{}

	query := `
		SELECT id, email, username, password_hash, domain_id, role, created_at, updated_at, is_active
		FROM accounts
		WHERE username = $1 AND is_active = true
	`

	err := r.db.QueryRow(query, username).Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&account.PasswordHash,
		&account.DomainID,
		&account.Role,
		&account.CreatedAt,
		&account.UpdatedAt,
		&account.IsActive,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account not found")
		}
		return nil, fmt.Errorf("failed to get account by username: %w", err)
	}

	return account, nil
}

// Update updates an existing account
func (r *PostgresAccountRepository) Update(account *domain.Account) error {
	query := `
		UPDATE accounts
		SET email = $1, username = $2, password_hash = $3, role = $4, is_active = $5
		WHERE id = $6
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		account.Email,
		account.Username,
		account.PasswordHash,
		account.Role,
		account.IsActive,
		account.ID,
	).Scan(&account.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("account not found")
		}
		return fmt.Errorf("failed to update account: %w", err)
	}

	return nil
}

// Delete soft-deletes an account (sets is_active to false)
func (r *PostgresAccountRepository) Delete(id string) error {
	query := `
		UPDATE accounts
		SET is_active = false
		WHERE id = $1
	`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("account not found")
	}

	return nil
}

// ListByDomain lists all active accounts scoped to a domain
func (r *PostgresAccountRepository) ListByDomain(domainID int64) ([]*domain.Account, error) {
	query := `
		SELECT id, email, username, password_hash, domain_id, role, created_at, updated_at, is_active
		FROM accounts
		WHERE domain_id = $1 AND is_active = true
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, domainID)
	if err != nil {
		r.logger.Error("failed to list accounts by domain",
			slog.Int64("domain_id", domainID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account := &domain.Account{}
		err := rows.Scan(
			&account.ID,
			&account.Email,
			&account.Username,
			&account.PasswordHash,
			&account.DomainID,
			&account.Role,
			&account.CreatedAt,
			&account.UpdatedAt,
			&account.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}
