package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/mailseat/internal/domain"
)

// PostgresDomainRepository implements domain.DomainRepository using PostgreSQL
type PostgresDomainRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresDomainRepository creates a new mail domain repository
func NewPostgresDomainRepository(db *sql.DB, logger *slog.Logger) *PostgresDomainRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDomainRepository{db: db, logger: logger}
}

// Create creates a new mail domain
func (r *PostgresDomainRepository) Create(d *domain.Domain) error {
	query := `
		INSERT INTO mail_domains (name, verified, max_users)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(query, d.Name, d.Verified, d.MaxUsers).Scan(
		&d.ID,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
}

// GetByID retrieves a mail domain by ID
func (r *PostgresDomainRepository) GetByID(id int64) (*domain.Domain, error) {
	d := &domain.Domain{}
	query := `
		SELECT id, name, verified, max_users, created_at, updated_at
		FROM mail_domains
		WHERE id = $1
	`
	err := r.db.QueryRow(query, id).Scan(
		&d.ID, &d.Name, &d.Verified, &d.MaxUsers, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDomainNotFound
		}
		return nil, fmt.Errorf("failed to get domain: %w", err)
	}
	return d, nil
}

// GetByName retrieves a mail domain by its DNS name
func (r *PostgresDomainRepository) GetByName(name string) (*domain.Domain, error) {
	d := &domain.Domain{}
	query := `
		SELECT id, name, verified, max_users, created_at, updated_at
		FROM mail_domains
		WHERE name = $1
	`
	err := r.db.QueryRow(query, name).Scan(
		&d.ID, &d.Name, &d.Verified, &d.MaxUsers, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDomainNotFound
		}
		return nil, fmt.Errorf("failed to get domain by name: %w", err)
	}
	return d, nil
}

// Update updates an existing mail domain
func (r *PostgresDomainRepository) Update(d *domain.Domain) error {
	query := `
		UPDATE mail_domains
		SET name = $1, verified = $2, max_users = $3
		WHERE id = $4
		RETURNING updated_at
	`
	err := r.db.QueryRow(query, d.Name, d.Verified, d.MaxUsers, d.ID).Scan(&d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrDomainNotFound
		}
		return fmt.Errorf("failed to update domain: %w", err)
	}
	return nil
}

// Delete removes a mail domain
func (r *PostgresDomainRepository) Delete(id int64) error {
	query := `
		DELETE FROM mail_domains WHERE id = $1
	`
	res, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete domain: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrDomainNotFound
	}
	return nil
}

// List returns all mail domains
func (r *PostgresDomainRepository) List() ([]*domain.Domain, error) {
	query := `
		SELECT id, name, verified, max_users, created_at, updated_at
		FROM mail_domains
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("failed to list domains", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer rows.Close()

	var domains []*domain.Domain
	for rows.Next() {
		d := &domain.Domain{}
		if err := rows.Scan(&d.ID, &d.Name, &d.Verified, &d.MaxUsers, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate domains: %w", err)
	}

	return domains, nil
}
