package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/flowhub/internal/domain"
)

// PostgresCredentialRepository implements domain.CredentialRepository using PostgreSQL
type PostgresCredentialRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCredentialRepository creates a new credential repository
func NewPostgresCredentialRepository(db *sql.DB, logger *slog.Logger) *PostgresCredentialRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCredentialRepository{
		db:     db,
		logger: logger,
	}
}

// FindByIDAndType retrieves a credential by (id, type)
func (r *PostgresCredentialRepository) FindByIDAndType(ctx context.Context, id, credType string) (*domain.Credential, error) {
	cred := &domain.Credential{}

	query := `
		SELECT id, name, type, data, created_at
		FROM credentials
		WHERE id = $1 AND type = $2
	`

	err := r.db.QueryRowContext(ctx, query, id, credType).Scan(
		&cred.ID,
		&cred.Name,
		&cred.Type,
		&cred.Data,
		&cred.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCredentialNotFound
		}
		r.logger.Error("failed to get credential by id",
			slog.String("id", id),
			slog.String("type", credType),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return cred, nil
}

// FindManyByNameAndType retrieves all credentials matching (name, type)
func (r *PostgresCredentialRepository) FindManyByNameAndType(ctx context.Context, name, credType string) ([]*domain.Credential, error) {
	query := `
		SELECT id, name, type, data, created_at
		FROM credentials
		WHERE name = $1 AND type = $2
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, name, credType)
	if err != nil {
		return nil, fmt.Errorf("failed to find credentials: %w", err)
	}
	defer rows.Close()

	var creds []*domain.Credential
	for rows.Next() {
		cred := &domain.Credential{}
		if err := rows.Scan(&cred.ID, &cred.Name, &cred.Type, &cred.Data, &cred.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}
