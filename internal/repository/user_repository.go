package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/yourorg/flowhub/internal/domain"
)

const userColumns = `id, email, first_name, last_name, password, role, pending, disabled,
		mfa_secret, mfa_recovery_codes, settings, created_at, updated_at`

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserRepository{
		db:     db,
		logger: logger,
	}
}

// FindByID retrieves a user by id, including auth identities
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		r.logger.Error("failed to get user by id",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := r.loadIdentities(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves a user by email
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if err := r.loadIdentities(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// FindManyByEmail retrieves all users whose email is in the given list
func (r *PostgresUserRepository) FindManyByEmail(ctx context.Context, emails []string) ([]*domain.User, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = ANY($1)`, userColumns)

	rows, err := r.db.QueryContext(ctx, query, pq.Array(emails))
	if err != nil {
		r.logger.Error("failed to find users by email",
			slog.Int("count", len(emails)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// List returns all users ordered by creation time
func (r *PostgresUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY created_at DESC`, userColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// Save persists all mutable fields of an existing user
func (r *PostgresUserRepository) Save(ctx context.Context, user *domain.User) error {
	settings, err := marshalSettings(user.Settings)
	if err != nil {
		return err
	}
	recoveryCodes, err := json.Marshal(user.MFARecoveryCodes)
	if err != nil {
		return fmt.Errorf("failed to encode recovery codes: %w", err)
	}

	query := `
		UPDATE users
		SET email = $1, first_name = $2, last_name = $3, password = $4, role = $5,
			pending = $6, disabled = $7, mfa_secret = $8, mfa_recovery_codes = $9,
			settings = $10, updated_at = now()
		WHERE id = $11
		RETURNING updated_at
	`

	err = r.db.QueryRowContext(ctx, query,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Password,
		string(user.Role),
		user.Pending,
		user.Disabled,
		user.MFASecret,
		recoveryCodes,
		settings,
		user.ID,
	).Scan(&user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

// InTransaction runs fn inside one database transaction. Any error from fn
// rolls every operation on the passed UserTx back.
func (r *PostgresUserRepository) InTransaction(ctx context.Context, fn func(ctx context.Context, tx domain.UserTx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, &userTx{tx: sqlTx, logger: r.logger}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			r.logger.Error("transaction rollback failed", slog.String("error", rbErr.Error()))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) loadIdentities(ctx context.Context, user *domain.User) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT provider_id, provider_type FROM auth_identities WHERE user_id = $1`,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load auth identities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var identity domain.AuthIdentity
		if err := rows.Scan(&identity.ProviderID, &identity.ProviderType); err != nil {
			return fmt.Errorf("failed to scan auth identity: %w", err)
		}
		user.AuthIdentities = append(user.AuthIdentities, identity)
	}
	return rows.Err()
}

// userTx implements domain.UserTx over one *sql.Tx
type userTx struct {
	tx     *sql.Tx
	logger *slog.Logger
}

// CreateUserWithProject creates a pending user shell plus its personal
// project and relation, all on the enclosing transaction.
func (t *userTx) CreateUserWithProject(ctx context.Context, email string, role domain.Role) (*domain.User, error) {
	user := &domain.User{
		ID:      uuid.NewString(),
		Email:   email,
		Role:    role,
		Pending: true,
	}

	query := `
		INSERT INTO users (id, email, role, pending)
		VALUES ($1, $2, $3, true)
		RETURNING created_at, updated_at
	`
	err := t.tx.QueryRowContext(ctx, query, user.ID, user.Email, string(user.Role)).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		t.logger.Error("failed to create user shell",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	projectID := uuid.NewString()
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO projects (id, name, type) VALUES ($1, $2, 'personal')`,
		projectID, email,
	); err != nil {
		return nil, fmt.Errorf("failed to create personal project: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO project_relations (project_id, user_id, role) VALUES ($1, $2, 'project:personalOwner')`,
		projectID, user.ID,
	); err != nil {
		return nil, fmt.Errorf("failed to link personal project: %w", err)
	}

	return user, nil
}

// UpdateUserRole changes a user's global role
func (t *userTx) UpdateUserRole(ctx context.Context, userID string, role domain.Role) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = now() WHERE id = $2`,
		string(role), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// RemoveOwnerOnlyScopesFromAPIKeys strips owner-only scopes from every API
// key the user holds. Runs on the enclosing transaction so a failure here
// rolls the surrounding role change back too.
func (t *userTx) RemoveOwnerOnlyScopesFromAPIKeys(ctx context.Context, userID string) error {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, scopes FROM api_keys WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to load api keys: %w", err)
	}

	type keyScopes struct {
		id     string
		scopes []string
	}
	var keys []keyScopes
	for rows.Next() {
		var k keyScopes
		var raw []byte
		if err := rows.Scan(&k.id, &raw); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan api key: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &k.scopes); err != nil {
				rows.Close()
				return fmt.Errorf("failed to decode api key scopes: %w", err)
			}
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, k := range keys {
		kept := slices.DeleteFunc(slices.Clone(k.scopes), func(scope string) bool {
			return slices.Contains(domain.OwnerOnlyScopes, scope)
		})
		if len(kept) == len(k.scopes) {
			continue
		}
		encoded, err := json.Marshal(kept)
		if err != nil {
			return fmt.Errorf("failed to encode api key scopes: %w", err)
		}
		if _, err := t.tx.ExecContext(ctx,
			`UPDATE api_keys SET scopes = $1 WHERE id = $2`,
			encoded, k.id,
		); err != nil {
			return fmt.Errorf("failed to update api key scopes: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var firstName, lastName, password, mfaSecret sql.NullString
	var role string
	var recoveryCodes, settings []byte

	err := row.Scan(
		&user.ID,
		&user.Email,
		&firstName,
		&lastName,
		&password,
		&role,
		&user.Pending,
		&user.Disabled,
		&mfaSecret,
		&recoveryCodes,
		&settings,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.Password = password.String
	user.MFASecret = mfaSecret.String
	user.Role = domain.Role(role)

	if len(recoveryCodes) > 0 {
		if err := json.Unmarshal(recoveryCodes, &user.MFARecoveryCodes); err != nil {
			return nil, fmt.Errorf("failed to decode recovery codes: %w", err)
		}
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &user.Settings); err != nil {
			return nil, fmt.Errorf("failed to decode settings: %w", err)
		}
	}
	return user, nil
}

func collectUsers(rows *sql.Rows) ([]*domain.User, error) {
	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func marshalSettings(settings map[string]any) ([]byte, error) {
	if settings == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return encoded, nil
}
