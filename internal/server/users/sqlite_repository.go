package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mkrutov/termgate/internal/dbx"
	"github.com/mkrutov/termgate/internal/shared"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) (*SQLiteRepository, error) {
	return &SQLiteRepository{db: db}, nil
}

// WithTx returns a copy of the repository bound to a transactional handle.
func (r *SQLiteRepository) WithTx(tx dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: tx}
}

func (r *SQLiteRepository) Create(ctx context.Context, user *User) (*User, error) {

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query :=
		`INSERT INTO users (id, username, password_hash, home_dir, api_credential, created_at)
         VALUES (?, ?, ?, ?, ?, ?)
		 `

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.UserName, user.PasswordHash, user.HomeDir, user.APICredential, user.CreatedAt)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, shared.ErrorLoginAlreadyExists
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return user, nil
}

// CreateFirstUser inserts the user in a single statement guarded by an
// emptiness check, so two concurrent bootstrap calls cannot both succeed.
func (r *SQLiteRepository) CreateFirstUser(ctx context.Context, user *User) (*User, error) {

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query :=
		`INSERT INTO users (id, username, password_hash, home_dir, api_credential, created_at)
         SELECT ?, ?, ?, ?, ?, ?
         WHERE NOT EXISTS (SELECT 1 FROM users)
		 `

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.UserName, user.PasswordHash, user.HomeDir, user.APICredential, user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	if affected == 0 {
		return nil, shared.ErrorSetupComplete
	}

	return user, nil
}

func (r *SQLiteRepository) GetByUserName(ctx context.Context, userName string) (*User, error) {
	query :=
		`SELECT id, username, password_hash, home_dir, api_credential, created_at, last_login FROM users
		 WHERE username = ?
		 `

	user := &User{}
	var lastLogin sql.NullTime
	err := r.db.QueryRowContext(ctx, query, userName).Scan(
		&user.ID, &user.UserName, &user.PasswordHash, &user.HomeDir, &user.APICredential, &user.CreatedAt, &lastLogin)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}

	return user, nil
}

func (r *SQLiteRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	query := `UPDATE users SET last_login = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if affected == 0 {
		return shared.ErrorNotFound
	}

	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return n, nil
}
