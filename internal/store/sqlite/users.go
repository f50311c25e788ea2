package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ladleapp/ladle-server/internal/domain"
	"github.com/ladleapp/ladle-server/internal/store"
)

// userColumns is the ordered list of columns selected in user queries.
// Must match the scan order in scanUser.
const userColumns = `id, email, password_hash, name, created_at, updated_at, last_login_at`

// scanUser scans a sql.Row (or sql.Rows via its Scan method) into a domain.User.
func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var u domain.User

	var (
		createdAt   string
		updatedAt   string
		lastLoginAt sql.NullString
	)

	err := scanner.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&createdAt,
		&updatedAt,
		&lastLoginAt,
	)
	if err != nil {
		return nil, err
	}

	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	if lastLoginAt.Valid && lastLoginAt.String != "" {
		u.LastLoginAt, err = parseTime(lastLoginAt.String)
		if err != nil {
			return nil, err
		}
	}

	return &u, nil
}

// CreateUser inserts a new user into the database.
// Returns store.ErrAlreadyExists if the email is already registered
// (case-insensitive).
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	var lastLogin sql.NullString
	if !user.LastLoginAt.IsZero() {
		lastLogin = sql.NullString{String: formatTime(user.LastLoginAt), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, name, created_at, updated_at, last_login_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		strings.TrimSpace(user.Email),
		user.PasswordHash,
		user.Name,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
		lastLogin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetUser retrieves a user by ID.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively.
// Returns store.ErrNotFound if no user has that email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower(?)`,
		strings.TrimSpace(email))

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser persists changes to an existing user.
// Returns store.ErrNotFound if the user does not exist, or
// store.ErrAlreadyExists if the new email collides with another account.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	var lastLogin sql.NullString
	if !user.LastLoginAt.IsZero() {
		lastLogin = sql.NullString{String: formatTime(user.LastLoginAt), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = ?, password_hash = ?, name = ?, updated_at = ?, last_login_at = ?
		WHERE id = ?`,
		strings.TrimSpace(user.Email),
		user.PasswordHash,
		user.Name,
		formatTime(user.UpdatedAt),
		lastLogin,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}
