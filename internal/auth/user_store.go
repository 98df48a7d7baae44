package auth

import (
	"context"
	"database/sql"
	"time"
)

// UserStore defines the persistence operations for user accounts. All
// mutations are keyed by the immutable user id, never by email.
type UserStore interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmailOrFullname(ctx context.Context, email, fullname string) (bool, error)
	GetByVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*User, error)
	SetVerified(ctx context.Context, id string) error
	SetVerificationToken(ctx context.Context, id, tokenHash string, expiry time.Time) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiry time.Time) error
	SetPassword(ctx context.Context, id, passwordHash string) error
	UpdateRole(ctx context.Context, id string, role Role) error
	Delete(ctx context.Context, id string) error
	ListVerified(ctx context.Context, excludeID string) ([]*User, error)
}

// SQLUserStore implements UserStore on database/sql for sqlite and postgres.
type SQLUserStore struct {
	db     *sql.DB
	driver string
}

// NewSQLUserStore creates a user store bound to an injected handle.
func NewSQLUserStore(db *sql.DB, driver string) *SQLUserStore {
	return &SQLUserStore{db: db, driver: driver}
}

const userColumns = `id, fullname, email, password_hash, avatar, role, provider, is_verified,
	verification_token_hash, verification_token_expiry, reset_token_hash, reset_token_expiry,
	created_at, updated_at`

func (s *SQLUserStore) scanUser(row *sql.Row) (*User, error) {
	var (
		u            User
		passwordHash sql.NullString
		verifyHash   sql.NullString
		verifyExpiry sql.NullTime
		resetHash    sql.NullString
		resetExpiry  sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Fullname, &u.Email, &passwordHash, &u.Avatar, &u.Role, &u.Provider, &u.IsVerified,
		&verifyHash, &verifyExpiry, &resetHash, &resetExpiry,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Password = passwordHash.String
	u.VerificationTokenHash = verifyHash.String
	if verifyExpiry.Valid {
		u.VerificationTokenExpiry = &verifyExpiry.Time
	}
	u.ResetTokenHash = resetHash.String
	if resetExpiry.Valid {
		u.ResetTokenExpiry = &resetExpiry.Time
	}
	return &u, nil
}

func (s *SQLUserStore) Create(ctx context.Context, user *User) error {
	query := rebind(s.driver, `
		INSERT INTO users (id, fullname, email, password_hash, avatar, role, provider, is_verified,
			verification_token_hash, verification_token_expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	var passwordHash, verifyHash interface{}
	if user.Password != "" {
		passwordHash = user.Password
	}
	if user.VerificationTokenHash != "" {
		verifyHash = user.VerificationTokenHash
	}
	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Fullname, user.Email, passwordHash, user.Avatar, user.Role, user.Provider,
		user.IsVerified, verifyHash, user.VerificationTokenExpiry, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (s *SQLUserStore) GetByID(ctx context.Context, id string) (*User, error) {
	query := rebind(s.driver, `SELECT `+userColumns+` FROM users WHERE id = ?`)
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := rebind(s.driver, `SELECT `+userColumns+` FROM users WHERE email = ?`)
	return s.scanUser(s.db.QueryRowContext(ctx, query, NormalizeEmail(email)))
}

func (s *SQLUserStore) ExistsByEmailOrFullname(ctx context.Context, email, fullname string) (bool, error) {
	query := rebind(s.driver, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ? OR fullname = ?)`)
	var exists bool
	err := s.db.QueryRowContext(ctx, query, NormalizeEmail(email), fullname).Scan(&exists)
	return exists, err
}

func (s *SQLUserStore) GetByVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*User, error) {
	query := rebind(s.driver, `
		SELECT `+userColumns+` FROM users
		WHERE verification_token_hash = ? AND verification_token_expiry > ?
	`)
	return s.scanUser(s.db.QueryRowContext(ctx, query, tokenHash, now))
}

func (s *SQLUserStore) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*User, error) {
	query := rebind(s.driver, `
		SELECT `+userColumns+` FROM users
		WHERE reset_token_hash = ? AND reset_token_expiry > ?
	`)
	return s.scanUser(s.db.QueryRowContext(ctx, query, tokenHash, now))
}

func (s *SQLUserStore) SetVerified(ctx context.Context, id string) error {
	query := rebind(s.driver, `
		UPDATE users
		SET is_verified = TRUE, verification_token_hash = NULL, verification_token_expiry = NULL, updated_at = ?
		WHERE id = ?
	`)
	return s.exec(ctx, query, time.Now().UTC(), id)
}

func (s *SQLUserStore) SetVerificationToken(ctx context.Context, id, tokenHash string, expiry time.Time) error {
	query := rebind(s.driver, `
		UPDATE users SET verification_token_hash = ?, verification_token_expiry = ?, updated_at = ?
		WHERE id = ?
	`)
	return s.exec(ctx, query, tokenHash, expiry, time.Now().UTC(), id)
}

func (s *SQLUserStore) SetResetToken(ctx context.Context, id, tokenHash string, expiry time.Time) error {
	query := rebind(s.driver, `
		UPDATE users SET reset_token_hash = ?, reset_token_expiry = ?, updated_at = ?
		WHERE id = ?
	`)
	return s.exec(ctx, query, tokenHash, expiry, time.Now().UTC(), id)
}

func (s *SQLUserStore) SetPassword(ctx context.Context, id, passwordHash string) error {
	query := rebind(s.driver, `
		UPDATE users
		SET password_hash = ?, reset_token_hash = NULL, reset_token_expiry = NULL, updated_at = ?
		WHERE id = ?
	`)
	return s.exec(ctx, query, passwordHash, time.Now().UTC(), id)
}

func (s *SQLUserStore) UpdateRole(ctx context.Context, id string, role Role) error {
	query := rebind(s.driver, `UPDATE users SET role = ?, updated_at = ? WHERE id = ?`)
	return s.exec(ctx, query, role, time.Now().UTC(), id)
}

func (s *SQLUserStore) Delete(ctx context.Context, id string) error {
	query := rebind(s.driver, `DELETE FROM users WHERE id = ?`)
	return s.exec(ctx, query, id)
}

func (s *SQLUserStore) ListVerified(ctx context.Context, excludeID string) ([]*User, error) {
	query := rebind(s.driver, `
		SELECT id, fullname, email, avatar, role, created_at
		FROM users
		WHERE is_verified = TRUE AND id <> ?
		ORDER BY created_at DESC
	`)
	rows, err := s.db.QueryContext(ctx, query, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Fullname, &u.Email, &u.Avatar, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (s *SQLUserStore) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}
