package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrTokenHashCollision indicates two live sessions would share a refresh
// token hash. Treated as a fatal token-generation error, never retried.
var ErrTokenHashCollision = errors.New("refresh token hash collision")

// SessionStore defines the persistence operations of the session registry.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	GetByUserAndFingerprint(ctx context.Context, userID, fingerprint string) (*Session, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	GetByID(ctx context.Context, id string) (*Session, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	UpdateToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ListByUser(ctx context.Context, userID string) ([]*Session, error)
	LatestByUser(ctx context.Context, userID string) (*Session, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteAllForUser(ctx context.Context, userID string) error
	DeleteAllExcept(ctx context.Context, userID, keepTokenHash string) error
	DeleteExpired(ctx context.Context, now time.Time) error
}

// SQLSessionStore implements SessionStore on database/sql.
type SQLSessionStore struct {
	db     *sql.DB
	driver string
}

// NewSQLSessionStore creates a session store bound to an injected handle.
func NewSQLSessionStore(db *sql.DB, driver string) *SQLSessionStore {
	return &SQLSessionStore{db: db, driver: driver}
}

const sessionColumns = `id, user_id, refresh_token_hash, fingerprint, ip_address, keep_signed_in,
	expires_at, created_at, updated_at`

func scanSession(row *sql.Row) (*Session, error) {
	var s Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.RefreshTokenHash, &s.Fingerprint, &s.IPAddress, &s.KeepSignedIn,
		&s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *SQLSessionStore) Create(ctx context.Context, session *Session) error {
	query := rebind(s.driver, `
		INSERT INTO sessions (id, user_id, refresh_token_hash, fingerprint, ip_address, keep_signed_in,
			expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.RefreshTokenHash, session.Fingerprint, session.IPAddress,
		session.KeepSignedIn, session.ExpiresAt, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTokenHashCollision
		}
		return err
	}
	return nil
}

func (s *SQLSessionStore) GetByUserAndFingerprint(ctx context.Context, userID, fingerprint string) (*Session, error) {
	query := rebind(s.driver, `SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? AND fingerprint = ?`)
	return scanSession(s.db.QueryRowContext(ctx, query, userID, fingerprint))
}

func (s *SQLSessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error) {
	query := rebind(s.driver, `SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_hash = ?`)
	return scanSession(s.db.QueryRowContext(ctx, query, tokenHash))
}

func (s *SQLSessionStore) GetByID(ctx context.Context, id string) (*Session, error) {
	query := rebind(s.driver, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`)
	return scanSession(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLSessionStore) CountByUser(ctx context.Context, userID string) (int, error) {
	query := rebind(s.driver, `SELECT COUNT(*) FROM sessions WHERE user_id = ?`)
	var count int
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&count)
	return count, err
}

// UpdateToken rotates a session's refresh token hash and extends its expiry.
func (s *SQLSessionStore) UpdateToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	query := rebind(s.driver, `
		UPDATE sessions SET refresh_token_hash = ?, expires_at = ?, updated_at = ?
		WHERE id = ?
	`)
	result, err := s.db.ExecContext(ctx, query, tokenHash, expiresAt, time.Now().UTC(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTokenHashCollision
		}
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SQLSessionStore) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	query := rebind(s.driver, `
		SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? ORDER BY created_at DESC
	`)
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		err := rows.Scan(
			&sess.ID, &sess.UserID, &sess.RefreshTokenHash, &sess.Fingerprint, &sess.IPAddress,
			&sess.KeepSignedIn, &sess.ExpiresAt, &sess.CreatedAt, &sess.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

func (s *SQLSessionStore) LatestByUser(ctx context.Context, userID string) (*Session, error) {
	query := rebind(s.driver, `
		SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? ORDER BY updated_at DESC LIMIT 1
	`)
	return scanSession(s.db.QueryRowContext(ctx, query, userID))
}

func (s *SQLSessionStore) DeleteByID(ctx context.Context, id string) error {
	query := rebind(s.driver, `DELETE FROM sessions WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SQLSessionStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	query := rebind(s.driver, `DELETE FROM sessions WHERE refresh_token_hash = ?`)
	result, err := s.db.ExecContext(ctx, query, tokenHash)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SQLSessionStore) DeleteAllForUser(ctx context.Context, userID string) error {
	query := rebind(s.driver, `DELETE FROM sessions WHERE user_id = ?`)
	_, err := s.db.ExecContext(ctx, query, userID)
	return err
}

// DeleteAllExcept removes every session for the user except the one holding
// keepTokenHash (the caller's current session).
func (s *SQLSessionStore) DeleteAllExcept(ctx context.Context, userID, keepTokenHash string) error {
	query := rebind(s.driver, `DELETE FROM sessions WHERE user_id = ? AND refresh_token_hash <> ?`)
	_, err := s.db.ExecContext(ctx, query, userID, keepTokenHash)
	return err
}

func (s *SQLSessionStore) DeleteExpired(ctx context.Context, now time.Time) error {
	query := rebind(s.driver, `DELETE FROM sessions WHERE expires_at < ?`)
	_, err := s.db.ExecContext(ctx, query, now)
	return err
}
