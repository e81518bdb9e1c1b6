package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"busdriver/internal/models"
)

// SessionStore persists which driver is logged in. The row is kept on
// logout with a NULL driver id.
type SessionStore struct {
	db *sqlx.DB
}

func NewSessionStore(db *sqlx.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) SetDriverID(ctx context.Context, driverID string) error {
	return s.put(ctx, &driverID)
}

func (s *SessionStore) ClearDriverID(ctx context.Context) error {
	return s.put(ctx, nil)
}

// GetDriverID returns the logged in driver id, or "" when logged out
func (s *SessionStore) GetDriverID(ctx context.Context) (string, error) {
	var sess models.Session
	err := s.db.GetContext(ctx, &sess, `SELECT session_key, driver_id FROM session WHERE session_key = ?`, models.CurrentSessionKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	if sess.DriverID == nil {
		return "", nil
	}
	return *sess.DriverID, nil
}

func (s *SessionStore) put(ctx context.Context, driverID *string) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO session (session_key, driver_id)
		VALUES (:session_key, :driver_id)
		ON CONFLICT(session_key) DO UPDATE SET driver_id = excluded.driver_id
	`, models.Session{SessionKey: models.CurrentSessionKey, DriverID: driverID})
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}
