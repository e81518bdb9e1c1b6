package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"busdriver/internal/models"
	"busdriver/internal/session"
)

// AuthService logs the driver in and out against the locally cached profile
type AuthService struct {
	drivers  DriverStore
	sessions SessionStore
	session  *session.Manager
	log      *zap.SugaredLogger
}

func NewAuthService(drivers DriverStore, sessions SessionStore, sm *session.Manager, log *zap.SugaredLogger) *AuthService {
	return &AuthService{drivers: drivers, sessions: sessions, session: sm, log: log}
}

// LoginOffline accepts username when it matches the stored driver id, ignoring case
func (s *AuthService) LoginOffline(ctx context.Context, username string) (*models.Driver, error) {
	s.log.Infof("🔐 Offline login attempt for: %s", username)

	current, err := s.drivers.GetCurrent(ctx)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if current == nil || !strings.EqualFold(strings.TrimSpace(username), current.ID) {
		s.log.Warnf("❌ Invalid credentials for: %s", username)
		return nil, ErrInvalidCredentials
	}

	if err := s.sessions.SetDriverID(ctx, current.ID); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	s.session.Set(current)

	s.log.Infof("✅ Logged in: %s (%s)", current.ID, current.Name)
	return current, nil
}

// Logout clears the persisted session, then the in-memory one. When the
// store write fails the driver stays logged in.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.sessions.ClearDriverID(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.session.Set(nil)
	s.log.Infof("👋 Logged out")
	return nil
}

// RestoreSession reloads the persisted login. It reports false when nobody
// was logged in or the stored profile no longer matches.
func (s *AuthService) RestoreSession(ctx context.Context) (bool, error) {
	id, err := s.sessions.GetDriverID(ctx)
	if err != nil {
		return false, fmt.Errorf("restore session: %w", err)
	}
	if id == "" {
		return false, nil
	}

	current, err := s.drivers.GetCurrent(ctx)
	if err != nil {
		return false, fmt.Errorf("restore session: %w", err)
	}
	if current == nil || current.ID != id {
		return false, nil
	}

	s.session.Set(current)
	return true, nil
}

// CurrentDriver returns the in-memory driver, or nil when logged out
func (s *AuthService) CurrentDriver() *models.Driver {
	return s.session.Current()
}
