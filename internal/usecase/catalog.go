package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"busdriver/internal/models"
	"busdriver/internal/remote"
	"busdriver/internal/session"
)

// CatalogService refreshes the driver profile and routes from the catalog remote
type CatalogService struct {
	remote  remote.CatalogRemote
	drivers DriverStore
	routes  RouteStore
	session *session.Manager
	log     *zap.SugaredLogger
	now     func() int64
}

func NewCatalogService(rc remote.CatalogRemote, drivers DriverStore, routes RouteStore, sm *session.Manager, log *zap.SugaredLogger) *CatalogService {
	return &CatalogService{remote: rc, drivers: drivers, routes: routes, session: sm, log: log, now: models.NowMillis}
}

// Refresh pulls the logged in driver's profile and the route list. It
// reports whether anything was stored and fails only when nothing was.
func (s *CatalogService) Refresh(ctx context.Context) (bool, error) {
	var errs []error
	refreshed := false

	if driver := s.session.Current(); driver != nil {
		if err := s.refreshDriver(ctx, driver.ID); err != nil {
			s.log.Warnf("⚠️  Driver profile refresh failed: %v", err)
			errs = append(errs, err)
		} else {
			refreshed = true
		}
	}

	if n, err := s.refreshRoutes(ctx); err != nil {
		s.log.Warnf("⚠️  Route refresh failed: %v", err)
		errs = append(errs, err)
	} else {
		s.log.Infof("🔄 Refreshed %d routes", n)
		refreshed = true
	}

	if !refreshed {
		return false, fmt.Errorf("catalog refresh: %w", errors.Join(errs...))
	}
	return true, nil
}

// Routes returns the locally stored catalog
func (s *CatalogService) Routes(ctx context.Context) ([]models.Route, error) {
	return s.routes.GetRoutes(ctx)
}

func (s *CatalogService) refreshDriver(ctx context.Context, driverID string) error {
	profile, err := s.remote.FetchDriver(ctx, driverID)
	if err != nil {
		return err
	}
	// Upsert keeps a single driver row, so a foreign profile would orphan the session
	if profile.ID != driverID {
		return fmt.Errorf("%w: asked for %s, got %s", ErrProfileMismatch, driverID, profile.ID)
	}

	d := models.Driver{ID: profile.ID, Name: profile.Name, LastSyncedAt: models.Int64Ptr(s.now())}
	if err := s.drivers.Upsert(ctx, d); err != nil {
		return err
	}
	s.session.Set(&d)
	return nil
}

func (s *CatalogService) refreshRoutes(ctx context.Context) (int, error) {
	dtos, err := s.remote.FetchRoutes(ctx)
	if err != nil {
		return 0, err
	}

	routes := make([]models.Route, len(dtos))
	for i, dto := range dtos {
		routes[i] = dto.ToRoute()
	}
	if err := s.routes.ReplaceAll(ctx, routes); err != nil {
		return 0, err
	}
	return len(routes), nil
}
