package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"busdriver/internal/middleware"
	"busdriver/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

var errStoreDown = errors.New("store down")

type fakeStore struct {
	mu      sync.Mutex
	drivers map[string]*models.BackendDriver
	routes  []models.RouteDTO
	uploads map[string]models.TripUpload
	tokens  map[string]string // token -> driver id
	deleted []string
	failAll bool
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	require.NoError(t, err)

	return &fakeStore{
		drivers: map[string]*models.BackendDriver{
			"driver-001":     {ID: "driver-001", Name: "Alex Driver", PinHash: string(hash), Role: middleware.RoleDriver},
			"dispatcher-001": {ID: "dispatcher-001", Name: "Dana Dispatcher", PinHash: string(hash), Role: middleware.RoleDispatcher},
		},
		routes:  []models.RouteDTO{{ID: "route-101", Name: "City Center Loop", UpdatedAt: 1}},
		uploads: map[string]models.TripUpload{},
		tokens:  map[string]string{},
	}
}

func (s *fakeStore) GetDriver(_ context.Context, id string) (*models.BackendDriver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, errStoreDown
	}
	return s.drivers[id], nil
}

func (s *fakeStore) ListRoutes(context.Context) ([]models.RouteDTO, error) {
	if s.failAll {
		return nil, errStoreDown
	}
	return s.routes, nil
}

func (s *fakeStore) SaveTripUpload(_ context.Context, up models.TripUpload, _ int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return false, errStoreDown
	}
	if _, ok := s.uploads[up.TripID]; ok {
		return true, nil
	}
	s.uploads[up.TripID] = up
	return false, nil
}

func (s *fakeStore) ListRecentUploads(_ context.Context, limit int) ([]models.UploadedTripSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.UploadedTripSummary{}
	for _, up := range s.uploads {
		if len(out) == limit {
			break
		}
		out = append(out, models.UploadedTripSummary{TripID: up.TripID, DriverID: up.DriverID, PointCount: len(up.Points)})
	}
	return out, nil
}

func (s *fakeStore) SaveFCMToken(_ context.Context, driverID, token, _ string, _ int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = driverID
	return nil
}

func (s *fakeStore) GetFCMTokens(_ context.Context, driverID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for tok, id := range s.tokens {
		if id == driverID {
			out = append(out, tok)
		}
	}
	return out, nil
}

func (s *fakeStore) DeleteFCMTokens(_ context.Context, tokens []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tok := range tokens {
		delete(s.tokens, tok)
		s.deleted = append(s.deleted, tok)
	}
	return nil
}

func (s *fakeStore) deletedTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

type recordingHub struct {
	mu     sync.Mutex
	events []models.TripSyncedEvent
}

func (h *recordingHub) BroadcastTripSynced(e models.TripSyncedEvent) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return 1
}

type fakeNotifier struct {
	stale []string
	sent  chan models.TripSyncedEvent
}

func (n *fakeNotifier) NotifyTripSynced(_ context.Context, _ []string, event models.TripSyncedEvent) ([]string, error) {
	n.sent <- event
	return n.stale, nil
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

// authed returns req carrying claims for driverID with role
func authed(req *http.Request, driverID, role string) *http.Request {
	return req.WithContext(middleware.WithDriver(req.Context(), middleware.DriverClaims{DriverID: driverID, Role: role}))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}
