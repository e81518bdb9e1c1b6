package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"busdriver/internal/models"
)

// ErrLoginRejected means the backend refused the driver id and PIN
var ErrLoginRejected = errors.New("backend rejected driver credentials")

// StatusError is a non-2xx response from the backend
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// HTTPClient implements CatalogRemote, TripsRemote and ConnectivityChecker
// against the sync backend. It logs in lazily and caches the JWT.
type HTTPClient struct {
	baseURL    string
	driverID   func() string
	pin        string
	httpClient *http.Client
	log        *zap.SugaredLogger

	mu    sync.Mutex
	token string
}

// NewHTTPClient logs in as whichever driver driverID returns at login time
func NewHTTPClient(baseURL string, driverID func() string, pin string, log *zap.SugaredLogger) *HTTPClient {
	return &HTTPClient{
		baseURL:  baseURL,
		driverID: driverID,
		pin:      pin,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

func (c *HTTPClient) FetchDriver(ctx context.Context, driverID string) (models.DriverProfile, error) {
	var profile models.DriverProfile
	err := c.authed(ctx, http.MethodGet, "/api/catalog/drivers/"+url.PathEscape(driverID), nil, &profile)
	return profile, err
}

func (c *HTTPClient) FetchRoutes(ctx context.Context) ([]models.RouteDTO, error) {
	var routes []models.RouteDTO
	if err := c.authed(ctx, http.MethodGet, "/api/catalog/routes", nil, &routes); err != nil {
		return nil, err
	}
	return routes, nil
}

func (c *HTTPClient) UploadTrip(ctx context.Context, upload models.TripUpload) error {
	var result models.UploadResult
	if err := c.authed(ctx, http.MethodPost, "/api/trips", upload, &result); err != nil {
		return err
	}
	if result.Duplicate {
		c.log.Infof("✓ Trip %s was already on the server", upload.TripID)
	}
	return nil
}

// Connected probes GET /health with a short timeout
func (c *HTTPClient) Connected(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode/100 == 2
}

// authed sends a request with the cached token, logging in first if needed.
// A 401 drops the token and retries once with a fresh login.
func (c *HTTPClient) authed(ctx context.Context, method, path string, body, out interface{}) error {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.ensureToken(ctx)
		if err != nil {
			return err
		}

		err = c.do(ctx, method, path, token, body, out)
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusUnauthorized && attempt == 0 {
			c.log.Warnf("⚠️  Token rejected for %s %s, logging in again", method, path)
			c.clearToken()
			continue
		}
		return err
	}
	return nil
}

func (c *HTTPClient) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	driverID := c.driverID()
	var resp models.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", "", models.LoginRequest{DriverID: driverID, PIN: c.pin}, &resp)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
		return "", ErrLoginRejected
	}
	if err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}
	if !resp.OK || resp.Token == "" {
		return "", ErrLoginRejected
	}

	c.log.Infof("🔐 Logged in to backend as %s", driverID)
	c.token = resp.Token
	return c.token, nil
}

func (c *HTTPClient) clearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
