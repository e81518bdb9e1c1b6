package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadAgentDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"DRIVER_DB_PATH", "REMOTE_MODE", "SYNC_PERIOD", "SIMULATE_FAILURES", "BACKEND_URL"} {
		t.Setenv(k, "")
	}

	cfg := LoadAgent()
	assert.Equal(t, "busdriver.db", cfg.DBPath)
	assert.Equal(t, RemoteFake, cfg.RemoteMode)
	assert.Equal(t, 15*time.Minute, cfg.SyncPeriod)
	assert.Equal(t, 30*time.Second, cfg.SyncBackoffInitial)
	assert.False(t, cfg.SimulateFailures)
	assert.Equal(t, "http://localhost:8080", cfg.BackendURL)
}

func TestLoadAgentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REMOTE_MODE", "HTTP")
	t.Setenv("BACKEND_URL", "https://sync.example.com/")
	t.Setenv("SIMULATE_FAILURES", "true")
	t.Setenv("SYNC_PERIOD", "90s")
	t.Setenv("TRACK_MIN_DELTA_METERS", "2.5")

	cfg := LoadAgent()
	assert.Equal(t, RemoteHTTP, cfg.RemoteMode)
	assert.Equal(t, "https://sync.example.com", cfg.BackendURL)
	assert.True(t, cfg.SimulateFailures)
	assert.Equal(t, 90*time.Second, cfg.SyncPeriod)
	assert.InDelta(t, 2.5, cfg.TrackMinDelta, 1e-9)
}

func TestLoadServerInvalidNumbersUseDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("UPLOADS_PER_MINUTE", "lots")
	t.Setenv("PORT", "")

	cfg := LoadServer()
	assert.Equal(t, 30, cfg.UploadsPerMinute)
	assert.Equal(t, "8080", cfg.Port)
}
