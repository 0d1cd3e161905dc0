package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
camera:
  url: "http://cam.local/snap.jpg"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "none", cfg.Camera.AuthType)
	assert.Equal(t, "./pictures", cfg.Capture.SavePath)
	assert.Equal(t, 10, cfg.Capture.IntervalSeconds)
	assert.Equal(t, "06:00", cfg.Capture.ActiveStart)
	assert.Equal(t, "22:00", cfg.Capture.ActiveEnd)
	assert.Equal(t, "Europe/Berlin", cfg.Capture.Timezone)
	assert.False(t, cfg.Paused)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
instance_name: "Balcony"
server:
  addr: ":9090"
camera:
  url: "http://cam.local/snap.jpg"
  auth_type: basic
  username: cam
  password: secret
capture:
  save_path: "/data/pictures"
  interval_seconds: 30
  active_start: "05:30"
  active_end: "21:15"
  active_days: [Mon, Wed, Fri]
  use_solar: true
  latitude: 48.137
  longitude: 11.575
  timezone: "Europe/Berlin"
paused: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Balcony", cfg.InstanceName)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "basic", cfg.Camera.AuthType)
	assert.Equal(t, 30, cfg.Capture.IntervalSeconds)
	assert.Equal(t, []string{"Mon", "Wed", "Fri"}, cfg.Capture.ActiveDays)
	assert.True(t, cfg.Capture.UseSolar)
	assert.True(t, cfg.Paused)
}

func TestLoadRejectsBadAuthType(t *testing.T) {
	path := writeConfig(t, `
camera:
  url: "http://cam.local/snap.jpg"
  auth_type: ntlm
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth_type")
}

func TestLoadRejectsAuthWithoutUsername(t *testing.T) {
	path := writeConfig(t, `
camera:
  url: "http://cam.local/snap.jpg"
  auth_type: digest
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username")
}

func TestLoadRejectsBadWeekday(t *testing.T) {
	path := writeConfig(t, `
camera:
  url: "http://cam.local/snap.jpg"
capture:
  active_days: [Mon, Lunes]
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weekday")
}

func TestLoadRejectsNonHTTPURL(t *testing.T) {
	path := writeConfig(t, `
camera:
  url: "rtsp://cam.local/stream"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadAcceptsMalformedWindowTimes(t *testing.T) {
	// Bad window strings must not prevent startup; they degrade to
	// always-active at evaluation time.
	path := writeConfig(t, `
camera:
  url: "http://cam.local/snap.jpg"
capture:
  active_start: "early"
  active_end: "late"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "early", cfg.Capture.ActiveStart)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := &Config{
		Camera:  CameraConfig{URL: "http://cam.local/snap.jpg", AuthType: "none"},
		Capture: CaptureConfig{IntervalSeconds: 42, ActiveDays: []string{"Sat", "Sun"}},
		Paused:  true,
	}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Capture.IntervalSeconds)
	assert.Equal(t, []string{"Sat", "Sun"}, loaded.Capture.ActiveDays)
	assert.True(t, loaded.Paused)
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := &Config{
		Capture: CaptureConfig{ActiveDays: []string{"Mon", "Tue"}},
	}

	clone := cfg.Clone()
	clone.Capture.ActiveDays[0] = "Sun"
	clone.Capture.IntervalSeconds = 99

	assert.Equal(t, "Mon", cfg.Capture.ActiveDays[0])
	assert.Zero(t, cfg.Capture.IntervalSeconds)
}
