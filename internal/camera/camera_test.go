package camera

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronocam/internal/config"
)

func TestFetchStoresSnapshot(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0, 'j', 'p', 'e', 'g'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write(payload)
	}))
	defer srv.Close()

	c := NewClient(config.CameraConfig{URL: srv.URL, AuthType: "none"})
	saveDir := t.TempDir()

	snap, err := c.Fetch(context.Background(), saveDir)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^snapshot_\d{8}_\d{6}\.jpg$`), snap.Filename)
	assert.Equal(t, filepath.Join(saveDir, snap.Filename), snap.Path)
	assert.NotEmpty(t, snap.Timestamp)
	assert.NotEmpty(t, snap.TimestampFull)

	data, err := os.ReadFile(snap.Path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestFetchNon200IsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(config.CameraConfig{URL: srv.URL, AuthType: "none"})

	_, err := c.Fetch(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchNoURL(t *testing.T) {
	c := NewClient(config.CameraConfig{AuthType: "none"})

	_, err := c.Fetch(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoURL)
}

func TestFetchSendsBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "cam" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(config.CameraConfig{
		URL:      srv.URL,
		AuthType: "basic",
		Username: "cam",
		Password: "secret",
	})

	_, err := c.Fetch(context.Background(), t.TempDir())
	assert.NoError(t, err)
}

func TestProbeHead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(config.CameraConfig{URL: srv.URL, AuthType: "none"})

	res := c.Probe(context.Background())
	assert.True(t, res.OK)
	assert.Equal(t, "200", res.Code)
}

func TestProbeFallsBackToGet(t *testing.T) {
	var sawGet bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			sawGet = true
			w.Write(make([]byte, 4096)) // bigger than the probe's 1KB read
		}
	}))
	defer srv.Close()

	c := NewClient(config.CameraConfig{URL: srv.URL, AuthType: "none"})

	res := c.Probe(context.Background())
	assert.True(t, res.OK)
	assert.True(t, sawGet, "probe must retry with GET after 405")
}

func TestProbeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(config.CameraConfig{URL: srv.URL, AuthType: "none"})

	res := c.Probe(context.Background())
	assert.False(t, res.OK)
	assert.Equal(t, "503", res.Code)
	assert.Equal(t, "HTTP 503", res.Message)
}

func TestProbeNoURL(t *testing.T) {
	c := NewClient(config.CameraConfig{AuthType: "none"})

	res := c.Probe(context.Background())
	assert.False(t, res.OK)
	assert.Equal(t, "no_url", res.Code)
}

func TestProbeUnreachable(t *testing.T) {
	// Closed server: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(config.CameraConfig{URL: url, AuthType: "none"})

	res := c.Probe(context.Background())
	assert.False(t, res.OK)
	assert.Equal(t, "exception", res.Code)
}
