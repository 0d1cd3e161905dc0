// Package camera implements the snapshot fetch and the lightweight
// reachability probe against the configured camera endpoint.
package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("camera")

// FetchTimeout bounds a snapshot download; the camera is on the local
// network, anything slower than this is treated as a failure.
const FetchTimeout = 10 * time.Second

// ErrNoURL is returned when no camera endpoint is configured.
var ErrNoURL = errors.New("no camera URL configured")

// Snapshot describes one stored capture. Immutable once returned; the
// filename carries second resolution so consecutive captures cannot collide
// within a tick interval.
type Snapshot struct {
	Filename      string
	Path          string
	Timestamp     string // "15:04:05"
	TimestampFull string // "02.01.06 15:04"
}

// Fetch downloads one snapshot and stores it under saveDir. The returned
// error is the typed failure the scheduler records as a camera error.
func (c *Client) Fetch(ctx context.Context, saveDir string) (*Snapshot, error) {
	if c.cfg.URL == "" {
		return nil, ErrNoURL
	}

	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	log.Debugf("fetching snapshot from %s", c.cfg.URL)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("camera responded with status %d", resp.StatusCode)
	}

	now := time.Now()
	snap := &Snapshot{
		Filename:      fmt.Sprintf("snapshot_%s.jpg", now.Format("20060102_150405")),
		Timestamp:     now.Format("15:04:05"),
		TimestampFull: now.Format("02.01.06 15:04"),
	}
	abs, err := filepath.Abs(filepath.Join(saveDir, snap.Filename))
	if err != nil {
		abs = filepath.Join(saveDir, snap.Filename)
	}
	snap.Path = abs

	f, err := os.Create(snap.Path)
	if err != nil {
		return nil, fmt.Errorf("create snapshot file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(snap.Path)
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close snapshot file: %w", err)
	}

	return snap, nil
}
