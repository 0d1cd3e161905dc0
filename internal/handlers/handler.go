// Package handlers implements the dashboard API on top of the scheduler
// core, the runtime state store and the broadcaster.
package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	oplog "github.com/op/go-logging"

	"chronocam/internal/broadcast"
	"chronocam/internal/config"
	"chronocam/internal/event"
	"chronocam/internal/history"
	"chronocam/internal/logging"
	"chronocam/internal/scheduler"
	"chronocam/internal/state"
)

var log = oplog.MustGetLogger("handlers")

type Handler struct {
	core       *scheduler.Core
	state      *state.Store
	bus        *broadcast.Broadcaster
	recorder   *history.Recorder
	configPath string
}

func New(core *scheduler.Core, st *state.Store, bus *broadcast.Broadcaster, rec *history.Recorder, configPath string) *Handler {
	return &Handler{core: core, state: st, bus: bus, recorder: rec, configPath: configPath}
}

// Status is the polling API behind the dashboard header: current time,
// window activity, pause state, sun times, image stats and camera health.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	cfg := h.core.Config()

	stats := h.state.ImageStats()
	if stats == nil {
		// First query after a restart: rebuild the cache from disk once.
		count, last, lastFull := computeImageStats(cfg.Capture.SavePath)
		h.state.SetImageStats(count, last, lastFull)
		stats = h.state.ImageStats()
	}

	sunriseStr, sunsetStr := "--:--", "--:--"
	if cfg.Capture.UseSolar {
		if rise, set, ok := h.core.SunTimes(); ok {
			sunriseStr = rise.Format("15:04")
			sunsetStr = set.Format("15:04")
		}
	}

	writeJSON(w, map[string]any{
		"time":                  time.Now().Format("15:04:05"),
		"active":                h.core.ActiveNow(),
		"paused":                h.core.Paused(),
		"sunrise":               sunriseStr,
		"sunset":                sunsetStr,
		"count":                 stats.Count,
		"last_snapshot":         stats.LastSnapshot,
		"last_snapshot_tooltip": stats.LastSnapshotFull,
		"camera_error":          h.state.CameraError(),
		"camera_health":         h.state.CameraHealth(),
	})
}

// Pause and Resume toggle the scheduler without touching its timers and
// persist the flag so it survives a restart.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, true)
}

func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, false)
}

func (h *Handler) setPaused(w http.ResponseWriter, paused bool) {
	h.core.SetPaused(paused)

	cfg := h.core.Config()
	if err := config.Save(h.configPath, cfg); err != nil {
		log.Warningf("failed to persist pause state: %v", err)
	}

	status := event.StatusRunning
	if paused {
		status = event.StatusPaused
	}
	h.bus.Broadcast(event.Status(status))
	writeJSON(w, map[string]any{"ok": true})
}

// SnapshotNow triggers a capture immediately, bypassing pause and window.
func (h *Handler) SnapshotNow(w http.ResponseWriter, r *http.Request) {
	snap, err := h.core.CaptureNow(r.Context())
	if err != nil {
		writeJSON(w, map[string]any{"ok": false})
		return
	}
	writeJSON(w, map[string]any{
		"ok":             true,
		"filename":       snap.Filename,
		"timestamp":      snap.Timestamp,
		"timestamp_full": snap.TimestampFull,
	})
}

// UpdateSettings replaces the configuration wholesale: validate, persist,
// restart the scheduler on the new interval, then probe the camera once so
// the user gets immediate feedback.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var incoming config.Config
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		http.Error(w, "invalid settings payload", http.StatusBadRequest)
		return
	}

	current := h.core.Config()
	// A blank password in the form means "keep the stored one".
	if strings.TrimSpace(incoming.Camera.Password) == "" {
		incoming.Camera.Password = current.Camera.Password
	}
	incoming.Paused = h.core.Paused()

	if err := config.Normalize(&incoming); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := config.Save(h.configPath, &incoming); err != nil {
		log.Errorf("failed to persist settings: %v", err)
		http.Error(w, "failed to persist settings", http.StatusInternalServerError)
		return
	}

	h.core.Reload(&incoming)
	h.core.ProbeNow()
	h.bus.Broadcast(event.Status(event.StatusReloaded))
	log.Info("config saved and scheduler restarted")

	writeJSON(w, map[string]any{"ok": true})
}

// Captures returns aggregate capture stats over a sliding window
// (default 24h), backed by the history database.
func (h *Handler) Captures(w http.ResponseWriter, r *http.Request) {
	if !h.recorder.Enabled() {
		http.Error(w, "capture history not configured", http.StatusServiceUnavailable)
		return
	}

	window := 24 * time.Hour
	if raw := strings.TrimSpace(r.URL.Query().Get("window")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			http.Error(w, "invalid window duration", http.StatusBadRequest)
			return
		}
		window = d
	}

	stats, err := h.recorder.Stats(r.Context(), window)
	if err != nil {
		log.Warningf("capture stats query failed: %v", err)
		http.Error(w, "capture stats query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

// Logs exposes the in-memory log ring for the dashboard log view.
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	n := 100
	if raw := r.URL.Query().Get("n"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			n = v
		}
	}
	writeJSON(w, map[string]any{"logs": logging.Recent(n)})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// computeImageStats scans the save directory once to seed the cached image
// statistics after a restart.
func computeImageStats(saveDir string) (count int, last, lastFull string) {
	entries, err := os.ReadDir(saveDir)
	if err != nil {
		return 0, "", ""
	}

	var latest time.Time
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
		default:
			continue
		}
		count++
		if info, err := e.Info(); err == nil && info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	if !latest.IsZero() {
		last = latest.Format("15:04:05")
		lastFull = latest.Format("02.01.06 15:04")
	}
	return count, last, lastFull
}
