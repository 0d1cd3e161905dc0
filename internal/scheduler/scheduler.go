// Package scheduler owns the capture lifecycle: it decides at each tick
// whether a snapshot is permitted, executes it, updates the shared runtime
// state and notifies live-update subscribers. Control-plane operations
// (pause, resume, reload) come in from the HTTP layer.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/op/go-logging"

	"chronocam/internal/broadcast"
	"chronocam/internal/camera"
	"chronocam/internal/config"
	"chronocam/internal/event"
	"chronocam/internal/history"
	"chronocam/internal/solar"
	"chronocam/internal/state"
	"chronocam/internal/window"
)

var log = logging.MustGetLogger("scheduler")

const (
	// Heartbeat and health periods are fixed; only the capture interval is
	// configuration-driven.
	heartbeatPeriod = 10 * time.Second
	healthPeriod    = 60 * time.Second

	// DefaultPreviewPath is the well-known location of the latest capture,
	// served by the dashboard for quick display.
	DefaultPreviewPath = "static/img/last.jpg"
)

// Camera is the collaborator executing snapshots and reachability probes.
// *camera.Client is the production implementation.
type Camera interface {
	Fetch(ctx context.Context, saveDir string) (*camera.Snapshot, error)
	Probe(ctx context.Context) camera.ProbeResult
}

// Options wires the collaborators a Core needs. State and Bus are required;
// the rest have working defaults.
type Options struct {
	State       *state.Store
	Bus         *broadcast.Broadcaster
	PreviewPath string
	// Transitions receives camera up/down flips for incident recording and
	// notification. Sends are non-blocking; nil disables them.
	Transitions chan<- history.Transition
	// Recorder persists capture outcomes; nil disables persistence.
	Recorder *history.Recorder
	// NewCamera builds the camera client on each start. Tests swap in fakes.
	NewCamera func(config.CameraConfig) Camera
}

// Core is the scheduler state machine: Stopped, Running, or Running with
// the paused flag set. A single Core instance exists per process, owned by
// main and shared by reference with the HTTP layer.
type Core struct {
	mu      sync.Mutex // guards cfg and lifecycle from the control plane
	cfg     *config.Config
	running bool
	cancel  context.CancelFunc

	paused atomic.Bool

	state       *state.Store
	bus         *broadcast.Broadcaster
	previewPath string
	transitions chan<- history.Transition
	recorder    *history.Recorder
	newCamera   func(config.CameraConfig) Camera

	upMu   sync.Mutex
	lastUp *bool
}

func New(cfg *config.Config, opts Options) *Core {
	c := &Core{
		cfg:         cfg.Clone(),
		state:       opts.State,
		bus:         opts.Bus,
		previewPath: opts.PreviewPath,
		transitions: opts.Transitions,
		recorder:    opts.Recorder,
		newCamera:   opts.NewCamera,
	}
	if c.previewPath == "" {
		c.previewPath = DefaultPreviewPath
	}
	if c.newCamera == nil {
		c.newCamera = func(cc config.CameraConfig) Camera { return camera.NewClient(cc) }
	}
	c.paused.Store(cfg.Paused)
	return c
}

// Start moves the Core from Stopped to Running: restores the preview image
// and arms the capture, heartbeat and health tickers. No-op when already
// running.
func (c *Core) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		log.Warning("start ignored: scheduler already running")
		return
	}

	cfg := c.cfg.Clone()
	RestoreLatestPreview(cfg.Capture.SavePath, c.previewPath)

	cam := c.newCamera(cfg.Camera)
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.running = true

	interval := time.Duration(cfg.Capture.IntervalSeconds) * time.Second
	go c.runTicker(ctx, interval, func() { c.captureTick(cfg, cam) })
	go c.runTicker(ctx, heartbeatPeriod, func() { c.heartbeatTick(cfg) })
	go c.runTicker(ctx, healthPeriod, func() { c.healthTick(cam) })

	log.Infof("scheduler started (interval: %ds)", cfg.Capture.IntervalSeconds)
}

// Stop cancels all tickers. An in-flight tick is allowed to finish; no new
// ticks fire afterwards.
func (c *Core) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.cancel()
	c.cancel = nil
	c.running = false
	log.Info("scheduler stopped")
}

// Reload replaces the configuration wholesale and restarts the tickers so
// no stale timer references the old interval.
func (c *Core) Reload(cfg *config.Config) {
	c.Stop()
	c.mu.Lock()
	c.cfg = cfg.Clone()
	c.paused.Store(cfg.Paused)
	c.mu.Unlock()
	c.Start()
}

// SetPaused toggles the paused flag without touching the tickers: the
// capture tick becomes a no-op while heartbeat and health keep running.
func (c *Core) SetPaused(v bool) {
	c.paused.Store(v)
	c.mu.Lock()
	c.cfg.Paused = v
	c.mu.Unlock()
	if v {
		log.Info("scheduler paused")
	} else {
		log.Info("scheduler resumed")
	}
}

func (c *Core) Paused() bool { return c.paused.Load() }

func (c *Core) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Config returns a copy of the current configuration for status queries.
func (c *Core) Config() *config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Clone()
}

// ActiveNow evaluates the capture window against the wall clock.
func (c *Core) ActiveNow() bool {
	cfg := c.Config()
	win, sun := windowOf(cfg.Capture)
	return win.IsActive(time.Now(), sun)
}

// SunTimes exposes today's sunrise/sunset for the status endpoint.
func (c *Core) SunTimes() (rise, set time.Time, ok bool) {
	cfg := c.Config()
	p := solar.Provider{
		Latitude:  cfg.Capture.Latitude,
		Longitude: cfg.Capture.Longitude,
		Timezone:  cfg.Capture.Timezone,
	}
	return p.SunTimes(time.Now())
}

// CaptureNow runs one capture immediately, bypassing the pause flag and the
// active window. Backs the dashboard's manual snapshot action; all side
// effects (preview, state, broadcast, history) match a scheduled capture.
func (c *Core) CaptureNow(ctx context.Context) (*camera.Snapshot, error) {
	cfg := c.Config()
	cam := c.newCamera(cfg.Camera)
	return c.capture(ctx, cfg, cam)
}

// runTicker drives one periodic job until ctx is canceled. The tick body is
// guarded so an unexpected panic is logged and the schedule keeps firing.
func (c *Core) runTicker(ctx context.Context, period time.Duration, tick func()) {
	if period <= 0 {
		period = time.Second
	}
	t := time.NewTicker(period)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.safeTick(tick)
		}
	}
}

func (c *Core) safeTick(tick func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("tick panicked: %v", r)
		}
	}()
	tick()
}

func (c *Core) captureTick(cfg *config.Config, cam Camera) {
	if c.paused.Load() {
		log.Debug("scheduler paused - no snapshot")
		return
	}

	win, sun := windowOf(cfg.Capture)
	if !win.IsActive(time.Now(), sun) {
		log.Debug("outside active window - skipped")
		return
	}

	// The tick context is deliberately not tied to Stop: an in-flight
	// capture runs to completion, bounded by the fetch timeout.
	c.capture(context.Background(), cfg, cam)
}

func (c *Core) capture(ctx context.Context, cfg *config.Config, cam Camera) (*camera.Snapshot, error) {
	snap, err := cam.Fetch(ctx, cfg.Capture.SavePath)
	if err != nil {
		log.Errorf("snapshot failed: %v", err)
		c.state.SetCameraError("snapshot_failed", err.Error())
		c.bus.Broadcast(event.CameraError("snapshot_failed", err.Error()))
		c.recorder.RecordCapture(ctx, false, "", err.Error())
		c.observe(false, "snapshot_failed", err.Error())
		return nil, err
	}

	if err := CopyPreview(snap.Path, c.previewPath); err != nil {
		log.Errorf("failed to update preview image: %v", err)
	}

	c.state.RecordSnapshot(snap.Timestamp, snap.TimestampFull)
	c.state.ClearCameraError()
	c.bus.Broadcast(event.Snapshot(snap.Filename, snap.Timestamp, snap.TimestampFull))
	c.recorder.RecordCapture(ctx, true, snap.Filename, "")
	c.observe(true, "", "")
	log.Infof("snapshot saved: %s", snap.Filename)
	return snap, nil
}

func (c *Core) heartbeatTick(cfg *config.Config) {
	status := event.StatusRunning
	switch {
	case c.paused.Load():
		status = event.StatusPaused
	default:
		win, sun := windowOf(cfg.Capture)
		if !win.IsActive(time.Now(), sun) {
			status = event.StatusWaitingWindow
		}
	}
	c.bus.Broadcast(event.Status(status))
}

// ProbeNow runs one health check outside the schedule, with the same state
// and broadcast effects as the periodic health tick. The settings handler
// uses it for immediate feedback after a config save.
func (c *Core) ProbeNow() camera.ProbeResult {
	cfg := c.Config()
	return c.healthCheck(c.newCamera(cfg.Camera))
}

func (c *Core) healthTick(cam Camera) {
	c.healthCheck(cam)
}

func (c *Core) healthCheck(cam Camera) camera.ProbeResult {
	res := cam.Probe(context.Background())
	checkedAt := time.Now().Format("2006-01-02 15:04:05")

	if res.OK {
		// A reachable camera is treated as evidence of recovery.
		c.state.ClearCameraError()
		c.state.SetCameraHealth("ok", res.Code, res.Message, checkedAt)
	} else {
		c.state.SetCameraHealth("error", res.Code, res.Message, checkedAt)
	}

	status := "ok"
	if !res.OK {
		status = "error"
	}
	c.bus.Broadcast(event.CameraHealth(status, res.Code, res.Message, checkedAt))
	c.observe(res.OK, res.Code, res.Message)
	return res
}

// observe tracks camera up/down flips and forwards them for incident
// recording. The first observation never produces a transition.
func (c *Core) observe(up bool, code, reason string) {
	c.upMu.Lock()
	prev := c.lastUp
	c.lastUp = &up
	c.upMu.Unlock()

	if prev == nil || *prev == up || c.transitions == nil {
		return
	}
	tr := history.Transition{From: *prev, To: up, At: time.Now(), Code: code, Reason: reason}
	select {
	case c.transitions <- tr:
	default:
		log.Warning("transition channel full; incident event dropped")
	}
}

func windowOf(cap config.CaptureConfig) (window.Window, window.SunTimes) {
	win := window.Window{
		Start:    cap.ActiveStart,
		End:      cap.ActiveEnd,
		Days:     cap.ActiveDays,
		UseSolar: cap.UseSolar,
	}
	var sun window.SunTimes
	if cap.UseSolar {
		p := solar.Provider{Latitude: cap.Latitude, Longitude: cap.Longitude, Timezone: cap.Timezone}
		sun = p.SunTimes
	}
	return win, sun
}
