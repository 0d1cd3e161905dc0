// Package state holds the process-wide runtime view the dashboard polls:
// last camera error, last health check and cached image statistics. Values
// are last-writer-wins; no history is kept.
package state

import "sync/atomic"

// CameraError is the most recent capture failure, nil when the camera is
// believed healthy.
type CameraError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CameraHealth is the result of the latest reachability probe.
type CameraHealth struct {
	Status    string `json:"status"` // "ok" or "error"
	Code      string `json:"code"`
	Message   string `json:"message"`
	CheckedAt string `json:"checked_at"`
}

// ImageStats caches the on-disk snapshot statistics so /status does not
// rescan the save directory on every poll.
type ImageStats struct {
	Count            int    `json:"count"`
	LastSnapshot     string `json:"last_snapshot"`
	LastSnapshotFull string `json:"last_snapshot_full"`
}

// Store is the single shared runtime-state instance. The scheduler and the
// action handlers write, status queries read. Slots are independent; readers
// may observe a new value in one slot before another.
type Store struct {
	cameraError  atomic.Pointer[CameraError]
	cameraHealth atomic.Pointer[CameraHealth]
	imageStats   atomic.Pointer[ImageStats]
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) SetCameraError(code, message string) {
	s.cameraError.Store(&CameraError{Code: code, Message: message})
}

// ClearCameraError resets the error slot. Only a successful capture or a
// successful health check calls this; errors never expire on their own.
func (s *Store) ClearCameraError() {
	s.cameraError.Store(nil)
}

func (s *Store) CameraError() *CameraError {
	return s.cameraError.Load()
}

func (s *Store) SetCameraHealth(status, code, message, checkedAt string) {
	s.cameraHealth.Store(&CameraHealth{
		Status:    status,
		Code:      code,
		Message:   message,
		CheckedAt: checkedAt,
	})
}

func (s *Store) CameraHealth() *CameraHealth {
	return s.cameraHealth.Load()
}

func (s *Store) SetImageStats(count int, last, lastFull string) {
	s.imageStats.Store(&ImageStats{
		Count:            count,
		LastSnapshot:     last,
		LastSnapshotFull: lastFull,
	})
}

func (s *Store) ImageStats() *ImageStats {
	return s.imageStats.Load()
}

// RecordSnapshot bumps the cached image count and timestamps after a
// successful capture.
func (s *Store) RecordSnapshot(ts, tsFull string) {
	count := 0
	if prev := s.imageStats.Load(); prev != nil {
		count = prev.Count
	}
	s.SetImageStats(count+1, ts, tsFull)
}
