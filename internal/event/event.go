package event

// Type identifies the kind of live-update event.
type Type string

const (
	TypeSnapshot     Type = "snapshot"
	TypeCameraError  Type = "camera_error"
	TypeCameraHealth Type = "camera_health"
	TypeStatus       Type = "status"
)

// Scheduler status values carried by TypeStatus events.
const (
	StatusRunning       = "running"
	StatusPaused        = "paused"
	StatusWaitingWindow = "waiting_window"
	StatusReloaded      = "config_reloaded"
)

// Event is the envelope pushed to every live-update subscriber. Only the
// fields relevant to Type are populated.
type Event struct {
	Type Type `json:"type"`

	// snapshot
	Filename      string `json:"filename,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
	TimestampFull string `json:"timestamp_full,omitempty"`

	// camera_error and camera_health
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	// camera_health
	Status    string `json:"status,omitempty"`
	CheckedAt string `json:"checked_at,omitempty"`
}

func Snapshot(filename, ts, tsFull string) Event {
	return Event{Type: TypeSnapshot, Filename: filename, Timestamp: ts, TimestampFull: tsFull}
}

func CameraError(code, message string) Event {
	return Event{Type: TypeCameraError, Code: code, Message: message}
}

func CameraHealth(status, code, message, checkedAt string) Event {
	return Event{Type: TypeCameraHealth, Status: status, Code: code, Message: message, CheckedAt: checkedAt}
}

func Status(status string) Event {
	return Event{Type: TypeStatus, Status: status}
}
