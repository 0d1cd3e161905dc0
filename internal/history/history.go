// Package history persists capture outcomes and camera incident lifecycles
// to Postgres. Everything here is best-effort: the scheduler never fails a
// tick because the database is away.
package history

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("history")

// Transition is a camera up/down flip observed by the scheduler.
type Transition struct {
	From   bool
	To     bool
	At     time.Time
	Code   string
	Reason string
}

// Recorder writes one row per capture attempt. A nil Recorder or nil pool
// disables persistence entirely.
type Recorder struct {
	db *pgxpool.Pool
}

func NewRecorder(db *pgxpool.Pool) *Recorder {
	return &Recorder{db: db}
}

// RecordCapture stores a capture outcome. Errors are logged and swallowed.
func (r *Recorder) RecordCapture(ctx context.Context, ok bool, filename, errText string) {
	if r == nil || r.db == nil {
		return
	}

	status := "OK"
	if !ok {
		status = "FAILED"
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO capture_results (captured_at, status, filename, error)
		VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''))
	`, time.Now(), status, filename, errText)
	if err != nil {
		log.Warningf("capture persist failed: %v", err)
	}
}

// CaptureStats aggregates capture counts over a sliding window, for the
// dashboard's reliability view.
type CaptureStats struct {
	Window      string    `json:"window"`
	From        time.Time `json:"from"`
	Total       int64     `json:"total_captures"`
	OK          int64     `json:"total_ok"`
	SuccessPct  float64   `json:"success_pct"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (r *Recorder) Stats(ctx context.Context, window time.Duration) (*CaptureStats, error) {
	from := time.Now().UTC().Add(-window)

	var total, ok int64
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'OK') AS ok
		  FROM capture_results
		  WHERE captured_at >= $1`,
		from,
	).Scan(&total, &ok)
	if err != nil {
		return nil, err
	}

	stats := &CaptureStats{
		Window:      window.String(),
		From:        from,
		Total:       total,
		OK:          ok,
		GeneratedAt: time.Now().UTC(),
	}
	if total > 0 {
		stats.SuccessPct = (float64(ok) / float64(total)) * 100
	}
	return stats, nil
}

// Enabled reports whether a database is wired in.
func (r *Recorder) Enabled() bool {
	return r != nil && r.db != nil
}

// persistIncident upserts the incidents table according to transitions: a
// down flip opens an incident unless one is already open, an up flip closes
// any open one.
func persistIncident(ctx context.Context, db *pgxpool.Pool, tr Transition) error {
	if !tr.To { // going down
		_, err := db.Exec(ctx, `
            INSERT INTO camera_incidents (started_at, start_code, start_error)
            SELECT $1, NULLIF($2,''), NULLIF($3,'')
            WHERE NOT EXISTS (
                SELECT 1 FROM camera_incidents WHERE ended_at IS NULL
            )
        `, tr.At, tr.Code, tr.Reason)
		return err
	}

	_, err := db.Exec(ctx, `
        UPDATE camera_incidents
           SET ended_at = $1,
               end_code = NULLIF($2,''),
               updated_at = now()
         WHERE ended_at IS NULL
    `, tr.At, tr.Code)
	return err
}
