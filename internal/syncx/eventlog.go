package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const (
	EventDownloadStarted     = "download_started"
	EventCategoriesSaved     = "categories_saved"
	EventDescriptionsSaved   = "descriptions_saved"
	EventDescriptionsSkipped = "descriptions_skipped"
	EventAssetsSaved         = "assets_saved"
	EventDownloadFailed      = "download_failed"
	EventDownloadCompleted   = "download_completed"
)

type Event struct {
	ID        int64
	RunID     string
	Type      string
	DataJSON  string
	CreatedAt int64 // unix ms
}

// EventSink records sync progress. Failures to record never fail a sync.
type EventSink interface {
	Append(ctx context.Context, runID, typ string, data any) error
}

type EventRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db, now: time.Now} }

func (r *EventRepo) Append(ctx context.Context, runID, typ string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sync_events (run_id, typ, data, created_at)
		 VALUES ($1,$2,$3,$4)`,
		runID, typ, string(b), r.now().UnixMilli())
	return err
}

// Run returns the events of one sync run in insertion order.
func (r *EventRepo) Run(ctx context.Context, runID string) ([]Event, error) {
	return r.query(ctx,
		`SELECT id, run_id, typ, data, created_at FROM sync_events WHERE run_id = $1 ORDER BY id`, runID)
}

// Recent returns the latest events, newest first.
func (r *EventRepo) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.query(ctx,
		`SELECT id, run_id, typ, data, created_at FROM sync_events ORDER BY id DESC LIMIT $1`, limit)
}

func (r *EventRepo) query(ctx context.Context, q string, args ...any) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.RunID, &e.Type, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
