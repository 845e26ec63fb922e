package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteLog persists events durably so a task transcript survives process
// restarts. One writer at a time; sqlite serializes appends for us.
type SQLiteLog struct {
	db *sql.DB
}

// NewSQLiteLog opens (creating if needed) the event database at dbPath.
func NewSQLiteLog(dbPath string) (*SQLiteLog, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create event log directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	l := &SQLiteLog{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate event log: %w", err)
	}
	return l, nil
}

func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

func (l *SQLiteLog) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS task_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		task_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		type TEXT NOT NULL,
		payload TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_task_events_task ON task_events(task_id, seq);
	`
	_, err := l.db.Exec(schema)
	return err
}

func (l *SQLiteLog) Append(ctx context.Context, event *Event) error {
	var payload []byte
	if event.Payload != nil {
		encoded, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("encode event payload: %w", err)
		}
		payload = encoded
	}
	row := l.db.QueryRowContext(ctx,
		`INSERT INTO task_events (id, task_id, timestamp, type, payload)
		 VALUES (?, ?, ?, ?, ?) RETURNING seq`,
		event.ID, event.TaskID, event.Timestamp.UTC().Format(time.RFC3339Nano),
		string(event.Type), payload)
	if err := row.Scan(&event.Seq); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (l *SQLiteLog) List(ctx context.Context, taskID string) ([]*Event, error) {
	return l.query(ctx,
		`SELECT seq, id, task_id, timestamp, type, payload
		 FROM task_events WHERE task_id = ? ORDER BY seq ASC`, taskID)
}

func (l *SQLiteLog) Recent(ctx context.Context, taskID string, limit int) ([]*Event, error) {
	if limit <= 0 {
		return l.List(ctx, taskID)
	}
	events, err := l.query(ctx,
		`SELECT seq, id, task_id, timestamp, type, payload FROM (
			SELECT * FROM task_events WHERE task_id = ? ORDER BY seq DESC LIMIT ?
		 ) ORDER BY seq ASC`, taskID, limit)
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (l *SQLiteLog) query(ctx context.Context, q string, args ...any) ([]*Event, error) {
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			event   Event
			ts      string
			payload sql.NullString
		)
		if err := rows.Scan(&event.Seq, &event.ID, &event.TaskID, &ts, &event.Type, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if parsed, parseErr := time.Parse(time.RFC3339Nano, ts); parseErr == nil {
			event.Timestamp = parsed
		}
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &event.Payload); err != nil {
				return nil, fmt.Errorf("decode event payload: %w", err)
			}
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

var _ Log = (*SQLiteLog)(nil)
