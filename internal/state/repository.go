package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// SnapshotKey is the row key of the controller snapshot.
	SnapshotKey = "pool_control"
	// SnapshotVersion is written with every snapshot.
	SnapshotVersion = 1
)

// Repository persists State snapshots.
type Repository interface {
	// Load returns the stored state, or the zero State if none exists.
	Load(ctx context.Context) (*State, error)
	// Save replaces the stored state.
	Save(ctx context.Context, s State) error
}

// SQLiteRepository implements Repository on the controller_state table.
type SQLiteRepository struct {
	db  *sql.DB
	key string
}

// NewSQLiteRepository creates a repository storing under SnapshotKey.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, key: SnapshotKey}
}

// Load reads the snapshot. Any version is decoded; keys absent from the
// document keep their zero value.
func (r *SQLiteRepository) Load(ctx context.Context) (*State, error) {
	var (
		version int
		data    string
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT version, data FROM controller_state WHERE key = ?", r.key,
	).Scan(&version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying controller state: %w", err)
	}

	var s State
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("%w: version %d: %w", ErrCorruptSnapshot, version, err)
	}
	return &s, nil
}

// Save upserts the snapshot.
func (r *SQLiteRepository) Save(ctx context.Context, s State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO controller_state (key, version, data, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   version = excluded.version,
		   data = excluded.data,
		   updated_at = excluded.updated_at`,
		r.key,
		SnapshotVersion,
		string(data),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving controller state: %w", err)
	}
	return nil
}
