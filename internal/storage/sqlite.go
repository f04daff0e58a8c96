package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/ernie/bot30/internal/domain"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("storage: not found")

// formatTimestamp converts time.Time to SQLite-compatible UTC ISO8601 string
// The Z suffix ensures the Go sqlite driver parses it back as UTC
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

//go:embed schema.sql
var schema string

// Snapshot is one recorded poll of a game server. Status is nil for
// offline snapshots.
type Snapshot struct {
	ID          string               `json:"id"`
	Server      string               `json:"server"`
	Online      bool                 `json:"online"`
	Map         string               `json:"map,omitempty"`
	GameType    string               `json:"game_type,omitempty"`
	PlayerCount int                  `json:"player_count"`
	Error       string               `json:"error,omitempty"`
	Status      *domain.ServerStatus `json:"status,omitempty"`
	CapturedAt  time.Time            `json:"captured_at"`
}

// Published records the Discord message that holds an embed
type Published struct {
	Channel   string
	Title     string
	MessageID string
	Digest    string
	UpdatedAt time.Time
}

// Store provides database access
type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

// --- Snapshot methods ---

// SaveSnapshot records a successful poll and returns the new snapshot ID
func (s *Store) SaveSnapshot(ctx context.Context, server string, srv *domain.Server, at time.Time) (string, error) {
	status := srv.Status()
	payload, err := json.Marshal(status)
	if err != nil {
		return "", fmt.Errorf("encoding status: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, server, online, map, game_type, player_count, error, payload, captured_at)
		VALUES (?, ?, 1, ?, ?, ?, NULL, ?, ?)
	`, id, server, status.Map, status.GameType, status.PlayerCount,
		s.enc.EncodeAll(payload, nil), formatTimestamp(at))
	if err != nil {
		return "", fmt.Errorf("inserting snapshot: %w", err)
	}
	return id, nil
}

// SaveOffline records a failed poll
func (s *Store) SaveOffline(ctx context.Context, server string, cause error, at time.Time) (string, error) {
	id := uuid.NewString()
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, server, online, player_count, error, captured_at)
		VALUES (?, ?, 0, 0, ?, ?)
	`, id, server, msg, formatTimestamp(at))
	if err != nil {
		return "", fmt.Errorf("inserting offline snapshot: %w", err)
	}
	return id, nil
}

const snapshotColumns = `id, server, online, map, game_type, player_count, error, payload, captured_at`

// LatestSnapshot returns the most recent snapshot for a server
func (s *Store) LatestSnapshot(ctx context.Context, server string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots
		WHERE server = ?
		ORDER BY captured_at DESC, rowid DESC
		LIMIT 1
	`, server)
	snap, err := s.scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading latest snapshot: %w", err)
	}
	return snap, nil
}

// RecentSnapshots returns up to limit snapshots for a server, newest first
func (s *Store) RecentSnapshots(ctx context.Context, server string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots
		WHERE server = ?
		ORDER BY captured_at DESC, rowid DESC
		LIMIT ?
	`, server, limit)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		snap, err := s.scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snapshots = append(snapshots, *snap)
	}
	return snapshots, rows.Err()
}

// PruneSnapshots deletes snapshots captured before the cutoff and returns
// how many were removed
func (s *Store) PruneSnapshots(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE captured_at < ?`, formatTimestamp(before))
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) decodeStatus(payload []byte) (*domain.ServerStatus, error) {
	data, err := s.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	var status domain.ServerStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return &status, nil
}

// --- Published message methods ---

// GetPublished returns the message recorded for an embed title in a channel
func (s *Store) GetPublished(ctx context.Context, channel, title string) (*Published, error) {
	var p Published
	err := s.db.QueryRowContext(ctx, `
		SELECT channel, title, message_id, digest, updated_at
		FROM published
		WHERE channel = ? AND title = ?
	`, channel, title).Scan(&p.Channel, &p.Title, &p.MessageID, &p.Digest, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading published message: %w", err)
	}
	return &p, nil
}

// SetPublished creates or replaces the record for an embed title
func (s *Store) SetPublished(ctx context.Context, p Published) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO published (channel, title, message_id, digest, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(channel, title) DO UPDATE SET
			message_id = excluded.message_id,
			digest = excluded.digest,
			updated_at = excluded.updated_at
	`, p.Channel, p.Title, p.MessageID, p.Digest, formatTimestamp(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving published message: %w", err)
	}
	return nil
}
