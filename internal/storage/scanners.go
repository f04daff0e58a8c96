package storage

import (
	"database/sql"
)

// Null scanner helpers - reduce repetitive nil-checking code

func scanNullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// scanner is an interface satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// scanSnapshot scans a snapshot row and decompresses its payload
func (s *Store) scanSnapshot(sc scanner) (*Snapshot, error) {
	var (
		snap     Snapshot
		online   int
		mapName  sql.NullString
		gameType sql.NullString
		errText  sql.NullString
		payload  []byte
	)
	if err := sc.Scan(&snap.ID, &snap.Server, &online, &mapName, &gameType,
		&snap.PlayerCount, &errText, &payload, &snap.CapturedAt); err != nil {
		return nil, err
	}
	snap.Online = online != 0
	snap.Map = scanNullStringValue(mapName)
	snap.GameType = scanNullStringValue(gameType)
	snap.Error = scanNullStringValue(errText)

	if len(payload) > 0 {
		status, err := s.decodeStatus(payload)
		if err != nil {
			return nil, err
		}
		snap.Status = status
	}
	return &snap, nil
}
