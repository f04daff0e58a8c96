package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ernie/bot30/internal/domain"
	"github.com/ernie/bot30/internal/storage"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// snapshotEvent presents a stored snapshot the way live events look
func snapshotEvent(snap *storage.Snapshot) domain.Event {
	ev := domain.Event{
		Type:      domain.EventServerUpdate,
		Server:    snap.Server,
		Timestamp: snap.CapturedAt.UTC(),
	}
	if !snap.Online || snap.Status == nil {
		ev.Type = domain.EventServerOffline
		ev.Data = domain.OfflineEvent{Error: snap.Error}
		return ev
	}
	ev.Data = *snap.Status
	return ev
}

// handleGetStatus returns the latest poll, live if one happened since
// startup, else the newest stored snapshot
func (r *Router) handleGetStatus(w http.ResponseWriter, req *http.Request) {
	if ev := r.status.Latest(); ev != nil {
		writeJSON(w, http.StatusOK, ev)
		return
	}
	if r.store != nil {
		snap, err := r.store.LatestSnapshot(req.Context(), r.server)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, snapshotEvent(snap))
			return
		case !errors.Is(err, storage.ErrNotFound):
			r.logger.Error("failed to read latest snapshot", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read status")
			return
		}
	}
	writeError(w, http.StatusNotFound, "no status yet")
}

// handleGetSnapshots returns recent stored snapshots, newest first
func (r *Router) handleGetSnapshots(w http.ResponseWriter, req *http.Request) {
	if r.store == nil {
		writeError(w, http.StatusServiceUnavailable, "storage disabled")
		return
	}

	limit := parseLimit(req, defaultSnapshotLimit, maxSnapshotLimit)
	snapshots, err := r.store.RecentSnapshots(req.Context(), r.server, limit)
	if err != nil {
		r.logger.Error("failed to read snapshots", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read snapshots")
		return
	}
	if snapshots == nil {
		snapshots = []storage.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snapshots)
}

// handleRefresh polls the server immediately and returns the result
func (r *Router) handleRefresh(w http.ResponseWriter, req *http.Request) {
	ev, err := r.status.Refresh(req.Context())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusGatewayTimeout, "refresh timed out")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "refresh cancelled")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// handleHealth returns a simple health check
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
