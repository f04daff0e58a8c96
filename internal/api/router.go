package api

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ernie/bot30/internal/auth"
	"github.com/ernie/bot30/internal/domain"
	"github.com/ernie/bot30/internal/storage"
)

// StatusSource is the live poll state. *collector.Updater satisfies it.
type StatusSource interface {
	Latest() *domain.Event
	Refresh(ctx context.Context) (*domain.Event, error)
	Events() <-chan domain.Event
}

// SnapshotReader reads recorded polls. *storage.Store satisfies it.
type SnapshotReader interface {
	LatestSnapshot(ctx context.Context, server string) (*storage.Snapshot, error)
	RecentSnapshots(ctx context.Context, server string, limit int) ([]storage.Snapshot, error)
}

// Router holds the HTTP routes and dependencies
type Router struct {
	mux    *http.ServeMux
	status StatusSource
	store  SnapshotReader
	server string
	wsHub  *WebSocketHub
	auth   *auth.Service
	logger *zap.Logger
}

// NewRouter creates a new HTTP router. store and authService may be nil,
// which disables the snapshot history and the refresh endpoint.
func NewRouter(status StatusSource, store SnapshotReader, authService *auth.Service, serverName string, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		mux:    http.NewServeMux(),
		status: status,
		store:  store,
		server: serverName,
		wsHub:  NewWebSocketHub(logger),
		auth:   authService,
		logger: logger,
	}

	r.mux.HandleFunc("GET /api/status", r.handleGetStatus)
	r.mux.HandleFunc("GET /api/snapshots", r.handleGetSnapshots)
	r.mux.HandleFunc("POST /api/refresh", r.requireScope(auth.ScopeRefresh, r.handleRefresh))

	r.mux.HandleFunc("GET /ws", r.handleWebSocket)

	r.mux.HandleFunc("GET /health", r.handleHealth)

	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// CORS headers for API
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if req.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.mux.ServeHTTP(w, req)
}

// Hub returns the WebSocket hub
func (r *Router) Hub() *WebSocketHub {
	return r.wsHub
}

// StartWebSocketHub starts broadcasting poll events to WebSocket clients
// until ctx is cancelled
func (r *Router) StartWebSocketHub(ctx context.Context) {
	go r.wsHub.Run(ctx)

	// Forward events from the updater to the hub
	go func() {
		events := r.status.Events()
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-events:
				r.wsHub.Broadcast(event)
			}
		}
	}()
}
