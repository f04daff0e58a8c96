package collector

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/ernie/bot30/internal/discord"
	"github.com/ernie/bot30/internal/domain"
)

// EmbedSyncer publishes an embed. *discord.Syncer satisfies it.
type EmbedSyncer interface {
	Sync(ctx context.Context, embed *discordgo.MessageEmbed) (discord.Action, error)
}

// SnapshotStore records poll results. *storage.Store satisfies it.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, server string, srv *domain.Server, at time.Time) (string, error)
	SaveOffline(ctx context.Context, server string, cause error, at time.Time) (string, error)
}

// EventPublisher forwards poll events. *notify.Publisher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// UpdaterConfig controls the poll loop
type UpdaterConfig struct {
	// UpdateDelay is the wait between polls in Run while players are online
	UpdateDelay time.Duration
	// PollInterval is the fixed period of Serve
	PollInterval time.Duration
	// Title of the current map embed
	Title string
}

// Updater polls one server and fans each result out to the configured
// sinks. Every sink is optional.
type Updater struct {
	querier Querier
	target  Target
	cfg     UpdaterConfig
	logger  *zap.Logger

	syncer    EmbedSyncer
	store     SnapshotStore
	publisher EventPublisher
	events    chan domain.Event

	now func() time.Time

	pollMu sync.Mutex // one poll at a time; Refresh may race the loop
	mu     sync.RWMutex
	latest *domain.Event
}

// UpdaterOption attaches a sink to an Updater
type UpdaterOption func(*Updater)

func WithSyncer(s EmbedSyncer) UpdaterOption { return func(u *Updater) { u.syncer = s } }
func WithStore(s SnapshotStore) UpdaterOption { return func(u *Updater) { u.store = s } }
func WithPublisher(p EventPublisher) UpdaterOption { return func(u *Updater) { u.publisher = p } }
func WithClock(now func() time.Time) UpdaterOption { return func(u *Updater) { u.now = now } }
func WithUpdaterLogger(l *zap.Logger) UpdaterOption { return func(u *Updater) { u.logger = l } }

// NewUpdater creates an updater for target
func NewUpdater(querier Querier, target Target, cfg UpdaterConfig, opts ...UpdaterOption) *Updater {
	u := &Updater{
		querier: querier,
		target:  target,
		cfg:     cfg,
		logger:  zap.NewNop(),
		events:  make(chan domain.Event, 100),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	u.logger = u.logger.With(zap.String("server", target.Name))
	return u
}

// Events returns the event channel for WebSocket broadcasting
func (u *Updater) Events() <-chan domain.Event {
	return u.events
}

// Latest returns the most recent poll event, or nil before the first poll
func (u *Updater) Latest() *domain.Event {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.latest == nil {
		return nil
	}
	ev := *u.latest
	return &ev
}

// Poll queries the server once and delivers the result to every sink.
// Sink failures are logged and never returned. The query error, if any,
// is returned after the offline result has been delivered.
func (u *Updater) Poll(ctx context.Context) (*domain.Server, error) {
	u.pollMu.Lock()
	defer u.pollMu.Unlock()

	srv, err := u.querier.QueryServerStatus(ctx, u.target)
	if ctx.Err() != nil {
		// Cancelled mid-query; there is nothing worth publishing
		return nil, ctx.Err()
	}
	at := u.now()
	if err != nil {
		u.logger.Warn("server query failed", zap.Error(err))
	} else {
		u.logger.Info("server polled",
			zap.String("map", srv.MapName()),
			zap.Int("players", srv.PlayerCount()))
	}

	ev := domain.NewStatusEvent(u.target.Name, srv, err, at)
	u.mu.Lock()
	u.latest = &ev
	u.mu.Unlock()

	u.deliver(ctx, srv, err, ev)
	return srv, err
}

// Refresh polls on demand and returns the resulting event. A failed query
// is reported through the offline event, not as an error.
func (u *Updater) Refresh(ctx context.Context) (*domain.Event, error) {
	if _, err := u.Poll(ctx); ctx.Err() != nil {
		return nil, err
	}
	return u.Latest(), nil
}

func (u *Updater) deliver(ctx context.Context, srv *domain.Server, queryErr error, ev domain.Event) {
	if u.syncer != nil {
		embed := discord.CurrentMapEmbed(u.cfg.Title, srv, queryErr, ev.Timestamp)
		action, err := u.syncer.Sync(ctx, embed)
		if err != nil {
			u.logger.Error("failed to sync current map embed", zap.Error(err))
		} else {
			u.logger.Debug("current map embed synced", zap.Stringer("action", action))
		}
	}

	if u.store != nil {
		var err error
		if queryErr != nil {
			_, err = u.store.SaveOffline(ctx, u.target.Name, queryErr, ev.Timestamp)
		} else {
			_, err = u.store.SaveSnapshot(ctx, u.target.Name, srv, ev.Timestamp)
		}
		if err != nil {
			u.logger.Error("failed to save snapshot", zap.Error(err))
		}
	}

	if u.publisher != nil {
		if err := u.publisher.Publish(ctx, ev); err != nil {
			u.logger.Error("failed to publish event", zap.Error(err))
		}
	}

	u.emitEvent(ev)
}

func (u *Updater) emitEvent(ev domain.Event) {
	select {
	case u.events <- ev:
	default:
		// Channel full, drop event
	}
}

// Run polls until a poll finds nobody online, waiting UpdateDelay between
// polls. The caller bounds the total run time with the context deadline;
// reaching it ends Run without error.
func (u *Updater) Run(ctx context.Context) error {
	for polls := 1; ; polls++ {
		srv, err := u.Poll(ctx)
		if ctx.Err() != nil {
			u.logger.Info("update run ended", zap.Int("polls", polls), zap.Error(ctx.Err()))
			return nil
		}
		if err != nil || srv.PlayerCount() == 0 {
			u.logger.Info("no players online, stopping", zap.Int("polls", polls))
			return nil
		}

		if err := sleep(ctx, u.cfg.UpdateDelay); err != nil {
			u.logger.Info("update run ended", zap.Int("polls", polls), zap.Error(err))
			return nil
		}
	}
}

// Serve polls every PollInterval until the context is cancelled
func (u *Updater) Serve(ctx context.Context) error {
	interval := u.cfg.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial poll
	u.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			u.Poll(ctx)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
