package collector

import (
	"context"
	"time"

	"github.com/ernie/bot30/internal/domain"
	"github.com/ernie/bot30/internal/rcon"
	"go.uber.org/zap"
)

// PlayersCommand is the rcon command whose reply ParseStatus understands
const PlayersCommand = "players"

// Target identifies a game server and how hard to try reaching it
type Target struct {
	Name     string
	Host     string
	Port     int
	Password string
	Timeout  time.Duration
	Retries  int
}

// Querier fetches one status snapshot
type Querier interface {
	QueryServerStatus(ctx context.Context, target Target) (*domain.Server, error)
}

// RconQuerier queries servers over UDP rcon
type RconQuerier struct {
	logger *zap.Logger
	// dial creates the transport; replaced in tests
	dial func(host string, port int) rcon.Transport
}

// NewRconQuerier creates a querier using UDP transports
func NewRconQuerier(logger *zap.Logger) *RconQuerier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RconQuerier{
		logger: logger,
		dial: func(host string, port int) rcon.Transport {
			return rcon.NewUDPTransport(host, port)
		},
	}
}

// QueryServerStatus runs the players command and parses the reply. The
// socket is released before returning on every path.
func (q *RconQuerier) QueryServerStatus(ctx context.Context, target Target) (*domain.Server, error) {
	timeout := target.Timeout
	if timeout <= 0 {
		timeout = rcon.DefaultTimeout
	}
	retries := target.Retries
	if retries <= 0 {
		retries = rcon.DefaultRetries
	}

	session := rcon.NewSession(q.dial(target.Host, target.Port), target.Password,
		rcon.WithTimeout(timeout),
		rcon.WithRetries(retries),
		rcon.WithLogger(q.logger.With(zap.String("server", target.Name))),
	)
	defer func() {
		if err := session.Close(); err != nil {
			q.logger.Warn("failed to close rcon transport", zap.Error(err))
		}
	}()

	reply, err := session.Query(ctx, PlayersCommand)
	if err != nil {
		return nil, err
	}
	return ParseStatus(reply)
}

// QueryServerStatus queries target with a default RconQuerier
func QueryServerStatus(ctx context.Context, target Target) (*domain.Server, error) {
	return NewRconQuerier(nil).QueryServerStatus(ctx, target)
}
