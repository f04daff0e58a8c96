package rcon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultTimeout is the per-receive deadline tuned for the players query.
	DefaultTimeout = 750 * time.Millisecond
	// DefaultRetries is the number of send attempts for the players query.
	DefaultRetries = 3

	backoffFloor = time.Second
)

// State is a step of the query state machine.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateSending
	StateAwaitingReply
	StateAccumulating
	StateRetrying
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:          "idle",
	StateConnecting:    "connecting",
	StateConnected:     "connected",
	StateSending:       "sending",
	StateAwaitingReply: "awaiting_reply",
	StateAccumulating:  "accumulating",
	StateRetrying:      "retrying",
	StateDone:          "done",
	StateFailed:        "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Backoff returns how long to wait after the given failed attempt
// (starting at 1) before sending again.
type Backoff func(attempt int, timeout time.Duration) time.Duration

// LinearBackoff waits timeout*attempt plus a one second floor.
func LinearBackoff(attempt int, timeout time.Duration) time.Duration {
	return timeout*time.Duration(attempt) + backoffFloor
}

// Session runs rcon commands over a Transport it exclusively owns.
type Session struct {
	transport Transport
	password  string
	timeout   time.Duration
	retries   int
	backoff   Backoff
	logger    *zap.Logger
	state     State
}

// Option configures a Session.
type Option func(*Session)

// WithTimeout sets the per-receive deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRetries sets the number of send attempts.
func WithRetries(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.retries = n
		}
	}
}

// WithBackoff replaces LinearBackoff.
func WithBackoff(b Backoff) Option {
	return func(s *Session) {
		if b != nil {
			s.backoff = b
		}
	}
}

// WithLogger attaches a logger for state transitions.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession creates a session that owns transport.
func NewSession(transport Transport, password string, opts ...Option) *Session {
	s := &Session{
		transport: transport,
		password:  password,
		timeout:   DefaultTimeout,
		retries:   DefaultRetries,
		backoff:   LinearBackoff,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state of the last query.
func (s *Session) State() State {
	return s.state
}

func (s *Session) setState(st State, fields ...zap.Field) {
	s.state = st
	s.logger.Debug("rcon session", append(fields, zap.Stringer("state", st))...)
}

// Query sends command and returns the reply text. The reply ends at the
// first receive timeout after at least one datagram; attempts met with
// total silence are retried with backoff. A command that never gets an
// answer fails with *NoDataError.
func (s *Session) Query(ctx context.Context, command string) (string, error) {
	s.setState(StateConnecting)
	if err := s.transport.Connect(ctx); err != nil {
		s.setState(StateFailed)
		return "", err
	}
	s.setState(StateConnected)

	if in, ok := s.transport.(interface{ Interrupt() }); ok {
		stop := context.AfterFunc(ctx, in.Interrupt)
		defer stop()
	}

	packet, err := EncodeCommand(s.password, command)
	if err != nil {
		s.setState(StateFailed)
		return "", err
	}

	for attempt := 1; attempt <= s.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			s.setState(StateFailed)
			return "", err
		}

		s.setState(StateSending, zap.Int("attempt", attempt))
		if err := s.transport.Send(packet); err != nil {
			s.setState(StateFailed)
			return "", fmt.Errorf("rcon %q: %w", command, err)
		}

		reply, err := s.accumulate(ctx)
		if err != nil {
			s.setState(StateFailed)
			return "", fmt.Errorf("rcon %q: %w", command, err)
		}
		if reply != "" {
			s.setState(StateDone, zap.Int("attempt", attempt), zap.Int("bytes", len(reply)))
			return reply, nil
		}

		if attempt == s.retries {
			break
		}

		wait := s.backoff(attempt, s.timeout)
		s.setState(StateRetrying, zap.Int("attempt", attempt), zap.Duration("wait", wait))
		if err := sleep(ctx, wait); err != nil {
			s.setState(StateFailed)
			return "", err
		}
	}

	s.setState(StateFailed)
	return "", &NoDataError{Command: command, Attempts: s.retries}
}

// accumulate collects datagrams until the first receive timeout. Silence
// is the only end-of-reply signal the server gives.
func (s *Session) accumulate(ctx context.Context) (string, error) {
	var reply strings.Builder

	s.setState(StateAwaitingReply)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		data, err := s.transport.Receive(s.timeout)
		if errors.Is(err, ErrTimeout) {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			return reply.String(), nil
		}
		if err != nil {
			return "", err
		}

		s.setState(StateAccumulating, zap.Int("datagram_bytes", len(data)))
		reply.WriteString(DecodeReply(data))
	}
}

// Close releases the transport.
func (s *Session) Close() error {
	return s.transport.Close()
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
