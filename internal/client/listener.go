package client

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/M0hammadUsman/listingchat/internal/sync"
)

type ListenerState int

const (
	Idle ListenerState = iota
	Subscribing
	Active
	DegradedPolling
	Closed
)

func (s ListenerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Subscribing:
		return "subscribing"
	case Active:
		return "active"
	case DegradedPolling:
		return "degraded-polling"
	case Closed:
		return "closed"
	}
	return "unknown"
}

var errListenerStarted = errors.New("listener already started")

type PollConfig struct {
	Interval    time.Duration
	MaxInterval time.Duration
	// number of polls between two resubscribe attempts
	ResubscribeEvery int
}

func (c PollConfig) withDefaults() PollConfig {
	if c.Interval <= 0 {
		c.Interval = 3 * time.Second
	}
	if c.MaxInterval < c.Interval {
		c.MaxInterval = max(time.Minute, c.Interval)
	}
	if c.ResubscribeEvery <= 0 {
		c.ResubscribeEvery = 5
	}
	return c
}

// Listener keeps a Session in step with the datastore. It holds the session's one change feed
// subscription and polls whenever that subscription is down:
//
//	Idle → Subscribing → Active ⇄ DegradedPolling → Subscribing … → Closed
type Listener struct {
	session *Session
	feed    Feed
	mux     *Multiplexer
	cfg     PollConfig
	state   *sync.Broadcaster[ListenerState]
	started atomic.Bool
}

func NewListener(session *Session, feed Feed, cfg PollConfig) *Listener {
	l := &Listener{
		session: session,
		feed:    feed,
		mux:     NewMultiplexer(),
		cfg:     cfg.withDefaults(),
		state:   sync.NewBroadcaster(Idle),
	}
	l.mux.Handle(domain.MessageInserted, "", session.onMessageInserted)
	l.mux.Handle(domain.MessageUpdated, "", session.onMessageUpdated)
	l.mux.Handle(domain.ConversationUpdated, "", session.onConversationUpdated)
	return l
}

// Mux allows additional handlers, they run after the session has reconciled the event
func (l *Listener) Mux() *Multiplexer {
	return l.mux
}

func (l *Listener) State() ListenerState {
	return l.state.Get()
}

func (l *Listener) SubscribeState() (int, <-chan ListenerState) {
	return l.state.Subscribe()
}

func (l *Listener) UnsubscribeState(token int) {
	l.state.Unsubscribe(token)
}

// WaitForState blocks until the listener reaches s
func (l *Listener) WaitForState(ctx context.Context, s ListenerState) error {
	_, err := l.state.WaitFor(ctx, func(cur ListenerState) bool { return cur == s })
	return err
}

// Run drives the state machine until ctx is done, every timer is stopped before it returns
func (l *Listener) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return errListenerStarted
	}
	defer l.state.Write(Closed)
	interval := l.cfg.Interval
	for {
		l.state.Write(Subscribing)
		events, err := l.feed.Subscribe(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			l.state.Write(Active)
			// catch up on what happened while no subscription was live
			if err = l.session.Refresh(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("catching up after subscribing", "error", err)
			}
			interval = l.cfg.Interval
			l.consume(ctx, events)
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("change feed dropped, polling")
		} else {
			slog.Warn("subscribing to change feed", "error", err)
		}
		l.state.Write(DegradedPolling)
		if !l.poll(ctx, &interval) {
			return nil
		}
	}
}

func (l *Listener) consume(ctx context.Context, events <-chan *domain.ChangeEvent) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			l.mux.Dispatch(ctx, ev)
		case <-ctx.Done():
			return
		}
	}
}

// poll refreshes the session every interval until it is time to resubscribe, the interval doubles up to
// MaxInterval while the datastore is unreachable. False when ctx is done.
func (l *Listener) poll(ctx context.Context, interval *time.Duration) bool {
	timer := time.NewTimer(*interval)
	defer timer.Stop()
	for polls := 0; ; {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
		}
		err := l.session.Refresh(ctx)
		switch {
		case errors.Is(err, domain.ErrTransientNetwork):
			*interval = min(*interval*2, l.cfg.MaxInterval)
			slog.Debug("poll failed", "retryIn", *interval, "error", err)
		case err != nil && ctx.Err() == nil:
			*interval = l.cfg.Interval
			slog.Warn("poll failed", "error", err)
		default:
			*interval = l.cfg.Interval
		}
		if polls++; polls >= l.cfg.ResubscribeEvery {
			return true
		}
		timer.Reset(*interval)
	}
}
