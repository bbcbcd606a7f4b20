package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/common"
	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/nats-io/nats.go"
)

var _ domain.ChangeFeed = (*NATSFeed)(nil)

const subjectPrefix = "listingchat.user."

func UserSubject(usrID string) string {
	return subjectPrefix + usrID
}

func Connect(cfg *common.Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("listingchat-api"),
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.ReconnectWait(cfg.NATS.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("Disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("Reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.Info("NATS connection closed")
		}),
		nats.Timeout(10 * time.Second),
	}
	nc, err := nats.Connect(cfg.NATS.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return nc, nil
}

// NATSFeed fans change events out across API instances, every user has its own subject.
type NATSFeed struct {
	nc *nats.Conn
}

func NewNATSFeed(nc *nats.Conn) *NATSFeed {
	return &NATSFeed{nc: nc}
}

func (f *NATSFeed) Publish(_ context.Context, ev *domain.ChangeEvent, usrIDs ...string) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	for _, id := range dedupIDs(usrIDs) {
		if err = f.nc.Publish(UserSubject(id), data); err != nil {
			return fmt.Errorf("publishing to %v: %w", id, err)
		}
	}
	return nil
}

func (f *NATSFeed) Subscribe(ctx context.Context, usrID string) (<-chan *domain.ChangeEvent, func(), error) {
	sub := &subscriber{events: make(chan *domain.ChangeEvent, subscriberBuffer)}
	var (
		mu     sync.Mutex
		closed bool
		natSub *nats.Subscription
	)
	unsubscribe := func() {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		closed = true
		if natSub != nil {
			if err := natSub.Unsubscribe(); err != nil && f.nc.IsConnected() {
				slog.Error("Failed to unsubscribe", "error", err)
			}
		}
		sub.close()
	}
	// nats invokes the handler from a single goroutine per subscription
	handler := func(msg *nats.Msg) {
		var ev domain.ChangeEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			slog.Error("Failed to unmarshal change event", "error", err)
			return
		}
		mu.Lock()
		if closed {
			mu.Unlock()
			return
		}
		ok := sub.deliver(&ev)
		mu.Unlock()
		if !ok {
			slog.Warn("dropping slow feed subscriber", "userID", usrID)
			go unsubscribe()
		}
	}
	s, err := f.nc.Subscribe(UserSubject(usrID), handler)
	if err != nil {
		return nil, nil, err
	}
	mu.Lock()
	natSub = s
	mu.Unlock()
	stop := context.AfterFunc(ctx, unsubscribe)
	return sub.events, func() {
		stop()
		unsubscribe()
	}, nil
}
