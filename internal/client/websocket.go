package client

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// WsFeed is the Feed served by the API's websocket endpoint
type WsFeed struct {
	url   string
	token string
}

func NewWsFeed(baseURL, token string) *WsFeed {
	u := strings.TrimSuffix(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return &WsFeed{url: u + subscribeTo, token: token}
}

func (f *WsFeed) Subscribe(ctx context.Context) (<-chan *domain.ChangeEvent, error) {
	opts := &websocket.DialOptions{
		CompressionMode: websocket.CompressionContextTakeover,
		HTTPHeader:      http.Header{"Authorization": {"Bearer " + f.token}},
	}
	conn, resp, err := websocket.Dial(ctx, f.url, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, domain.ErrNotAuthenticated
		}
		return nil, transportError(ctx, err)
	}
	events := make(chan *domain.ChangeEvent, 16)
	go func() {
		defer close(events)
		defer conn.CloseNow()
		for {
			var ev domain.ChangeEvent
			if err := wsjson.Read(ctx, conn, &ev); err != nil {
				if ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
					slog.Warn("change feed dropped", "error", err)
				}
				return
			}
			select {
			case events <- &ev:
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "client exited listingchat")
				return
			}
		}
	}()
	return events, nil
}
