package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/common"
	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/time/rate"
)

// WebsocketFeedHandler streams the caller's change events until either side goes away. The client never
// writes, it only reads. A stream the feed drops for being too slow is closed with StatusPolicyViolation
// and the client is expected to catch up & resubscribe.
func (s *Server) WebsocketFeedHandler(w http.ResponseWriter, r *http.Request) {
	u := common.ContextGetUser(r.Context())
	// subscribing before the upgrade means nothing published after the handshake is missed
	events, release, err := s.Feed.Subscribe(r.Context(), u.ID)
	if err != nil {
		s.serverErrorResponse(w, r, err)
		return
	}
	defer release()
	// the server's write timeout must not apply to a long lived connection
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})
	_ = rc.SetReadDeadline(time.Time{})
	conn, err := websocket.Accept(w, r, s.wsAcceptOpts)
	if err != nil {
		slog.Error(err.Error())
		return
	}
	defer conn.CloseNow()

	s.addSubscriber(r.Context(), u)
	defer s.removeSubscriber(u)

	ctx := conn.CloseRead(r.Context())
	limiter := rate.NewLimiter(rate.Limit(s.Config.Feed.RateLimit), s.Config.Feed.Burst)
	shutdownCtx := s.BackgroundTask.Context()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with events")
				return
			}
			if err = limiter.Wait(ctx); err != nil {
				return
			}
			if err = writeWithTimeout(ctx, conn, 5*time.Second, ev); err != nil {
				if !isClosedConnErr(err) {
					slog.Error(err.Error())
				}
				return
			}
		case <-ctx.Done():
			return
		case <-shutdownCtx.Done():
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}
	}
}

// addSubscriber marks u online when it opens its first feed connection
func (s *Server) addSubscriber(ctx context.Context, u *domain.User) {
	s.SubsMu.Lock()
	s.Subscribers[u.ID]++
	first := s.Subscribers[u.ID] == 1
	s.SubsMu.Unlock()
	if first {
		s.updateOnlineStatus(ctx, u, true)
	}
}

// removeSubscriber sets the user's LastOnline to time.Now once its last feed connection is gone
func (s *Server) removeSubscriber(u *domain.User) {
	s.SubsMu.Lock()
	s.Subscribers[u.ID]--
	last := s.Subscribers[u.ID] <= 0
	if last {
		delete(s.Subscribers, u.ID)
	}
	s.SubsMu.Unlock()
	if last {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.updateOnlineStatus(ctx, u, false)
	}
}

func (s *Server) updateOnlineStatus(ctx context.Context, u *domain.User, online bool) {
	var err error
	for range 5 { // Very unlikely to fail
		if err = s.Facade.UpdateUserOnlineStatus(ctx, u, online); err == nil {
			return
		}
		if !errors.Is(err, domain.ErrEditConflict) {
			break
		}
	}
	slog.Error("updating online status", "userID", u.ID, "online", online, "error", err)
}

func writeWithTimeout(ctx context.Context, conn *websocket.Conn, t time.Duration, msg any) error {
	ctx, cancel := context.WithTimeout(ctx, t)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

func isClosedConnErr(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway, websocket.StatusAbnormalClosure:
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, context.Canceled)
}
