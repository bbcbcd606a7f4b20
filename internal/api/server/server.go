package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/api/facade"
	"github.com/M0hammadUsman/listingchat/internal/common"
	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/coder/websocket"
)

type Server struct {
	Config         *common.Config
	BackgroundTask *common.BackgroundTask
	Facade         *facade.Facade
	Feed           domain.ChangeFeed
	Health         *HealthChecker
	wsAcceptOpts   *websocket.AcceptOptions

	SubsMu      sync.Mutex
	Subscribers map[string]int // live feed connections per userID
}

func NewServer(
	cfg *common.Config,
	bt *common.BackgroundTask,
	facade *facade.Facade,
	feed domain.ChangeFeed,
	health *HealthChecker,
) *Server {
	if health == nil {
		health = NewHealthChecker(nil, nil, nil)
	}
	return &Server{
		Config:         cfg,
		BackgroundTask: bt,
		Facade:         facade,
		Feed:           feed,
		Health:         health,
		wsAcceptOpts: &websocket.AcceptOptions{
			CompressionMode:    websocket.CompressionContextTakeover,
			InsecureSkipVerify: true,
		},
		Subscribers: make(map[string]int),
	}
}

func (s *Server) Handler() http.Handler {
	return s.routes()
}

// Serve blocks until ctx is cancelled, then drains in-flight requests
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprint(":", s.Config.Port),
		Handler:      s.routes(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 6 * time.Second,
		IdleTimeout:  time.Minute,
	}
	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		slog.Info("shutting down server", "addr", srv.Addr)
		shtdwnCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownErr <- srv.Shutdown(shtdwnCtx)
	}()
	slog.Info("starting server", "addr", srv.Addr, "env", s.Config.ENV)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}
