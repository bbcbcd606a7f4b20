package client

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/client/repository"
	"github.com/M0hammadUsman/listingchat/internal/common"
	"github.com/M0hammadUsman/listingchat/internal/domain"
)

// Client wires a Session of the logged-in user to the API, its change feed & the local cache
type Client struct {
	*Session
	Listener *Listener
	Store    *HTTPDatastore
	db       *repository.DB
	bt       *common.BackgroundTask
}

// New resolves the user the token belongs to. When the API is unreachable the user stored by the
// previous run is used, so that cached conversations can still be shown.
func New(ctx context.Context, cfg *common.ClientConfig, token string) (*Client, error) {
	db, err := repository.OpenDB(cfg.CachePath)
	if err != nil {
		return nil, err
	}
	if err = db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	repo := repository.NewLocalRepository(db)
	store := NewHTTPDatastore(cfg.ServerURL, token)

	usr, err := resolveUser(ctx, store, repo)
	if err != nil {
		db.Close()
		return nil, err
	}
	session := NewSession(usr, store, repo)
	poll := PollConfig{
		Interval:         cfg.Poll.Interval,
		MaxInterval:      cfg.Poll.MaxInterval,
		ResubscribeEvery: cfg.Poll.ResubscribeEvery,
	}
	return &Client{
		Session:  session,
		Listener: NewListener(session, NewWsFeed(cfg.ServerURL, token), poll),
		Store:    store,
		db:       db,
		bt:       common.NewBackgroundTask(),
	}, nil
}

func resolveUser(ctx context.Context, store *HTTPDatastore, repo *repository.LocalRepository) (*domain.User, error) {
	cached, _ := repo.GetCurrentUser(ctx) // ignore the error
	usr, err := store.CurrentUser(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrTransientNetwork) && cached != nil {
			slog.Warn("api unreachable, using cached user", "userID", cached.ID)
			return cached, nil
		}
		return nil, err
	}
	// a different user logged in, nothing cached belongs to them
	if cached != nil && cached.ID != usr.ID {
		if err = repo.Reset(ctx); err != nil {
			return nil, err
		}
	}
	if err = repo.SaveCurrentUser(ctx, usr); err != nil {
		slog.Error("unable to save current user to local repo", "err", err.Error())
	}
	return usr, nil
}

// Start loads the initial state and runs the Listener in the background until Close
func (c *Client) Start(ctx context.Context) {
	if _, err := c.Unread.GetUnreadCounts(ctx); err != nil {
		slog.Warn("loading unread counts", "error", err)
	}
	if err := c.LoadConversations(ctx); err != nil {
		slog.Warn("loading conversations", "error", err)
	}
	c.Conversations.ApplyUnread(c.Unread.Snapshot().Counts)
	c.bt.Run("listener", func(shtdwnCtx context.Context) {
		if err := c.Listener.Run(shtdwnCtx); err != nil {
			slog.Error(err.Error())
		}
	})
}

// Close leaves the active conversation, stops the Listener and closes the cache
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.ClearActive(ctx); err != nil {
		slog.Warn("final read on close", "error", err)
	}
	c.bt.Shutdown(5 * time.Second)
	return c.db.Close()
}
