package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/api/cache"
	"github.com/M0hammadUsman/listingchat/internal/api/facade"
	"github.com/M0hammadUsman/listingchat/internal/api/feed"
	"github.com/M0hammadUsman/listingchat/internal/api/mailer"
	"github.com/M0hammadUsman/listingchat/internal/api/repository"
	"github.com/M0hammadUsman/listingchat/internal/api/repository/memory"
	"github.com/M0hammadUsman/listingchat/internal/api/server"
	"github.com/M0hammadUsman/listingchat/internal/api/service"
	"github.com/M0hammadUsman/listingchat/internal/common"
	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := common.LoadConfig(os.Args[1:])
	if err != nil {
		slog.Error(err.Error())
		os.Exit(2)
	}
	common.ConfigureSlog(os.Stderr, common.LevelForEnv(cfg.ENV))
	if err = run(cfg); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

type repositories struct {
	user  domain.UserRepository
	token domain.TokenRepository
	convo domain.ConversationRepository
	msg   domain.MessageRepository
	tx    facade.TXManager
	ping  server.Pinger
}

func run(cfg *common.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Base
	repos, closeDB, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()
	bgTask := common.NewBackgroundTask()

	var unreadCache domain.UnreadCache = cache.Noop{}
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = cache.NewRedisClient(cfg)
		defer rdb.Close()
		unreadCache = cache.NewUnreadCache(rdb, cfg.Redis.TTL)
	}

	var changeFeed domain.ChangeFeed
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		if nc, err = feed.Connect(cfg); err != nil {
			return err
		}
		defer nc.Drain()
		changeFeed = feed.NewNATSFeed(nc)
	} else {
		changeFeed = feed.NewHub()
	}

	var notifier facade.Notifier
	if m := mailer.New(cfg); m != nil {
		notifier = m
	}

	// Services
	srv := service.New(
		service.NewUserService(repos.user),
		service.NewTokenService(repos.token),
		service.NewConversationService(repos.convo, repos.user),
		service.NewMessageService(repos.msg, repos.convo, unreadCache),
	)
	// Facades
	fac := facade.New(
		facade.NewUserFacade(srv),
		facade.NewTokenFacade(srv, repos.tx),
		facade.NewMessageFacade(srv, repos.tx, changeFeed, unreadCache, notifier, bgTask),
		facade.NewConversationFacade(srv, changeFeed),
	)

	s := server.NewServer(cfg, bgTask, fac, changeFeed, server.NewHealthChecker(repos.ping, rdb, nc))
	err = s.Serve(ctx)
	bgTask.Shutdown(5 * time.Second)
	return err
}

// openRepositories falls back to the in-memory store when no DSN is configured
func openRepositories(ctx context.Context, cfg *common.Config) (*repositories, func(), error) {
	if cfg.DB.DSN == "" {
		slog.Warn("No database DSN configured, using the in-memory store")
		store := memory.New()
		return &repositories{
			user:  memory.NewUserRepository(store),
			token: memory.NewTokenRepository(store),
			convo: memory.NewConversationRepository(store),
			msg:   memory.NewMessageRepository(store),
			tx:    store,
			ping:  store,
		}, func() {}, nil
	}
	db, err := repository.OpenDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err = db.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return &repositories{
		user:  repository.NewUserRepository(db),
		token: repository.NewTokenRepository(db),
		convo: repository.NewConversationRepository(db),
		msg:   repository.NewMessageRepository(db),
		tx:    db,
		ping:  db,
	}, func() { _ = db.Close() }, nil
}
