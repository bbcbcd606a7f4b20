package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/client"
	"github.com/M0hammadUsman/listingchat/internal/common"
	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/spf13/pflag"
)

const usage = `usage: listingchat <command> [flags]

commands:
  register  create an account
  login     authenticate & store the token in the OS keyring
  logout    sign out of every device & forget the stored token
  start     find or start the conversation with a user about a listing
  send      send a message into a conversation
  open      open a conversation & print it as it updates
  watch     print unread counts & the live update state
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "register":
		err = register(ctx, args)
	case "login":
		err = login(ctx, args)
	case "logout":
		err = logout(ctx, args)
	case "start":
		err = start(ctx, args)
	case "send":
		err = send(ctx, args)
	case "open":
		err = open(ctx, args)
	case "watch":
		err = watch(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		var ev *domain.ErrValidation
		if errors.As(err, &ev) {
			for field, msg := range ev.Errors {
				slog.Error("invalid input", "field", field, "error", msg)
			}
		} else {
			slog.Error(err.Error())
		}
		os.Exit(1)
	}
}

func loadConfig(fs *pflag.FlagSet, args []string) (*common.ClientConfig, error) {
	cfg, err := common.LoadClientConfig(fs, args)
	if err != nil {
		return nil, err
	}
	common.ConfigureSlog(os.Stderr, common.LevelForEnv(cfg.ENV))
	return cfg, nil
}

func register(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("register", pflag.ContinueOnError)
	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Email")
	password := fs.String("password", "", "Password")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	u, err := client.NewHTTPDatastore(cfg.ServerURL, "").
		Register(ctx, &domain.UserRegister{Name: *name, Email: *email, Password: *password})
	if err != nil {
		return err
	}
	fmt.Printf("registered %s (%s)\n", u.Email, u.ID)
	return nil
}

func login(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	email := fs.String("email", "", "Email")
	password := fs.String("password", "", "Password")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	kr, err := client.OpenKeyring(cfg.ServerURL)
	if err != nil {
		return err
	}
	token, err := client.NewHTTPDatastore(cfg.ServerURL, "").
		Login(ctx, &domain.UserAuth{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	if err = kr.SetAuthToken(*email, token); err != nil {
		return err
	}
	fmt.Println("logged in as", *email)
	return nil
}

func logout(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("logout", pflag.ContinueOnError)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	kr, err := client.OpenKeyring(cfg.ServerURL)
	if err != nil {
		return err
	}
	token, err := kr.AuthToken()
	if err != nil {
		return err
	}
	if err = client.NewHTTPDatastore(cfg.ServerURL, token).Logout(ctx); err != nil && !errors.Is(err, domain.ErrNotAuthenticated) {
		return err
	}
	return kr.RemoveAuthToken()
}

// connect builds a Client for the stored token
func connect(ctx context.Context, cfg *common.ClientConfig) (*client.Client, error) {
	kr, err := client.OpenKeyring(cfg.ServerURL)
	if err != nil {
		return nil, err
	}
	token, err := kr.AuthToken()
	if err != nil {
		return nil, err
	}
	c, err := client.New(ctx, cfg, token)
	if errors.Is(err, domain.ErrNotAuthenticated) {
		_ = kr.RemoveAuthToken()
		return nil, fmt.Errorf("%w, login again", err)
	}
	return c, err
}

func start(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("start", pflag.ContinueOnError)
	with := fs.String("with", "", "ID of the user to talk to")
	listing := fs.String("listing", "", "Listing the conversation is about")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	c, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	var listingID *string
	if *listing != "" {
		listingID = listing
	}
	convo, created, err := c.EnsureConversation(ctx, *with, listingID)
	if err != nil {
		return err
	}
	if created {
		fmt.Println("started", convo.ID)
	} else {
		fmt.Println("existing", convo.ID)
	}
	return nil
}

func send(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("send", pflag.ContinueOnError)
	convoID := fs.StringP("conversation", "c", "", "Conversation ID")
	retries := fs.Int("retries", 3, "Attempts when the API is unreachable")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	c, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	in := &domain.MessageSend{Content: strings.Join(fs.Args(), " ")}
	for attempt := 1; ; attempt++ {
		var m *domain.Message
		m, err = c.Send(ctx, *convoID, in)
		if err == nil {
			fmt.Println("sent", m.ID)
			return nil
		}
		if !errors.Is(err, domain.ErrTransientNetwork) || attempt >= *retries {
			return err
		}
		slog.Warn("send failed, retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
}

func open(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("open", pflag.ContinueOnError)
	convoID := fs.StringP("conversation", "c", "", "Conversation ID")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	c, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	c.Start(ctx)
	if err = c.SetActive(ctx, *convoID); err != nil {
		if !errors.Is(err, domain.ErrTransientNetwork) {
			return err
		}
		slog.Warn("showing cached messages", "error", err)
	}

	token, updates := c.Conversations.Subscribe()
	defer c.Conversations.Unsubscribe(token)
	printed := make(map[string]bool)
	for {
		for _, m := range c.Thread().Messages() {
			if printed[m.ID] {
				continue
			}
			printed[m.ID] = true
			who := "them"
			if m.SenderID == c.User().ID {
				who = "me"
			}
			fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format(time.DateTime), who, m.Content)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-updates:
		}
	}
}

func watch(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	c, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	c.Start(ctx)

	unreadToken, unread := c.Unread.Subscribe()
	defer c.Unread.Unsubscribe(unreadToken)
	stateToken, states := c.Listener.SubscribeState()
	defer c.Listener.UnsubscribeState(stateToken)
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-states:
			slog.Info("live updates", "state", s.String())
		case snap := <-unread:
			slog.Info("unread", "total", snap.Total, "conversations", len(snap.Counts))
			for id, n := range snap.Counts {
				slog.Debug("unread conversation", "conversationID", id, "count", n)
			}
		}
	}
}
