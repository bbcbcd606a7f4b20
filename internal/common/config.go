package common

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "LISTINGCHAT"

type Config struct {
	Port int    `mapstructure:"port"`
	ENV  string `mapstructure:"env"`
	DB   struct {
		DSN             string        `mapstructure:"dsn"`
		MaxOpenConn     int           `mapstructure:"max_open_conn"`
		MaxIdleConn     int           `mapstructure:"max_idle_conn"`
		MaxIdleConnTime time.Duration `mapstructure:"max_idle_time"`
	} `mapstructure:"db"`
	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		Sender   string `mapstructure:"sender"`
	} `mapstructure:"smtp"`
	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		TTL      time.Duration `mapstructure:"ttl"`
	} `mapstructure:"redis"`
	NATS struct {
		URL           string        `mapstructure:"url"`
		MaxReconnects int           `mapstructure:"max_reconnects"`
		ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	} `mapstructure:"nats"`
	Feed struct {
		// per connection outbound events per second
		RateLimit float64 `mapstructure:"rate_limit"`
		Burst     int     `mapstructure:"burst"`
	} `mapstructure:"feed"`
}

// ClientConfig configures the CLI client & its listener
type ClientConfig struct {
	ENV       string `mapstructure:"env"`
	ServerURL string `mapstructure:"server_url"`
	CachePath string `mapstructure:"cache_path"`
	Poll      struct {
		Interval    time.Duration `mapstructure:"interval"`
		MaxInterval time.Duration `mapstructure:"max_interval"`
		// resubscribe attempt every n poll ticks
		ResubscribeEvery int `mapstructure:"resubscribe_every"`
	} `mapstructure:"poll"`
}

// LoadConfig resolves the API server config from defaults, an optional YAML file, LISTINGCHAT_* env vars
// & command line flags, later sources win.
func LoadConfig(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("listingchat-api", pflag.ContinueOnError)
	fs.String("config", "", "Path to a YAML config file")
	fs.Int("port", 8080, "API server Port")
	fs.String("env", "dev", "Environment (dev|stag|prod)")
	// DB Flags
	fs.String("db-dsn", "", "PostgreSQL DSN, in-memory store when empty")
	fs.Int("db-max-open-conn", 25, "PostgreSQL max open connections")
	fs.Int("db-max-idle-conn", 25, "PostgreSQL max idle connections")
	fs.Duration("db-max-idle-time", 15*time.Minute, "PostgreSQL max idle connection time")
	// SMTP Flags
	fs.String("smtp-host", "", "SMTP server host, notifications are disabled when empty")
	fs.Int("smtp-port", 587, "SMTP server port")
	fs.String("smtp-username", "", "SMTP username")
	fs.String("smtp-password", "", "SMTP password")
	fs.String("smtp-sender", "Listingchat <no-reply@listingchat.local>", "SMTP sender")
	// Redis Flags
	fs.String("redis-addr", "", "Redis address, unread counts are not cached when empty")
	fs.String("redis-password", "", "Redis password")
	fs.Int("redis-db", 0, "Redis database")
	fs.Duration("redis-ttl", 10*time.Minute, "Unread counts cache TTL")
	// NATS Flags
	fs.String("nats-url", "", "NATS URL, in-process feed when empty")
	fs.Int("nats-max-reconnects", 60, "NATS max reconnect attempts")
	fs.Duration("nats-reconnect-wait", 2*time.Second, "NATS wait between reconnects")
	// Feed Flags
	fs.Float64("feed-rate-limit", 20, "Max feed events per second per connection")
	fs.Int("feed-burst", 40, "Feed events burst per connection")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	v, err := newViper(fs)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err = v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

func LoadClientConfig(fs *pflag.FlagSet, args []string) (*ClientConfig, error) {
	fs.String("config", "", "Path to a YAML config file")
	fs.String("env", "dev", "Environment (dev|stag|prod)")
	fs.String("server-url", "http://localhost:8080", "API server base URL")
	fs.String("cache-path", "listingchat.db", "Local SQLite cache file")
	fs.Duration("poll-interval", 3*time.Second, "Polling interval while the live feed is down")
	fs.Duration("poll-max-interval", time.Minute, "Polling backoff ceiling")
	fs.Int("poll-resubscribe-every", 5, "Resubscribe attempt every n poll ticks")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	v, err := newViper(fs)
	if err != nil {
		return nil, err
	}
	var cfg ClientConfig
	if err = v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// newViper binds every flag under its dotted key, "db-max-open-conn" becomes "db.max_open_conn" which
// reads LISTINGCHAT_DB_MAX_OPEN_CONN from the environment.
func newViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		if err := v.BindPFlag(flagKey(f.Name), f); err != nil {
			bindErr = errors.Join(bindErr, err)
		}
	})
	if bindErr != nil {
		return nil, bindErr
	}
	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return v, nil
}

func flagKey(name string) string {
	section, rest, ok := strings.Cut(name, "-")
	switch section {
	case "db", "smtp", "redis", "nats", "feed", "poll":
		if ok {
			return section + "." + strings.ReplaceAll(rest, "-", "_")
		}
	}
	return strings.ReplaceAll(name, "-", "_")
}
