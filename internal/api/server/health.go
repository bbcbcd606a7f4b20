package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

const (
	statusConnected    = "connected"
	statusDisconnected = "disconnected"
	statusDisabled     = "disabled"
)

type HealthStatus struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
	NATS     string `json:"nats"`
}

func (s HealthStatus) Healthy() bool {
	return s.Database != statusDisconnected && s.Redis != statusDisconnected && s.NATS != statusDisconnected
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthChecker reports the reachability of every backing service, a nil dependency is reported disabled
type HealthChecker struct {
	db          Pinger
	redisClient *redis.Client
	nc          *nats.Conn
}

func NewHealthChecker(db Pinger, redisClient *redis.Client, nc *nats.Conn) *HealthChecker {
	return &HealthChecker{db: db, redisClient: redisClient, nc: nc}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{Database: statusDisabled, Redis: statusDisabled, NATS: statusDisabled}

	if h.db != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		status.Database = connStatus(h.db.PingContext(dbCtx) == nil)
	}
	if h.redisClient != nil {
		redisCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		status.Redis = connStatus(h.redisClient.Ping(redisCtx).Err() == nil)
	}
	if h.nc != nil {
		status.NATS = connStatus(h.nc.IsConnected())
	}
	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if status.Healthy() {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func connStatus(ok bool) string {
	if ok {
		return statusConnected
	}
	return statusDisconnected
}
