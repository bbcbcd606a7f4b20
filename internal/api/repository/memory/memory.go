// Package memory is a process local datastore with the same contract as the postgres repositories,
// including the conversation uniqueness constraint. It backs the dev server when no DSN is configured
// and the service & handler tests.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"
)

type ctxKey string

const txCtxKey = ctxKey("TX")

type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data data
}

type data struct {
	users    map[string]user
	tokens   map[string]token
	convos   map[string]conversation
	convKeys map[string]string
	msgs     map[string]message
	byConv   map[string][]string
	clientID map[string]string
	lastTS   time.Time
}

func New() *Store {
	return &Store{data: data{
		users:    make(map[string]user),
		tokens:   make(map[string]token),
		convos:   make(map[string]conversation),
		convKeys: make(map[string]string),
		msgs:     make(map[string]message),
		byConv:   make(map[string][]string),
		clientID: make(map[string]string),
	}}
}

// RunInTX serializes writers against the transaction and restores the previous state when fn fails.
// Reads outside a transaction are not blocked by it.
func (s *Store) RunInTX(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txCtxKey) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()
	if err := fn(context.WithValue(ctx, txCtxKey, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// lock acquires the write lock, waiting for a running transaction unless ctx belongs to it
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txCtxKey) != nil {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

func (s *Store) PingContext(context.Context) error {
	return nil
}

// now is strictly increasing & truncated to the datastore's microsecond precision
func (s *Store) now() time.Time {
	t := time.Now().UTC().Truncate(time.Microsecond)
	if !t.After(s.data.lastTS) {
		t = s.data.lastTS.Add(time.Microsecond)
	}
	s.data.lastTS = t
	return t
}

func (d data) clone() data {
	c := data{
		users:    maps.Clone(d.users),
		tokens:   maps.Clone(d.tokens),
		convos:   maps.Clone(d.convos),
		convKeys: maps.Clone(d.convKeys),
		msgs:     maps.Clone(d.msgs),
		byConv:   make(map[string][]string, len(d.byConv)),
		clientID: maps.Clone(d.clientID),
		lastTS:   d.lastTS,
	}
	for k, v := range d.byConv {
		c.byConv[k] = append([]string(nil), v...)
	}
	return c
}
