package sync

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
)

// Broadcaster holds the latest value written to it and relays every write to the subscribed chans. A
// subscriber only ever sees the most recent value, a slow reader skips intermediate ones instead of
// blocking the writer. Unsubscribe must be called with the token returned by Subscribe.
type Broadcaster[T any] struct {
	mu   sync.RWMutex
	cond *sync.Cond
	out  map[int]chan T
	v    T
	next int
	gen  uint64
}

func NewBroadcaster[T any](initial T) *Broadcaster[T] {
	b := &Broadcaster[T]{
		out: make(map[int]chan T),
		v:   initial,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *Broadcaster[T]) Get() T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.v
}

// Subscribe returns a token and a chan that immediately holds the current value
func (b *Broadcaster[T]) Subscribe() (int, <-chan T) {
	c := make(chan T, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	token := b.next
	b.out[token] = c
	b.next++
	c <- b.v
	return token, c
}

func (b *Broadcaster[T]) Unsubscribe(token int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.out[token]
	if !ok {
		slog.Error("channel not found while unsubscribing", "type", reflect.TypeOf(b), "token", token)
		return
	}
	close(ch)
	delete(b.out, token)
}

func (b *Broadcaster[T]) Write(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.v = v
	b.gen++
	for _, ch := range b.out {
		// drop the stale value if the subscriber has not read it yet
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
	b.cond.Broadcast()
}

// WaitFor blocks until the current value satisfies ok or ctx is done
func (b *Broadcaster[T]) WaitFor(ctx context.Context, ok func(T) bool) (T, error) {
	stop := context.AfterFunc(ctx, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.cond.Broadcast()
	})
	defer stop()
	b.mu.Lock()
	defer b.mu.Unlock()
	for !ok(b.v) {
		if err := ctx.Err(); err != nil {
			return b.v, err
		}
		b.cond.Wait()
	}
	return b.v, nil
}
