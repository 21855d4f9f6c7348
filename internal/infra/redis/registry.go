package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quizhub/internal/app"
	"quizhub/internal/domain"
)

// SessionRegistry is a Redis-aware implementation of app.SessionRegistry.
// Notes:
//   - Runtimes stay in a local in-memory map so the in-process broadcast
//     and timer logic keeps working.
//   - Redis marks session liveness under a TTL (and could be extended to
//     route cross-instance pub/sub); a PIN's liveness key doubles as a
//     cross-process collision signal.
type SessionRegistry struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	runtimes map[string]*app.Runtime
}

func NewSessionRegistry(client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		client:   client,
		ttl:      ttl,
		runtimes: make(map[string]*app.Runtime),
	}
}

func (r *SessionRegistry) GetOrCreate(pin string, factory func() (*domain.Session, error)) (*app.Runtime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if runtime, ok := r.runtimes[pin]; ok {
		return runtime, nil
	}
	session, err := factory()
	if err != nil {
		return nil, err
	}
	runtime := app.NewRuntime(session)
	r.runtimes[pin] = runtime
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(pin), "1", r.ttl).Err()
	return runtime, nil
}

func (r *SessionRegistry) TryGet(pin string) (*app.Runtime, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runtime, ok := r.runtimes[pin]
	return runtime, ok
}

func (r *SessionRegistry) RemoveConnection(connID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, runtime := range r.runtimes {
		runtime.DropConnection(connID)
	}
}

// DeleteIfEmpty drops a runtime nobody is connected to and clears its
// liveness key.
func (r *SessionRegistry) DeleteIfEmpty(pin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	runtime, ok := r.runtimes[pin]
	if !ok {
		return
	}
	if runtime.IsEmpty() {
		delete(r.runtimes, pin)
		_ = r.client.Del(context.Background(), r.key(pin)).Err()
	}
}

func (r *SessionRegistry) key(pin string) string {
	return "session:live:" + pin
}
