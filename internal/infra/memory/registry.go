package memory

import (
	"sync"

	"quizhub/internal/app"
	"quizhub/internal/domain"
)

// SessionRegistry is the in-process owner of live runtimes, keyed by PIN.
type SessionRegistry struct {
	mu       sync.RWMutex
	runtimes map[string]*app.Runtime
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{runtimes: make(map[string]*app.Runtime)}
}

// GetOrCreate returns the runtime for pin, building one from the factory's
// session when absent. The lock spans the factory call so two concurrent
// callers can never construct two runtimes for the same pin.
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
	return runtime, nil
}

func (r *SessionRegistry) TryGet(pin string) (*app.Runtime, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runtime, ok := r.runtimes[pin]
	return runtime, ok
}

// RemoveConnection clears a dropped connection from every runtime.
func (r *SessionRegistry) RemoveConnection(connID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, runtime := range r.runtimes {
		runtime.DropConnection(connID)
	}
}

// DeleteIfEmpty drops a runtime nobody is connected to anymore.
func (r *SessionRegistry) DeleteIfEmpty(pin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	runtime, ok := r.runtimes[pin]
	if !ok {
		return
	}
	if runtime.IsEmpty() {
		delete(r.runtimes, pin)
	}
}
