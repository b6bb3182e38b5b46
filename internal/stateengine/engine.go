// Package stateengine implements StateEngine: the in-memory, optionally
// TTL'd key/value store used both as direct plugin-coordination state and as
// the mirror layer behind Storage (see internal/storagemirror).
//
// A mutex-guarded map of entries backs Get/Set, with a lazy expiry check on
// Get and a ticker-driven background sweeper goroutine for entries no one
// reads again before they expire. TTL is per-key and optional (a nil
// expiresAt entry lives until explicitly deleted); the sweeper starts
// lazily, only once the first TTL'd key is set, and self-terminates once no
// TTL'd keys remain rather than running unconditionally for the life of the
// process.
package stateengine

import (
	"sync"
	"time"
)

// DefaultSweepInterval is how often the background sweeper scans for
// expired keys while at least one TTL'd key exists.
const DefaultSweepInterval = 60 * time.Second

type entry struct {
	value     any
	expiresAt *time.Time
}

// Engine is the StateEngine coordination primitive. The zero value is not
// usable; construct with New.
type Engine struct {
	mu            sync.Mutex
	entries       map[string]*entry
	ttlCount      int
	sweepInterval time.Duration
	sweeperOn     bool
	stopSweep     chan struct{}
	now           func() time.Time
}

// New constructs an empty Engine with the default sweep interval.
func New() *Engine {
	return &Engine{
		entries:       make(map[string]*entry),
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
	}
}

// NewWithSweepInterval is New with an overridden sweep interval, mainly for
// tests that don't want to wait 60 real seconds.
func NewWithSweepInterval(interval time.Duration) *Engine {
	e := New()
	e.sweepInterval = interval
	return e
}

// Get returns the value for key, or ok=false if absent or expired. An
// expired key is evicted lazily on this access even if the sweeper has not
// run yet.
func (e *Engine) Get(key string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getLocked(key)
}

func (e *Engine) getLocked(key string) (any, bool) {
	ent, ok := e.entries[key]
	if !ok {
		return nil, false
	}
	if ent.expiresAt != nil && e.now().After(*ent.expiresAt) {
		e.deleteLocked(key)
		return nil, false
	}
	return ent.value, true
}

// Set stores value under key with no expiration.
func (e *Engine) Set(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setLocked(key, value, nil)
}

// SetWithTTL stores value under key, expiring it ttl from now. Setting a TTL
// lazily starts the background sweeper if it is not already running.
func (e *Engine) SetWithTTL(key string, value any, ttl time.Duration) {
	e.mu.Lock()
	expiresAt := e.now().Add(ttl)
	e.setLocked(key, value, &expiresAt)
	needsSweeper := !e.sweeperOn
	e.mu.Unlock()

	if needsSweeper {
		e.startSweeper()
	}
}

func (e *Engine) setLocked(key string, value any, expiresAt *time.Time) {
	if existing, ok := e.entries[key]; ok && existing.expiresAt != nil {
		e.ttlCount--
	}
	e.entries[key] = &entry{value: value, expiresAt: expiresAt}
	if expiresAt != nil {
		e.ttlCount++
	}
}

// Delete removes key, if present.
func (e *Engine) Delete(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deleteLocked(key)
}

func (e *Engine) deleteLocked(key string) {
	if existing, ok := e.entries[key]; ok {
		if existing.expiresAt != nil {
			e.ttlCount--
		}
		delete(e.entries, key)
	}
}

// Exists reports whether key is present and unexpired.
func (e *Engine) Exists(key string) bool {
	_, ok := e.Get(key)
	return ok
}

// Keys returns every non-expired key currently stored. Expired keys
// encountered during the scan are evicted as a side effect.
func (e *Engine) Keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.entries))
	for key := range e.entries {
		if _, ok := e.getLocked(key); ok {
			out = append(out, key)
		}
	}
	return out
}

// Update bulk-sets every key/value pair in values with no expiration.
func (e *Engine) Update(values map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, value := range values {
		e.setLocked(key, value, nil)
	}
}

// Clear removes every key. Used by CoreRuntime.Shutdown.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = make(map[string]*entry)
	e.ttlCount = 0
	if e.sweeperOn {
		close(e.stopSweep)
		e.sweeperOn = false
	}
}

func (e *Engine) startSweeper() {
	e.mu.Lock()
	if e.sweeperOn {
		e.mu.Unlock()
		return
	}
	e.sweeperOn = true
	e.stopSweep = make(chan struct{})
	stop := e.stopSweep
	e.mu.Unlock()

	go e.sweepLoop(stop)
}

func (e *Engine) sweepLoop(stop chan struct{}) {
	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !e.sweepOnce(stop) {
				return
			}
		}
	}
}

// sweepOnce removes expired entries and reports whether the sweeper should
// keep running (it self-terminates once no TTL'd entries remain).
func (e *Engine) sweepOnce(stop chan struct{}) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	for key, ent := range e.entries {
		if ent.expiresAt != nil && now.After(*ent.expiresAt) {
			e.deleteLocked(key)
		}
	}
	if e.ttlCount == 0 {
		e.sweeperOn = false
		return false
	}
	_ = stop
	return true
}
