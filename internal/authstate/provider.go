// Package authstate resolves and tracks the authentication state of browser
// sessions.
//
// A session starts out loading while its stored user ID is checked against the
// user store in the background. The check resolves the state exactly once;
// afterwards only explicit login and logout events change it. Checks that fail
// or time out resolve to unauthenticated so that route guarding always
// terminates.
package authstate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mabego/chat-mysql/internal/guard"
	"github.com/mabego/chat-mysql/internal/metrics"
)

var ErrCheckTimeout = errors.New("authentication check timed out")

// Checker reports whether a user ID still belongs to an active account.
type Checker interface {
	Exists(ctx context.Context, id int) (bool, error)
}

type entry struct {
	userID   int
	state    guard.State
	seen     time.Time
	watchers map[chan guard.State]struct{}
}

// Provider holds one state per session token. It is safe for concurrent use.
type Provider struct {
	checker  Checker
	timeout  time.Duration
	errorLog *log.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

func NewProvider(checker Checker, timeout time.Duration, errorLog *log.Logger, m *metrics.Metrics) *Provider {
	return &Provider{
		checker:  checker,
		timeout:  timeout,
		errorLog: errorLog,
		metrics:  m,
		now:      time.Now,
		entries:  make(map[string]*entry),
	}
}

// Resolve returns the current state for the session identified by key, whose
// session data carries userID (0 when nobody is logged in). The first call for
// a new key or user starts a background check and reports Loading.
func (p *Provider) Resolve(key string, userID int) guard.State {
	if key == "" {
		return guard.State{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[key]
	if ok {
		e.seen = p.now()
		if e.userID == userID {
			return e.state
		}
	}

	if userID == 0 {
		if ok {
			p.update(e, 0, guard.State{})
		}
		return guard.State{}
	}

	if !ok {
		e = p.newEntry(key)
	}
	p.update(e, userID, guard.State{Loading: true})

	go p.check(key, userID)

	return e.state
}

// Login records a successful credential check. No background check is needed.
func (p *Provider) Login(key string, userID int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[key]
	if !ok {
		e = p.newEntry(key)
	}
	e.seen = p.now()
	p.update(e, userID, guard.State{IsAuthenticated: true})
}

func (p *Provider) Logout(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.entries[key]; ok {
		e.seen = p.now()
		p.update(e, 0, guard.State{})
	}
}

// Watch subscribes to state changes for key. The current state is delivered
// immediately. A slow receiver only misses intermediate states, never the
// latest one. The returned function ends the subscription. Only sessions
// already tracked through Resolve or Login can be watched; ok is false
// otherwise.
func (p *Provider) Watch(key string) (states <-chan guard.State, cancel func(), ok bool) {
	ch := make(chan guard.State, 1)

	p.mu.Lock()
	e, ok := p.entries[key]
	if !ok || key == "" {
		p.mu.Unlock()
		return nil, nil, false
	}
	e.seen = p.now()
	e.watchers[ch] = struct{}{}
	ch <- e.state
	p.mu.Unlock()

	p.metrics.WatcherAdded()

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			p.mu.Lock()
			if e, ok := p.entries[key]; ok {
				delete(e.watchers, ch)
				e.seen = p.now()
			}
			p.mu.Unlock()
			p.metrics.WatcherRemoved()
		})
	}

	return ch, cancel, true
}

// Prune forgets sessions that have not been touched within maxIdle and have no
// watchers. It returns the number of sessions removed.
func (p *Provider) Prune(maxIdle time.Duration) int {
	cutoff := p.now().Add(-maxIdle)

	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for key, e := range p.entries {
		if len(e.watchers) == 0 && e.seen.Before(cutoff) {
			delete(p.entries, key)
			n++
		}
	}

	return n
}

// Run prunes idle sessions every interval until ctx is done.
func (p *Provider) Run(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(maxIdle)
		}
	}
}

func (p *Provider) newEntry(key string) *entry {
	e := &entry{
		seen:     p.now(),
		watchers: make(map[chan guard.State]struct{}),
	}
	p.entries[key] = e

	return e
}

// update must be called with p.mu held.
func (p *Provider) update(e *entry, userID int, s guard.State) {
	e.userID = userID
	if e.state == s {
		return
	}
	e.state = s

	for ch := range e.watchers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

type checkResult struct {
	exists bool
	err    error
}

// checkOutcome labels a finished check. A checker that honours ctx reports the
// deadline itself, so both forms count as a timeout.
func checkOutcome(res checkResult) string {
	switch {
	case errors.Is(res.err, ErrCheckTimeout), errors.Is(res.err, context.DeadlineExceeded):
		return "timeout"
	case res.err != nil:
		return "error"
	case !res.exists:
		return "unknown_user"
	default:
		return "authenticated"
	}
}

func (p *Provider) check(key string, userID int) {
	start := p.now()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	done := make(chan checkResult, 1)
	go func() {
		exists, err := p.checker.Exists(ctx, userID)
		done <- checkResult{exists: exists, err: err}
	}()

	var res checkResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = fmt.Errorf("%w: user %d", ErrCheckTimeout, userID)
	}

	p.metrics.ObserveAuthCheck(checkOutcome(res), p.now().Sub(start))

	if res.err != nil {
		p.errorLog.Printf("authentication check: %v", res.err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// A login, logout or a different user may have superseded this check.
	e, ok := p.entries[key]
	if !ok || e.userID != userID || !e.state.Loading {
		return
	}

	p.update(e, userID, guard.State{IsAuthenticated: res.err == nil && res.exists})
}
