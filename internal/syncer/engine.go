// Package syncer moves pending local rows to the remote store and pulls
// remote-authoritative documents back, with connectivity awareness. One
// engine instance owns its own single-flight guard and subscriber list;
// construct it explicitly and hand it to whoever needs it.
package syncer

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"mealtrack/internal/logging"
	"mealtrack/internal/remote"
	"mealtrack/internal/repositories/configs"
	"mealtrack/internal/repositories/foods"
	"mealtrack/internal/repositories/profiles"
	"mealtrack/internal/repositories/records"
	"mealtrack/internal/repositories/templates"
)

// Repositories bundles the per-entity repositories the engine reads and
// writes through. The engine keeps no copies of any row.
type Repositories struct {
	Records   records.Repository
	Configs   configs.Repository
	Templates templates.Repository
	Profiles  profiles.Repository
	Foods     foods.Repository
}

// Engine orchestrates push and pull passes against the remote store.
type Engine struct {
	repos   Repositories
	remote  remote.Store
	log     logging.Logger
	timeout time.Duration // per remote call

	inFlight atomic.Bool

	mu     sync.Mutex
	nextID int
	subs   []subscriber
}

type subscriber struct {
	id int
	ch chan bool
}

// New returns an engine pushing through repos to rs. timeout bounds every
// individual remote call; a timed-out call is a per-row failure, never fatal
// to the pass.
func New(repos Repositories, rs remote.Store, log logging.Logger, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Engine{repos: repos, remote: rs, log: log, timeout: timeout}
}

// Subscribe registers for busy-state transitions: true when a push pass
// starts, false when it ends (or when connectivity drops). The returned
// function removes the subscription.
func (e *Engine) Subscribe() (<-chan bool, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	ch := make(chan bool, 1)
	e.subs = append(e.subs, subscriber{id: id, ch: ch})

	unsubscribe := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.subs {
			if s.id == id {
				e.subs = slices.Delete(e.subs, i, i+1)
				return
			}
		}
	}
	return ch, unsubscribe
}

// notify fans the busy state out to all subscribers in subscription order.
// Each subscriber channel holds one value; when a consumer lags, the stale
// undelivered state is replaced so the engine never blocks on a subscriber.
func (e *Engine) notify(busy bool) {
	e.mu.Lock()
	subs := slices.Clone(e.subs)
	e.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- busy:
		default:
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- busy:
			default:
			}
		}
	}
}

// Run consumes connectivity transitions until ctx is cancelled or the
// channel closes. Coming back online triggers a push pass; going offline
// only updates subscribers — an in-flight pass is not cancelled.
func (e *Engine) Run(ctx context.Context, online <-chan bool, userID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-online:
			if !ok {
				return
			}
			if state {
				e.log.Debug(ctx, "connectivity restored, starting sync", "user", userID)
				e.SyncAll(ctx, userID)
			} else {
				e.log.Debug(ctx, "connectivity lost", "user", userID)
				e.notify(false)
			}
		}
	}
}
