package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/EvgeniyStrigo/skyscanner-app/pkg/telemetry"
)

// resolveFunc polls one pending search. It reports whether the token was
// resolved (and must leave the queue); a false result leaves the token
// queued for the next pass. Errors are fatal to the run.
type resolveFunc func(ctx context.Context, token string, route *Route) (bool, error)

// pollingQueue holds the session tokens of searches whose results are not
// ready yet, keyed by token in arrival order. Drain passes are single-flight
// per queue: an overlapping pass is skipped, never serialized, so the drain
// cadence stays tied to the tickers that trigger it.
type pollingQueue struct {
	resolve resolveFunc
	logger  zerolog.Logger
	metrics *telemetry.Metrics

	mu      sync.Mutex
	entries map[string]*Route
	order   []string
	waiters []chan struct{}

	draining atomic.Bool
}

func newPollingQueue(resolve resolveFunc, logger zerolog.Logger, metrics *telemetry.Metrics) *pollingQueue {
	return &pollingQueue{
		resolve: resolve,
		logger:  logger,
		metrics: metrics,
		entries: make(map[string]*Route),
	}
}

// Add queues a pending search. Tokens are unique; re-adding an existing
// token keeps its original position.
func (q *pollingQueue) Add(token string, route *Route) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.entries[token]; !exists {
		q.order = append(q.order, token)
	}
	q.entries[token] = route
	q.metrics.SetQueueDepth(len(q.entries))
}

// Len returns the number of pending searches.
func (q *pollingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// snapshot returns the still-queued tokens in FIFO order.
func (q *pollingQueue) snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	tokens := make([]string, 0, len(q.entries))
	for _, token := range q.order {
		if _, ok := q.entries[token]; ok {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// lookup returns the route for a token, if still queued.
func (q *pollingQueue) lookup(token string) (*Route, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	route, ok := q.entries[token]
	return route, ok
}

// remove deletes a resolved token. Each token is removed exactly once; when
// the last one goes, every Wait call is released.
func (q *pollingQueue) remove(token string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.entries[token]; !ok {
		return
	}
	delete(q.entries, token)
	q.metrics.SetQueueDepth(len(q.entries))

	if len(q.entries) == 0 {
		q.order = q.order[:0]
		for _, ch := range q.waiters {
			close(ch)
		}
		q.waiters = nil
	}
}

// emptied returns a channel closed once the queue holds no pending searches.
func (q *pollingQueue) emptied() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch := make(chan struct{})
	if len(q.entries) == 0 {
		close(ch)
		return ch
	}
	q.waiters = append(q.waiters, ch)
	return ch
}

// Drain runs one pass over the tokens queued at pass start, polling each in
// FIFO order. A pass already in flight makes Drain a no-op. Tokens that stay
// unresolved are left for the next pass; polling a token removed meanwhile
// is a no-op.
func (q *pollingQueue) Drain(ctx context.Context) error {
	if !q.draining.CompareAndSwap(false, true) {
		return nil
	}
	defer q.draining.Store(false)

	tokens := q.snapshot()
	if len(tokens) == 0 {
		return nil
	}

	q.say("start to process queue")
	for _, token := range tokens {
		route, ok := q.lookup(token)
		if !ok {
			continue
		}

		resolved, err := q.resolve(ctx, token, route)
		if err != nil {
			return err
		}
		if resolved {
			q.remove(token)
		}
	}
	q.say("finish to process queue")

	return nil
}

// Wait blocks until the queue is empty, forcing a drain pass once per second
// while tokens remain. It is the run-level barrier between dispatch and the
// final sort.
func (q *pollingQueue) Wait(ctx context.Context) error {
	emptied := q.emptied()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-emptied:
			return nil
		case <-ticker.C:
			if err := q.Drain(ctx); err != nil {
				return err
			}
		}
	}
}

func (q *pollingQueue) say(msg string) {
	q.logger.Info().Msg(msg)
}
