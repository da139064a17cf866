package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// recordingResolver resolves tokens according to a scripted outcome per
// token and records the poll order.
type recordingResolver struct {
	mu      sync.Mutex
	outcome map[string]bool
	err     error
	polled  []string
}

func (r *recordingResolver) resolve(_ context.Context, token string, _ *Route) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polled = append(r.polled, token)
	if r.err != nil {
		return false, r.err
	}
	return r.outcome[token], nil
}

func (r *recordingResolver) polls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.polled...)
}

func testQueue(resolver *recordingResolver) *pollingQueue {
	return newPollingQueue(resolver.resolve, zerolog.Nop(), nil)
}

func TestQueueDrainFIFO(t *testing.T) {
	resolver := &recordingResolver{outcome: map[string]bool{"t1": true, "t2": true, "t3": true}}
	q := testQueue(resolver)

	route := &Route{}
	q.Add("t1", route)
	q.Add("t2", route)
	q.Add("t3", route)

	if err := q.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	polled := resolver.polls()
	want := []string{"t1", "t2", "t3"}
	if len(polled) != len(want) {
		t.Fatalf("expected polls %v, got %v", want, polled)
	}
	for i := range want {
		if polled[i] != want[i] {
			t.Fatalf("expected FIFO polls %v, got %v", want, polled)
		}
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d entries", q.Len())
	}
}

func TestQueueUnresolvedTokenStays(t *testing.T) {
	resolver := &recordingResolver{outcome: map[string]bool{"t1": false}}
	q := testQueue(resolver)
	q.Add("t1", &Route{})

	if err := q.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("unresolved token must stay queued")
	}

	resolver.mu.Lock()
	resolver.outcome["t1"] = true
	resolver.mu.Unlock()

	if err := q.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if q.Len() != 0 {
		t.Error("resolved token must leave the queue")
	}
}

func TestQueueReAddKeepsPosition(t *testing.T) {
	resolver := &recordingResolver{outcome: map[string]bool{"t1": true, "t2": true}}
	q := testQueue(resolver)

	q.Add("t1", &Route{})
	q.Add("t2", &Route{})
	q.Add("t1", &Route{})

	if q.Len() != 2 {
		t.Fatalf("duplicate token must not grow the queue, got %d", q.Len())
	}

	if err := q.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	polled := resolver.polls()
	if len(polled) != 2 || polled[0] != "t1" || polled[1] != "t2" {
		t.Errorf("re-added token must keep its original position, polls %v", polled)
	}
}

func TestQueueDrainError(t *testing.T) {
	wantErr := errors.New("poll exploded")
	resolver := &recordingResolver{err: wantErr}
	q := testQueue(resolver)
	q.Add("t1", &Route{})

	if err := q.Drain(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected resolver error, got %v", err)
	}
	if q.Len() != 1 {
		t.Error("token must stay queued after a failed pass")
	}
}

func TestQueueDrainSingleFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex

	q := newPollingQueue(func(context.Context, string, *Route) (bool, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(entered)
		<-release
		return true, nil
	}, zerolog.Nop(), nil)
	q.Add("t1", &Route{})

	done := make(chan error, 1)
	go func() { done <- q.Drain(context.Background()) }()
	<-entered

	// Overlapping pass is skipped, not serialized.
	if err := q.Drain(context.Background()); err != nil {
		t.Fatalf("overlapping Drain failed: %v", err)
	}
	mu.Lock()
	if calls != 1 {
		t.Errorf("expected 1 resolver call during overlap, got %d", calls)
	}
	mu.Unlock()

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
}

func TestQueueWaitReturnsWhenEmpty(t *testing.T) {
	resolver := &recordingResolver{}
	q := testQueue(resolver)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("Wait on empty queue failed: %v", err)
	}
}

func TestQueueWaitForcesDrain(t *testing.T) {
	resolver := &recordingResolver{outcome: map[string]bool{"t1": true}}
	q := testQueue(resolver)
	q.Add("t1", &Route{})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if len(resolver.polls()) == 0 {
		t.Error("Wait must force drain passes while tokens remain")
	}
}

func TestQueueWaitCancelled(t *testing.T) {
	resolver := &recordingResolver{outcome: map[string]bool{"t1": false}}
	q := testQueue(resolver)
	q.Add("t1", &Route{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := q.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
