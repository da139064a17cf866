package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/EvgeniyStrigo/skyscanner-app/pkg/provider"
	"github.com/EvgeniyStrigo/skyscanner-app/pkg/telemetry"
)

// Searcher executes provider searches. A nil payload with a nil error means
// "nothing usable yet": an abandoned create request or a still-incomplete
// poll.
type Searcher interface {
	CreateSearch(ctx context.Context, query *provider.RouteQuery) (*provider.Payload, error)
	PollSearch(ctx context.Context, sessionToken string) (*provider.Payload, error)
}

// ProgressFunc receives the human-readable progress stream of a run.
type ProgressFunc func(message string)

// SearchParams are the provider query parameters shared by every route of a
// run.
type SearchParams struct {
	Market     string `yaml:"market"`
	Locale     string `yaml:"locale"`
	Currency   string `yaml:"currency"`
	CabinClass string `yaml:"cabinClass"`
}

// withDefaults fills zero params with the stock values.
func (p SearchParams) withDefaults() SearchParams {
	if p.Market == "" {
		p.Market = "HR"
	}
	if p.Locale == "" {
		p.Locale = "ru-RU"
	}
	if p.Currency == "" {
		p.Currency = "EUR"
	}
	if p.CabinClass == "" {
		p.CabinClass = "CABIN_CLASS_ECONOMY"
	}
	return p
}

// Options configures an Engine.
type Options struct {
	// Params are the shared provider query parameters.
	Params SearchParams

	// QueueDelay is the interval between periodic drain passes while routes
	// are still being dispatched.
	QueueDelay time.Duration

	// Progress, when set, receives the run's progress messages.
	Progress ProgressFunc
}

// withDefaults fills zero options with the stock values.
func (o Options) withDefaults() Options {
	o.Params = o.Params.withDefaults()
	if o.QueueDelay == 0 {
		o.QueueDelay = 10 * time.Second
	}
	return o
}

// Engine coordinates one search run at a time: route expansion, dispatch
// through the rate-limited searcher, queue drain, selection and the final
// sort/group. The Engine itself is immutable configuration; every mutable
// counter lives in a per-run context, so separate runs never share state
// beyond the searcher they were given.
type Engine struct {
	opts     Options
	searcher Searcher
	logger   zerolog.Logger
	metrics  *telemetry.Metrics
	tracer   *telemetry.Tracer
}

// New creates an engine around a searcher.
func New(searcher Searcher, opts Options, logger zerolog.Logger, metrics *telemetry.Metrics, tracer *telemetry.Tracer) *Engine {
	return &Engine{
		opts:     opts.withDefaults(),
		searcher: searcher,
		logger:   logger.With().Str("component", "engine").Logger(),
		metrics:  metrics,
		tracer:   tracer,
	}
}

// run is the context of one Process call: the route list, the polling
// queue, the calculation accumulator and the progress counters. It is
// mutated from the dispatch path and the drain path, which interleave.
type run struct {
	id     string
	engine *Engine
	logger zerolog.Logger
	start  time.Time

	routesCount int
	queue       *pollingQueue

	mu           sync.Mutex
	processed    int
	fromCache    int
	calculations []Calculation
	fatalErr     error
}

// RunStats summarizes a completed Process call.
type RunStats struct {
	RunID    string
	Journeys int
	Routes   int
	Elapsed  time.Duration
}

// Process executes one complete run over the given journeys and returns the
// grouped result with the run's statistics. The run tolerates partial
// failures (abandoned routes contribute nothing) but aborts entirely on a
// malformed provider payload.
func (e *Engine) Process(ctx context.Context, journeys []Journey) (GroupedResult, RunStats, error) {
	r := &run{
		id:     uuid.New().String(),
		engine: e,
		start:  time.Now(),
	}
	r.logger = e.logger.With().Str("run_id", r.id).Logger()

	r.say("Start processing")
	r.logger.Info().Int("journeys", len(journeys)).Msg("expanding journeys")

	routes, err := ExpandJourneys(journeys, e.opts.Params)
	if err != nil {
		return nil, RunStats{}, err
	}
	r.routesCount = len(routes)
	r.queue = newPollingQueue(r.resolvePending, r.logger, e.metrics)

	r.say(fmt.Sprintf("Checking %d routes", r.routesCount))

	ctx, span := e.tracer.StartRunSpan(ctx, r.id, r.routesCount)
	defer span.End()

	err = e.dispatchAll(ctx, r, routes)
	if err == nil {
		err = r.queue.Wait(ctx)
	}
	if err == nil {
		err = r.fatal()
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, RunStats{}, err
	}

	calculations := r.take()
	sortCalculations(calculations)
	result := groupCalculations(calculations)

	elapsed := time.Since(r.start)
	e.metrics.RecordRunDuration(elapsed.Seconds())
	r.say(fmt.Sprintf("Finished processing in %s", formatClock(elapsed)))

	return result, RunStats{
		RunID:    r.id,
		Journeys: len(journeys),
		Routes:   r.routesCount,
		Elapsed:  elapsed,
	}, nil
}

// dispatchAll sends every route through the searcher in order while the
// periodic drain ticker runs. Routes are deliberately not fanned out:
// throughput is bounded by the provider's shared rate limit, not by route
// count.
func (e *Engine) dispatchAll(ctx context.Context, r *run, routes []Route) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(e.opts.QueueDelay)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.queue.Drain(ctx); err != nil {
					r.setFatal(err)
				}
			}
		}
	}()
	defer func() {
		close(stop)
		wg.Wait()
	}()

	for i := range routes {
		if err := r.fatal(); err != nil {
			return err
		}
		if err := e.dispatch(ctx, r, &routes[i], i); err != nil {
			return err
		}
	}
	return nil
}

// dispatch sends one route. An abandoned request (nil payload) drops the
// route silently; an incomplete search queues its session token for polling.
func (e *Engine) dispatch(ctx context.Context, r *run, route *Route, index int) error {
	ctx, span := e.tracer.StartRouteSpan(ctx, r.id, index)
	defer span.End()

	payload, err := e.searcher.CreateSearch(ctx, &route.Query)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if payload == nil {
		return nil
	}

	if payload.Status == provider.StatusComplete {
		if err := r.accept(route, payload); err != nil {
			telemetry.RecordError(span, err)
			return err
		}
		return nil
	}

	if payload.SessionToken != "" {
		r.queue.Add(payload.SessionToken, route)
	}
	return nil
}

// resolvePending is the queue's drain callback: poll one token and, when the
// result arrived, feed it through selection.
func (r *run) resolvePending(ctx context.Context, token string, route *Route) (bool, error) {
	payload, err := r.engine.searcher.PollSearch(ctx, token)
	if err != nil {
		return false, err
	}
	if payload == nil {
		return false, nil
	}
	if err := r.accept(route, payload); err != nil {
		return false, err
	}
	return true, nil
}

// accept runs one resolved payload through selection and calculation and
// records progress. Selection errors dump the offending payload before
// aborting the run.
func (r *run) accept(route *Route, payload *provider.Payload) error {
	r.markProcessed(false)

	ids, err := findBestItineraries(payload, route)
	if err != nil {
		r.dumpPayload(payload)
		return err
	}

	added := 0
	for _, id := range ids {
		calculation, err := buildCalculation(payload, route, id)
		if err != nil {
			return err
		}
		if calculation != nil {
			r.addCalculation(*calculation)
			added++
		}
	}
	r.engine.metrics.RecordCalculations(added)

	r.showProgress(false)
	return nil
}

// markProcessed counts one resolved route.
func (r *run) markProcessed(cached bool) {
	r.mu.Lock()
	r.processed++
	if cached {
		r.fromCache++
	}
	r.mu.Unlock()
	r.engine.metrics.RecordRouteProcessed()
}

// addCalculation appends one accepted calculation to the accumulator.
func (r *run) addCalculation(c Calculation) {
	r.mu.Lock()
	r.calculations = append(r.calculations, c)
	r.mu.Unlock()
}

// take hands out the accumulated calculations and clears the accumulator.
func (r *run) take() []Calculation {
	r.mu.Lock()
	defer r.mu.Unlock()
	calculations := r.calculations
	r.calculations = nil
	return calculations
}

// setFatal records the first fatal error of the run.
func (r *run) setFatal(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fatalErr == nil {
		r.fatalErr = err
	}
}

// fatal returns the recorded fatal error, if any.
func (r *run) fatal() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fatalErr
}

// say logs a run message and mirrors it to the progress callback.
func (r *run) say(msg string) {
	r.logger.Info().Msg(msg)
	if r.engine.opts.Progress != nil {
		r.engine.opts.Progress(msg)
	}
}

// dumpPayload emits the payload that broke selection, as the terminal
// diagnostic before the run aborts.
func (r *run) dumpPayload(payload *provider.Payload) {
	raw, err := json.Marshal(payload)
	if err != nil {
		r.say(fmt.Sprintf("unencodable payload: %v", err))
		return
	}
	r.say(string(raw))
}

// showProgress reports the processed/total counts, elapsed time and an ETA
// extrapolated from the non-cached throughput so far. The cache-hit counter
// is reserved for caching reintroduction and stays zero.
func (r *run) showProgress(cached bool) {
	r.mu.Lock()
	processed, fromCache := r.processed, r.fromCache
	r.mu.Unlock()

	nonCachedRoutes := r.routesCount - fromCache
	nonCachedProcessed := processed - fromCache

	percent := float64(processed) / float64(r.routesCount) * 100
	elapsed := time.Since(r.start)

	eta := "please, wait..."
	if nonCachedRoutes > 0 && nonCachedProcessed > 0 {
		realPercent := float64(nonCachedProcessed) / float64(nonCachedRoutes) * 100
		remaining := time.Duration((100 - realPercent) / realPercent * float64(elapsed))
		eta = formatClock(remaining)
	}

	suffix := ""
	if cached {
		suffix = " [cached]"
	}

	r.say(fmt.Sprintf("processed route %d of %d (%.0f%%), time: %s, eta: %s%s",
		processed, r.routesCount, percent, formatClock(elapsed), eta, suffix))
}

// sortCalculations orders calculations by price, then rate, then total
// flown duration, then start timestamp, then group label. The chain is a
// strict total order, so equal inputs always sort identically.
func sortCalculations(calculations []Calculation) {
	sort.SliceStable(calculations, func(i, j int) bool {
		a, b := &calculations[i], &calculations[j]
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		if a.Rate != b.Rate {
			return a.Rate < b.Rate
		}
		if a.TotalFlightsDuration != b.TotalFlightsDuration {
			return a.TotalFlightsDuration < b.TotalFlightsDuration
		}
		if a.StartTimestamp != b.StartTimestamp {
			return a.StartTimestamp < b.StartTimestamp
		}
		return a.Group < b.Group
	})
}

// groupCalculations buckets sorted calculations by group label. Group order
// follows each label's first appearance in the sorted slice, so the grouped
// result preserves the engine's ordering end to end.
func groupCalculations(calculations []Calculation) GroupedResult {
	var result GroupedResult
	index := make(map[string]int)

	for _, c := range calculations {
		i, ok := index[c.Group]
		if !ok {
			i = len(result)
			index[c.Group] = i
			result = append(result, ResultGroup{Label: c.Group})
		}
		result[i].Calculations = append(result[i].Calculations, c)
	}

	return result
}

// formatClock renders a duration as HH:mm:ss.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
