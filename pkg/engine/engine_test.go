package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/EvgeniyStrigo/skyscanner-app/pkg/provider"
)

// scriptedSearcher drives Process with canned create/poll behavior.
type scriptedSearcher struct {
	mu       sync.Mutex
	createFn func(query *provider.RouteQuery) (*provider.Payload, error)
	pollFn   func(token string) (*provider.Payload, error)
	creates  int
	polls    int
}

func (s *scriptedSearcher) CreateSearch(_ context.Context, query *provider.RouteQuery) (*provider.Payload, error) {
	s.mu.Lock()
	s.creates++
	s.mu.Unlock()
	return s.createFn(query)
}

func (s *scriptedSearcher) PollSearch(_ context.Context, token string) (*provider.Payload, error) {
	s.mu.Lock()
	s.polls++
	s.mu.Unlock()
	if s.pollFn == nil {
		return nil, nil
	}
	return s.pollFn(token)
}

// oneWayPayload is a complete single-leg direct result priced at 120.
func oneWayPayload() *provider.Payload {
	dt := func(hour int) provider.DateTime {
		return provider.DateTime{Year: 2026, Month: 9, Day: 1, Hour: hour}
	}
	return &provider.Payload{
		Status: provider.StatusComplete,
		SortingOptions: &provider.SortingOptions{
			Cheapest: []provider.SortItem{{ItineraryID: "it"}},
			Fastest:  []provider.SortItem{{ItineraryID: "it"}},
		},
		Results: &provider.Results{
			Itineraries: map[string]provider.Itinerary{
				"it": {
					LegIDs: []string{"leg1"},
					PricingOptions: []provider.PricingOption{{
						Price: provider.Price{Amount: "120000"},
						Items: []provider.PricingItem{{
							Price: provider.Price{Amount: "120000"},
							Fares: []provider.Fare{{SegmentID: "s1"}},
						}},
					}},
				},
			},
			Legs: map[string]provider.Leg{
				"leg1": {
					OriginPlaceID:      "p-a",
					DestinationPlaceID: "p-b",
					SegmentIDs:         []string{"s1"},
					DurationInMinutes:  180,
					DepartureDateTime:  dt(8),
					ArrivalDateTime:    dt(11),
				},
			},
			Segments: map[string]provider.Segment{
				"s1": {
					OriginPlaceID:      "p-a",
					DestinationPlaceID: "p-b",
					DurationInMinutes:  180,
					DepartureDateTime:  dt(8),
				},
			},
			Places: map[string]provider.Place{
				"p-a": {IATA: "KRR"},
				"p-b": {IATA: "LED"},
			},
		},
	}
}

func oneWayJourneys() []Journey {
	return []Journey{{
		Group:       "city-break",
		Home:        []string{"KRR"},
		Destination: []string{"LED"},
		FwdDates:    []string{"2026-09-01"},
		OneWay:      true,
	}}
}

func testEngine(searcher Searcher) *Engine {
	return New(searcher, Options{
		Params:     testParams(),
		QueueDelay: 10 * time.Millisecond,
	}, zerolog.Nop(), nil, nil)
}

func TestProcessSingleRoute(t *testing.T) {
	searcher := &scriptedSearcher{
		createFn: func(*provider.RouteQuery) (*provider.Payload, error) {
			return oneWayPayload(), nil
		},
	}

	result, stats, err := testEngine(searcher).Process(context.Background(), oneWayJourneys())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if result.Size() != 1 {
		t.Fatalf("expected 1 calculation, got %d", result.Size())
	}
	if stats.Journeys != 1 || stats.Routes != 1 {
		t.Errorf("expected 1 journey and 1 route, got %+v", stats)
	}
	if stats.RunID == "" {
		t.Error("expected a run id")
	}
	calcs := result.Lookup("city-break")
	if calcs == nil {
		t.Fatalf("missing group, labels %v", result.Labels())
	}
	if calcs[0].Price != 120 || calcs[0].Rate != 120 || calcs[0].TravelDays != 1 {
		t.Errorf("unexpected calculation %+v", calcs[0])
	}
}

func TestProcessPollsIncompleteSearch(t *testing.T) {
	var pollCount int
	var mu sync.Mutex

	searcher := &scriptedSearcher{
		createFn: func(*provider.RouteQuery) (*provider.Payload, error) {
			return &provider.Payload{
				SessionToken: "tok-1",
				Status:       provider.StatusIncomplete,
			}, nil
		},
	}
	searcher.pollFn = func(token string) (*provider.Payload, error) {
		if token != "tok-1" {
			t.Errorf("polled unexpected token %q", token)
		}
		mu.Lock()
		defer mu.Unlock()
		pollCount++
		if pollCount < 2 {
			// Not ready yet.
			return nil, nil
		}
		return oneWayPayload(), nil
	}

	result, _, err := testEngine(searcher).Process(context.Background(), oneWayJourneys())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if result.Size() != 1 {
		t.Fatalf("expected 1 calculation after polling, got %d", result.Size())
	}

	mu.Lock()
	defer mu.Unlock()
	if pollCount < 2 {
		t.Errorf("expected at least 2 polls, got %d", pollCount)
	}
}

func TestProcessAbandonedRoute(t *testing.T) {
	searcher := &scriptedSearcher{
		createFn: func(*provider.RouteQuery) (*provider.Payload, error) {
			// The searcher gave up on this route; the run goes on.
			return nil, nil
		},
	}

	result, _, err := testEngine(searcher).Process(context.Background(), oneWayJourneys())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if result.Size() != 0 {
		t.Errorf("expected empty result, got %d calculations", result.Size())
	}
}

func TestProcessMalformedPayloadAborts(t *testing.T) {
	payload := oneWayPayload()
	payload.SortingOptions.Fastest[0].ItineraryID = "ghost"

	searcher := &scriptedSearcher{
		createFn: func(*provider.RouteQuery) (*provider.Payload, error) {
			return payload, nil
		},
	}

	_, _, err := testEngine(searcher).Process(context.Background(), oneWayJourneys())
	if err == nil {
		t.Fatal("expected run to abort on malformed payload")
	}
	if !IsPermanent(err) {
		t.Errorf("expected permanent error, got %v", err)
	}
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	searcher := &scriptedSearcher{
		createFn: func(*provider.RouteQuery) (*provider.Payload, error) {
			return &provider.Payload{SessionToken: "tok", Status: provider.StatusIncomplete}, nil
		},
	}

	if _, _, err := testEngine(searcher).Process(ctx, oneWayJourneys()); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestSortCalculations(t *testing.T) {
	calcs := []Calculation{
		{Group: "b", Price: 100, Rate: 50, TotalFlightsDuration: 200, StartTimestamp: 2},
		{Group: "a", Price: 100, Rate: 50, TotalFlightsDuration: 200, StartTimestamp: 2},
		{Group: "a", Price: 100, Rate: 50, TotalFlightsDuration: 200, StartTimestamp: 1},
		{Group: "a", Price: 100, Rate: 50, TotalFlightsDuration: 100, StartTimestamp: 5},
		{Group: "a", Price: 100, Rate: 40, TotalFlightsDuration: 500, StartTimestamp: 5},
		{Group: "a", Price: 90, Rate: 99, TotalFlightsDuration: 500, StartTimestamp: 5},
	}

	sortCalculations(calcs)

	expectOrder := []struct {
		price float64
		rate  float64
		dur   int
		ts    int64
		group string
	}{
		{90, 99, 500, 5, "a"},
		{100, 40, 500, 5, "a"},
		{100, 50, 100, 5, "a"},
		{100, 50, 200, 1, "a"},
		{100, 50, 200, 2, "a"},
		{100, 50, 200, 2, "b"},
	}
	for i, want := range expectOrder {
		c := calcs[i]
		if c.Price != want.price || c.Rate != want.rate || c.TotalFlightsDuration != want.dur ||
			c.StartTimestamp != want.ts || c.Group != want.group {
			t.Fatalf("position %d: got %+v, want %+v", i, c, want)
		}
	}
}

func TestGroupCalculationsFirstAppearanceOrder(t *testing.T) {
	calcs := []Calculation{
		{Group: "beta", Price: 10},
		{Group: "alpha", Price: 20},
		{Group: "beta", Price: 30},
	}

	result := groupCalculations(calcs)

	labels := result.Labels()
	if len(labels) != 2 || labels[0] != "beta" || labels[1] != "alpha" {
		t.Fatalf("unexpected group order %v", labels)
	}
	if len(result.Lookup("beta")) != 2 {
		t.Errorf("expected 2 calculations in beta")
	}
	if result.Size() != 3 {
		t.Errorf("expected size 3, got %d", result.Size())
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{90 * time.Second, "00:01:30"},
		{25*time.Hour + 41*time.Minute + 5*time.Second, "25:41:05"},
		{-time.Second, "00:00:00"},
	}
	for _, c := range cases {
		if got := formatClock(c.d); got != c.want {
			t.Errorf("formatClock(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}
