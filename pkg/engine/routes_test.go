package engine

import (
	"errors"
	"testing"

	"github.com/EvgeniyStrigo/skyscanner-app/pkg/provider"
)

func testParams() SearchParams {
	return SearchParams{
		Market:     "HR",
		Locale:     "ru-RU",
		Currency:   "EUR",
		CabinClass: "CABIN_CLASS_ECONOMY",
	}
}

func TestExpandJourneySingleDateOneWay(t *testing.T) {
	journeys := []Journey{{
		Group:       "city-break",
		Home:        []string{"KRR"},
		Destination: []string{"LED"},
		FwdDates:    []string{"2026-09-01"},
		OneWay:      true,
	}}

	routes, err := ExpandJourneys(journeys, testParams())
	if err != nil {
		t.Fatalf("ExpandJourneys failed: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("expected exactly 1 route for a single-date window, got %d", len(routes))
	}

	query := routes[0].Query
	if query.Market != "HR" || query.Locale != "ru-RU" || query.Currency != "EUR" {
		t.Errorf("search params not applied: %+v", query)
	}
	if query.Adults != 1 {
		t.Errorf("expected default 1 adult, got %d", query.Adults)
	}
	if len(query.QueryLegs) != 1 {
		t.Fatalf("expected 1 leg for one-way, got %d", len(query.QueryLegs))
	}

	leg := query.QueryLegs[0]
	if leg.OriginPlaceID.IATA != "KRR" || leg.DestinationPlaceID.IATA != "LED" {
		t.Errorf("unexpected leg endpoints: %+v", leg)
	}
	if leg.Date != (provider.Date{Year: 2026, Month: 9, Day: 1}) {
		t.Errorf("unexpected leg date: %+v", leg.Date)
	}
}

func TestExpandJourneyOneWayWindow(t *testing.T) {
	journeys := []Journey{{
		Group:       "window",
		Home:        []string{"KRR", "AER"},
		Destination: []string{"LED", "KGD"},
		FwdDates:    []string{"2026-09-01", "2026-09-02", "2026-09-03"},
		OneWay:      true,
	}}

	routes, err := ExpandJourneys(journeys, testParams())
	if err != nil {
		t.Fatalf("ExpandJourneys failed: %v", err)
	}

	// 3 departure days times 2x2 airport pairs.
	if len(routes) != 12 {
		t.Fatalf("expected 12 routes, got %d", len(routes))
	}

	days := make(map[provider.Date]int)
	for i := range routes {
		days[routes[i].Query.QueryLegs[0].Date]++
	}
	for day, count := range days {
		if count != 4 {
			t.Errorf("expected 4 routes on %s, got %d", day, count)
		}
	}
	if _, ok := days[provider.Date{Year: 2026, Month: 9, Day: 4}]; ok {
		t.Error("route emitted past the last forward date")
	}
}

func TestExpandJourneyRoundTrip(t *testing.T) {
	journeys := []Journey{{
		Group:         "weekend",
		Home:          []string{"KRR"},
		Destination:   []string{"LED"},
		FwdDates:      []string{"2026-09-01"},
		BackDates:     []string{"2026-09-03"},
		DaysLengthMin: 2,
		DaysLengthMax: 2,
	}}

	routes, err := ExpandJourneys(journeys, testParams())
	if err != nil {
		t.Fatalf("ExpandJourneys failed: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(routes))
	}

	legs := routes[0].Query.QueryLegs
	if len(legs) != 2 {
		t.Fatalf("expected 2 legs for round trip, got %d", len(legs))
	}
	if legs[0].Date != (provider.Date{Year: 2026, Month: 9, Day: 1}) {
		t.Errorf("unexpected outward date: %+v", legs[0].Date)
	}
	if legs[1].Date != (provider.Date{Year: 2026, Month: 9, Day: 3}) {
		t.Errorf("unexpected return date: %+v", legs[1].Date)
	}
}

func TestExpandJourneyReturnLegMirrorsOutward(t *testing.T) {
	journeys := []Journey{{
		Group:         "mirror",
		Home:          []string{"KRR", "AER"},
		Destination:   []string{"LED", "KGD"},
		FwdDates:      []string{"2026-09-01", "2026-09-05"},
		BackDates:     []string{"2026-09-03", "2026-09-10"},
		DaysLengthMin: 2,
		DaysLengthMax: 5,
	}}

	routes, err := ExpandJourneys(journeys, testParams())
	if err != nil {
		t.Fatalf("ExpandJourneys failed: %v", err)
	}
	if len(routes) == 0 {
		t.Fatal("expected routes")
	}

	for i := range routes {
		legs := routes[i].Query.QueryLegs
		if len(legs) != 2 {
			t.Fatalf("route %d: expected 2 legs, got %d", i, len(legs))
		}
		if legs[0].OriginPlaceID != legs[1].DestinationPlaceID ||
			legs[0].DestinationPlaceID != legs[1].OriginPlaceID {
			t.Errorf("route %d: return leg does not mirror outward leg: %+v", i, legs)
		}
	}
}

func TestExpandJourneyTripLengthBounds(t *testing.T) {
	journeys := []Journey{{
		Group:         "bounds",
		Home:          []string{"KRR"},
		Destination:   []string{"LED"},
		FwdDates:      []string{"2026-09-01", "2026-09-03"},
		BackDates:     []string{"2026-09-02", "2026-09-08"},
		DaysLengthMin: 1,
		DaysLengthMax: 3,
	}}

	routes, err := ExpandJourneys(journeys, testParams())
	if err != nil {
		t.Fatalf("ExpandJourneys failed: %v", err)
	}

	for i := range routes {
		legs := routes[i].Query.QueryLegs
		out := legs[0].Date
		back := legs[1].Date
		days := back.Day - out.Day
		if days < 1 || days > 3 {
			t.Errorf("route %d: trip length %d days outside [1,3]", i, days)
		}
	}
}

func TestExpandJourneyEntityIDTokens(t *testing.T) {
	journeys := []Journey{{
		Group:       "entities",
		Home:        []string{"95673320"},
		Destination: []string{"LED"},
		FwdDates:    []string{"2026-09-01"},
		OneWay:      true,
	}}

	routes, err := ExpandJourneys(journeys, testParams())
	if err != nil {
		t.Fatalf("ExpandJourneys failed: %v", err)
	}
	leg := routes[0].Query.QueryLegs[0]
	if leg.OriginPlaceID.EntityID != 95673320 || leg.OriginPlaceID.IATA != "" {
		t.Errorf("numeric token not classified as entity id: %+v", leg.OriginPlaceID)
	}
	if leg.DestinationPlaceID.IATA != "LED" {
		t.Errorf("IATA token misclassified: %+v", leg.DestinationPlaceID)
	}
}

func TestExpandJourneyMissingReturnDates(t *testing.T) {
	journeys := []Journey{{
		Group:       "broken",
		Home:        []string{"KRR"},
		Destination: []string{"LED"},
		FwdDates:    []string{"2026-09-01"},
	}}

	_, err := ExpandJourneys(journeys, testParams())
	if err == nil {
		t.Fatal("expected error for round trip without return dates")
	}
	var engErr *EngineError
	if !errors.As(err, &engErr) || engErr.Code != ErrCodeValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestExpandJourneyInvalidDate(t *testing.T) {
	journeys := []Journey{{
		Group:       "bad-date",
		Home:        []string{"KRR"},
		Destination: []string{"LED"},
		FwdDates:    []string{"01.09.2026"},
		OneWay:      true,
	}}

	if _, err := ExpandJourneys(journeys, testParams()); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestExpandJourneyWindowBeforeStart(t *testing.T) {
	journeys := []Journey{{
		Group:         "inverted",
		Home:          []string{"KRR"},
		Destination:   []string{"LED"},
		FwdDates:      []string{"2026-09-10"},
		BackDates:     []string{"2026-09-01"},
		DaysLengthMin: 1,
		DaysLengthMax: 1,
	}}

	routes, err := ExpandJourneys(journeys, testParams())
	if err != nil {
		t.Fatalf("ExpandJourneys failed: %v", err)
	}
	if len(routes) != 0 {
		t.Errorf("expected no routes for an inverted window, got %d", len(routes))
	}
}
