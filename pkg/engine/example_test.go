package engine_test

import (
	"fmt"
	"log"

	"github.com/EvgeniyStrigo/skyscanner-app/pkg/engine"
)

// ExampleExpandJourneys demonstrates expanding a one-way journey into
// provider queries, one per departure date in the window.
func ExampleExpandJourneys() {
	journeys := []engine.Journey{{
		Group:       "city-break",
		Home:        []string{"ZAG"},
		Destination: []string{"AMS"},
		FwdDates:    []string{"2025-06-01", "2025-06-02"},
		OneWay:      true,
	}}

	routes, err := engine.ExpandJourneys(journeys, engine.SearchParams{Currency: "EUR"})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("routes:", len(routes))
	for _, route := range routes {
		leg := route.Query.QueryLegs[0]
		fmt.Printf("%s -> %s on %s\n", leg.OriginPlaceID, leg.DestinationPlaceID, leg.Date)
	}
	// Output:
	// routes: 2
	// ZAG -> AMS on 2025-06-01
	// ZAG -> AMS on 2025-06-02
}

// ExampleExpandJourneys_roundTrip shows how the trip-length bounds select
// return dates for a round trip.
func ExampleExpandJourneys_roundTrip() {
	journeys := []engine.Journey{{
		Group:         "summer",
		Home:          []string{"ZAG"},
		Destination:   []string{"AMS"},
		FwdDates:      []string{"2025-06-01"},
		BackDates:     []string{"2025-06-04", "2025-06-05"},
		DaysLengthMin: 3,
		DaysLengthMax: 4,
	}}

	routes, err := engine.ExpandJourneys(journeys, engine.SearchParams{})
	if err != nil {
		log.Fatal(err)
	}

	for _, route := range routes {
		out := route.Query.QueryLegs[0]
		back := route.Query.QueryLegs[1]
		fmt.Printf("out %s back %s\n", out.Date, back.Date)
	}
	// Output:
	// out 2025-06-01 back 2025-06-04
	// out 2025-06-01 back 2025-06-05
}
