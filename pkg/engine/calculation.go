package engine

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/EvgeniyStrigo/skyscanner-app/pkg/provider"
)

// buildCalculation normalizes one selected itinerary into a Calculation.
// It returns (nil, nil) when the itinerary fails the journey's structural
// constraints: too many stops, segments that do not reconstruct a leg,
// over-long legs, or a flight count that does not match the required
// direction count. Inconsistent payload references are permanent errors.
func buildCalculation(payload *provider.Payload, route *Route, itineraryID string) (*Calculation, error) {
	if payload.SortingOptions == nil || payload.Results == nil {
		return nil, nil
	}

	journey := route.Journey
	maxTimeMinutes := journey.MaxTimeMinutes
	mustHaveParts := journey.directions()
	maxStops := journey.maxStops()

	itinerary, ok := payload.Results.Itineraries[itineraryID]
	if !ok {
		return nil, malformed(fmt.Sprintf("unknown itinerary %q", itineraryID))
	}

	option, err := cheapestPricingOption(&itinerary)
	if err != nil {
		return nil, err
	}

	amount, err := option.Price.Float()
	if err != nil {
		return nil, malformed("unparseable price amount: " + err.Error())
	}
	// The provider reports amounts in thousandths of the currency unit.
	price := round2(amount / 1000)

	fareSegments := stringSet(nil)
	for _, item := range option.Items {
		for _, fare := range item.Fares {
			if fare.SegmentID != "" {
				fareSegments[fare.SegmentID] = struct{}{}
			}
		}
	}

	links := make([]string, 0, len(option.Items))
	for _, item := range option.Items {
		links = append(links, deepLinkTarget(item.DeepLink))
	}

	legs, err := acceptLegs(payload, &itinerary, fareSegments, maxStops, maxTimeMinutes)
	if err != nil {
		return nil, err
	}
	if len(legs) != mustHaveParts {
		return nil, nil
	}

	flights := make(map[Direction]*Flight, len(legs))
	totalFlightsDuration := 0
	for index, leg := range legs {
		flight, err := buildFlight(payload, leg)
		if err != nil {
			return nil, err
		}
		totalFlightsDuration += leg.DurationInMinutes
		flights[directionByIndex[index]] = flight
	}

	travelDays := 1.0
	if !journey.OneWay {
		gap := flights[DirectionReturn].DepartureTime.Sub(flights[DirectionOutbound].ArrivalTime)
		travelDays = round2(gap.Hours() / 24)
	}

	start := flights[DirectionOutbound].DepartureTime
	for _, f := range flights {
		if f.DepartureTime.Before(start) {
			start = f.DepartureTime
		}
	}

	return &Calculation{
		StartTimestamp:       start.Unix(),
		Group:                journey.Group,
		Flights:              flights,
		Links:                links,
		Price:                price,
		Rate:                 round2(price / travelDays),
		TravelDays:           travelDays,
		TotalFlightsDuration: totalFlightsDuration,
	}, nil
}

// acceptLegs resolves the itinerary's deduplicated leg ids and drops legs
// violating the stop, continuity or flight-time constraints. The continuity
// check requires the leg's segments present in the accepted fares to count
// exactly stopCount+1.
func acceptLegs(payload *provider.Payload, itinerary *provider.Itinerary, fareSegments map[string]struct{}, maxStops, maxTimeMinutes int) ([]*provider.Leg, error) {
	seen := stringSet(nil)
	var legs []*provider.Leg

	for _, legID := range itinerary.LegIDs {
		if _, dup := seen[legID]; dup {
			continue
		}
		seen[legID] = struct{}{}

		leg, ok := payload.Results.Legs[legID]
		if !ok {
			continue
		}

		if leg.StopCount > maxStops {
			continue
		}

		intersections := 0
		for _, segmentID := range leg.SegmentIDs {
			if _, ok := fareSegments[segmentID]; ok {
				intersections++
			}
		}
		if intersections != leg.StopCount+1 {
			continue
		}

		if maxTimeMinutes > 0 && leg.DurationInMinutes > maxTimeMinutes {
			continue
		}

		l := leg
		legs = append(legs, &l)
	}

	return legs, nil
}

// buildFlight turns an accepted leg into its flight record, including the
// change description for legs with stops.
func buildFlight(payload *provider.Payload, leg *provider.Leg) (*Flight, error) {
	departure, err := placeIATA(payload, leg.OriginPlaceID)
	if err != nil {
		return nil, err
	}
	arrival, err := placeIATA(payload, leg.DestinationPlaceID)
	if err != nil {
		return nil, err
	}

	change := "-"
	if leg.StopCount > 0 {
		change, err = changeDescription(payload, leg, departure, arrival)
		if err != nil {
			return nil, err
		}
	}

	return &Flight{
		Departure:       departure,
		Arrival:         arrival,
		DepartureTime:   localTime(leg.DepartureDateTime),
		ArrivalTime:     localTime(leg.ArrivalDateTime),
		Change:          change,
		DurationMinutes: leg.DurationInMinutes,
	}, nil
}

// changeDescription lists the distinct intermediate airports of a leg in
// flown order plus the total layover time, e.g. "AMS⇒OSL; 2:35".
func changeDescription(payload *provider.Payload, leg *provider.Leg, departure, arrival string) (string, error) {
	segments := make([]provider.Segment, 0, len(leg.SegmentIDs))
	for _, segmentID := range leg.SegmentIDs {
		if segment, ok := payload.Results.Segments[segmentID]; ok {
			segments = append(segments, segment)
		}
	}
	// Ordering-only keys: good for relative order of one leg's segments,
	// never for calendar arithmetic.
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].DepartureDateTime.OrderingKey() < segments[j].DepartureDateTime.OrderingKey()
	})

	segmentsTime := 0
	for _, segment := range segments {
		segmentsTime += segment.DurationInMinutes
	}
	changeMinutes := leg.DurationInMinutes - segmentsTime

	seen := stringSet(nil)
	var stops []string
	addStop := func(iata string) {
		if _, dup := seen[iata]; dup {
			return
		}
		seen[iata] = struct{}{}
		stops = append(stops, iata)
	}

	for _, segment := range segments {
		segmentDeparture, err := placeIATA(payload, segment.OriginPlaceID)
		if err != nil {
			return "", err
		}
		segmentArrival, err := placeIATA(payload, segment.DestinationPlaceID)
		if err != nil {
			return "", err
		}
		if segmentDeparture != departure {
			addStop(segmentDeparture)
		}
		if segmentArrival != arrival {
			addStop(segmentArrival)
		}
	}

	return fmt.Sprintf("%s; %s", strings.Join(stops, "⇒"), formatShortDuration(changeMinutes)), nil
}

// placeIATA resolves a place id to its IATA code; a dangling reference is a
// malformed payload.
func placeIATA(payload *provider.Payload, placeID string) (string, error) {
	place, ok := payload.Results.Places[placeID]
	if !ok {
		return "", malformed(fmt.Sprintf("unknown place %q", placeID))
	}
	return place.IATA, nil
}

// deepLinkTarget extracts the booking target from a deep link's "u" query
// parameter. Links the engine cannot parse yield an empty entry rather than
// failing the itinerary.
func deepLinkTarget(deepLink string) string {
	u, err := url.Parse(deepLink)
	if err != nil {
		return ""
	}
	return u.Query().Get("u")
}

// localTime pins the provider's zone-less local date-time to UTC.
func localTime(dt provider.DateTime) time.Time {
	return time.Date(dt.Year, time.Month(dt.Month), dt.Day, dt.Hour, dt.Minute, dt.Second, 0, time.UTC)
}

// formatShortDuration renders minutes as H:MM without zero-padded hours.
func formatShortDuration(minutes int) string {
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
