package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/EvgeniyStrigo/skyscanner-app/pkg/provider"
)

// dateLayout is the calendar-date format accepted in journey date windows.
const dateLayout = "2006-01-02"

// ExpandJourneys expands every journey into its concrete routes, in journey
// order.
func ExpandJourneys(journeys []Journey, params SearchParams) ([]Route, error) {
	var routes []Route
	for i := range journeys {
		r, err := expandJourney(journeys[i], params)
		if err != nil {
			return nil, fmt.Errorf("journey %q: %w", journeys[i].Group, err)
		}
		routes = append(routes, r...)
	}
	return routes, nil
}

// expandJourney turns one journey into the ordered set of provider queries
// covering its date windows and airport pairs. It returns no routes when the
// date windows span less than one cycle.
func expandJourney(journey Journey, params SearchParams) ([]Route, error) {
	journey = journey.withDefaults()

	sort.Strings(journey.FwdDates)
	sort.Strings(journey.BackDates)

	if len(journey.FwdDates) == 0 {
		return nil, NewPermanentError("journey has no forward dates", nil).WithCode(ErrCodeValidation)
	}

	startDate, err := parseDate(journey.FwdDates[0])
	if err != nil {
		return nil, err
	}
	startDateMax, err := parseDate(journey.FwdDates[len(journey.FwdDates)-1])
	if err != nil {
		return nil, err
	}
	startDateMax = endOfDay(startDateMax)

	var finishDate, finishDateMax time.Time
	if !journey.OneWay {
		if len(journey.BackDates) == 0 {
			return nil, NewPermanentError("round-trip journey has no return dates", nil).WithCode(ErrCodeValidation)
		}
		finishDate, err = parseDate(journey.BackDates[0])
		if err != nil {
			return nil, err
		}
		finishDateMax, err = parseDate(journey.BackDates[len(journey.BackDates)-1])
		if err != nil {
			return nil, err
		}
		finishDateMax = endOfDay(finishDateMax)
	}

	var cycles int
	if journey.OneWay {
		cycles = cycleCount(startDate, startDateMax)
	} else {
		cycles = cycleCount(startDate, finishDateMax)
	}
	if cycles < 1 {
		return nil, nil
	}

	daysAdjustCycles := journey.DaysLengthMax - journey.DaysLengthMin

	routeStrings := airportRouteStrings(&journey)

	var routes []Route
	for i := 0; i < cycles; i++ {
		for j := 0; j <= daysAdjustCycles; j++ {
			stDate := startDate.AddDate(0, 0, i)
			if !stDate.Before(startDateMax) {
				continue
			}

			var endDate time.Time
			if !journey.OneWay {
				endDate = startDate.AddDate(0, 0, journey.DaysLengthMin+i+j)
				if endDate.Before(finishDate) || endDate.After(finishDateMax) {
					continue
				}
				days := endDate.Sub(stDate).Hours() / 24
				if days < float64(journey.DaysLengthMin) || days > float64(journey.DaysLengthMax) {
					continue
				}
			}

			for _, rs := range routeStrings {
				tokens := strings.Fields(rs)
				legs := []provider.QueryLeg{{
					OriginPlaceID:      provider.LegPlaceID(tokens[0]),
					DestinationPlaceID: provider.LegPlaceID(tokens[1]),
					Date:               queryDate(stDate),
				}}
				if !journey.OneWay && len(tokens) > 2 {
					legs = append(legs, provider.QueryLeg{
						OriginPlaceID:      provider.LegPlaceID(tokens[2]),
						DestinationPlaceID: provider.LegPlaceID(tokens[3]),
						Date:               queryDate(endDate),
					})
				}

				routes = append(routes, Route{
					Journey: &journey,
					Query: provider.RouteQuery{
						Market:         params.Market,
						Locale:         params.Locale,
						Currency:       params.Currency,
						Adults:         journey.Adults,
						ChildrenAges:   journey.ChildrenAges,
						CabinClass:     params.CabinClass,
						NearbyAirports: journey.NearbyAirports,
						QueryLegs:      legs,
					},
				})
			}
		}
	}

	return routes, nil
}

// airportRouteStrings builds the lexically sorted route strings for a
// journey: "SRC DST" pairs for one-way journeys, "SRC DST DST SRC"
// combinations for round trips. The return leg always reverses the outward
// leg exactly.
func airportRouteStrings(journey *Journey) []string {
	var pairs []string
	for _, src := range journey.Home {
		for _, dst := range journey.Destination {
			pairs = append(pairs, src+" "+dst)
			if !journey.OneWay {
				pairs = append(pairs, dst+" "+src)
			}
		}
	}

	if journey.OneWay {
		sort.Strings(pairs)
		return pairs
	}

	home := stringSet(journey.Home)
	destination := stringSet(journey.Destination)

	seen := make(map[string]struct{})
	var combined []string
	for _, pair := range pairs {
		src, dst, ok := strings.Cut(pair, " ")
		if !ok {
			continue
		}
		if _, isHome := home[src]; !isHome {
			continue
		}
		if _, isDest := destination[dst]; !isDest {
			continue
		}
		rs := src + " " + dst + " " + dst + " " + src
		if _, dup := seen[rs]; dup {
			continue
		}
		seen[rs] = struct{}{}
		combined = append(combined, rs)
	}
	sort.Strings(combined)
	return combined
}

// cycleCount returns the whole days spanned by [from, to], rounded up,
// inclusive.
func cycleCount(from, to time.Time) int {
	return int(math.Ceil(to.Sub(from).Hours()/24 + 1))
}

// parseDate parses a YYYY-MM-DD journey date at UTC midnight.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, NewPermanentError(fmt.Sprintf("invalid date %q", s), err).WithCode(ErrCodeValidation)
	}
	return t, nil
}

// endOfDay returns the last representable millisecond of t's day.
func endOfDay(t time.Time) time.Time {
	return t.Add(24*time.Hour - time.Millisecond)
}

// queryDate converts a time to the provider's date triple.
func queryDate(t time.Time) provider.Date {
	return provider.Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// stringSet builds a membership set from a slice.
func stringSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
