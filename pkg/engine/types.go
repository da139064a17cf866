package engine

import (
	"time"

	"github.com/EvgeniyStrigo/skyscanner-app/pkg/provider"
)

// Journey is a caller's abstract travel intent: which airports, which date
// windows, which constraints. A Journey is immutable once expansion starts.
type Journey struct {
	// Group labels the journey's calculations in the final result.
	Group string `json:"group" yaml:"group"`

	// Home lists departure airports, as IATA codes or numeric entity ids.
	Home []string `json:"home" yaml:"home" validate:"min=1,dive,required"`

	// Destination lists arrival airports.
	Destination []string `json:"destination" yaml:"destination" validate:"min=1,dive,required"`

	// Adults is the adult passenger count.
	Adults int `json:"adults" yaml:"adults" validate:"min=0,max=8"`

	// ChildrenAges lists one age per child passenger.
	ChildrenAges []int `json:"childrenAges" yaml:"childrenAges"`

	// DaysLengthMin and DaysLengthMax bound the trip length in days for
	// round trips.
	DaysLengthMin int `json:"daysLengthMin" yaml:"daysLengthMin" validate:"min=0"`
	DaysLengthMax int `json:"daysLengthMax" yaml:"daysLengthMax" validate:"min=0"`

	// FwdDates is the outward date window (YYYY-MM-DD values).
	FwdDates []string `json:"fwdDates" yaml:"fwdDates" validate:"min=1,dive,datetime=2006-01-02"`

	// BackDates is the return date window; required unless OneWay.
	BackDates []string `json:"backDates" yaml:"backDates" validate:"dive,datetime=2006-01-02"`

	// OnlyDirect restricts results to non-stop flights.
	OnlyDirect bool `json:"onlyDirect" yaml:"onlyDirect"`

	// OneWay searches a single direction only.
	OneWay bool `json:"oneWay" yaml:"oneWay"`

	// NearbyAirports widens the search to nearby airports.
	NearbyAirports bool `json:"nearbyAirports" yaml:"nearbyAirports"`

	// MaxTimeMinutes rejects legs flown longer than this; zero disables.
	MaxTimeMinutes int `json:"maxTimeMinutes" yaml:"maxTimeMinutes" validate:"min=0"`

	// MaxBestCount bounds how many itineraries are kept per route.
	MaxBestCount int `json:"maxBestCount" yaml:"maxBestCount" validate:"min=0"`
}

// withDefaults fills zero-valued fields with the stock journey defaults.
func (j Journey) withDefaults() Journey {
	if j.Adults == 0 {
		j.Adults = 1
	}
	if j.DaysLengthMin == 0 {
		j.DaysLengthMin = 1
	}
	if j.DaysLengthMax == 0 {
		j.DaysLengthMax = 1
	}
	if j.MaxBestCount == 0 {
		j.MaxBestCount = 100
	}
	return j
}

// directions returns how many flight directions a calculation must resolve.
func (j *Journey) directions() int {
	if j.OneWay {
		return 1
	}
	return 2
}

// maxStops returns the per-leg stop bound implied by the journey.
func (j *Journey) maxStops() int {
	if j.OnlyDirect {
		return 0
	}
	return 1
}

// Route is one concrete provider query derived from a Journey: one query leg
// for one-way journeys, two for round trips. The coordinator owns a Route
// for its lifetime; it is read-only afterward.
type Route struct {
	Journey *Journey
	Query   provider.RouteQuery
}

// Direction names one side of a trip in a Calculation.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionReturn   Direction = "return"
)

// directionByIndex maps a kept leg's position to its direction.
var directionByIndex = []Direction{DirectionOutbound, DirectionReturn}

// Flight describes one accepted leg of a calculation.
type Flight struct {
	// Departure and Arrival are IATA codes.
	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`

	// DepartureTime and ArrivalTime are the provider's local times pinned
	// to UTC.
	DepartureTime time.Time `json:"departureDateTime"`
	ArrivalTime   time.Time `json:"arrivalDateTime"`

	// Change describes intermediate stops and total layover time, or "-"
	// for a direct flight.
	Change string `json:"change"`

	// DurationMinutes is the flown duration of the leg.
	DurationMinutes int `json:"duration"`
}

// Calculation is the normalized record for one accepted itinerary. It is
// immutable once built.
type Calculation struct {
	// StartTimestamp is the earliest leg departure as a Unix timestamp.
	StartTimestamp int64 `json:"startTimestamp"`

	// Group is the owning journey's group label.
	Group string `json:"group"`

	// Flights holds exactly one flight per required direction.
	Flights map[Direction]*Flight `json:"flights"`

	// Links are the booking deep-link targets, one per pricing item.
	Links []string `json:"links"`

	// Price is the total price in the requested currency.
	Price float64 `json:"price"`

	// Rate is the price per travel day.
	Rate float64 `json:"rate"`

	// TravelDays is the fractional days spent at the destination; fixed at
	// 1 for one-way journeys.
	TravelDays float64 `json:"travelDays"`

	// TotalFlightsDuration is the summed flown duration in minutes.
	TotalFlightsDuration int `json:"totalFlightsDuration"`
}

// ResultGroup is one labeled bucket of the final result. Groups are
// non-empty by construction.
type ResultGroup struct {
	Label        string        `json:"label"`
	Calculations []Calculation `json:"calculations"`
}

// GroupedResult maps group labels to their ordered calculations. Group order
// and within-group order both follow the engine's stable sort; the report
// renderer does not re-sort.
type GroupedResult []ResultGroup

// Lookup returns the calculations for a label, or nil.
func (r GroupedResult) Lookup(label string) []Calculation {
	for i := range r {
		if r[i].Label == label {
			return r[i].Calculations
		}
	}
	return nil
}

// Labels returns the group labels in result order.
func (r GroupedResult) Labels() []string {
	labels := make([]string, 0, len(r))
	for i := range r {
		labels = append(labels, r[i].Label)
	}
	return labels
}

// Size returns the total calculation count across all groups.
func (r GroupedResult) Size() int {
	n := 0
	for i := range r {
		n += len(r[i].Calculations)
	}
	return n
}
