package provider

import (
	"fmt"
	"strconv"
)

// Search result statuses reported by the live-search API.
const (
	StatusComplete   = "RESULT_STATUS_COMPLETE"
	StatusIncomplete = "RESULT_STATUS_INCOMPLETE"
	StatusFailed     = "RESULT_STATUS_FAILED"
)

// RouteQuery is the body of a live-search create request. One query leg for
// one-way trips, two for round trips.
type RouteQuery struct {
	Market         string     `json:"market"`
	Locale         string     `json:"locale"`
	Currency       string     `json:"currency"`
	Adults         int        `json:"adults"`
	ChildrenAges   []int      `json:"childrenAges"`
	CabinClass     string     `json:"cabinClass"`
	NearbyAirports bool       `json:"nearbyAirports"`
	QueryLegs      []QueryLeg `json:"query_legs"`
}

// QueryLeg is one origin/destination/date triple of a RouteQuery.
type QueryLeg struct {
	OriginPlaceID      PlaceID `json:"origin_place_id"`
	DestinationPlaceID PlaceID `json:"destination_place_id"`
	Date               Date    `json:"date"`
}

// PlaceID identifies a leg endpoint either by IATA code or by numeric entity
// id. Exactly one of the two fields is set.
type PlaceID struct {
	IATA     string `json:"iata,omitempty"`
	EntityID int64  `json:"entityId,omitempty"`
}

// String renders whichever identifier is set.
func (p PlaceID) String() string {
	if p.IATA != "" {
		return p.IATA
	}
	return strconv.FormatInt(p.EntityID, 10)
}

// LegPlaceID classifies a journey token: a token that parses fully as a
// number is an entity id, anything else is an IATA code.
func LegPlaceID(token string) PlaceID {
	if n, err := strconv.ParseInt(token, 10, 64); err == nil {
		return PlaceID{EntityID: n}
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return PlaceID{EntityID: int64(f)}
	}
	return PlaceID{IATA: token}
}

// Date is the provider's calendar-date triple.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// searchRequest wraps a RouteQuery for the create endpoint.
type searchRequest struct {
	Query *RouteQuery `json:"query"`
}

// searchResponse is the wire shape shared by the create and poll endpoints.
// The decoded subset deliberately excludes the bulk fields the engine never
// reads (stats, carriers, agents, alliances, the "best" sorting index).
type searchResponse struct {
	SessionToken string   `json:"sessionToken"`
	Status       string   `json:"status"`
	Content      *content `json:"content"`
}

type content struct {
	Results        *Results        `json:"results"`
	SortingOptions *SortingOptions `json:"sortingOptions"`
}

// Payload is one cleaned search result: the itinerary graph for one route.
type Payload struct {
	SessionToken   string          `json:"sessionToken"`
	Status         string          `json:"status"`
	Results        *Results        `json:"results"`
	SortingOptions *SortingOptions `json:"sortingOptions"`
}

// Results is the itinerary graph keyed by provider-assigned ids.
type Results struct {
	Itineraries map[string]Itinerary `json:"itineraries"`
	Legs        map[string]Leg       `json:"legs"`
	Segments    map[string]Segment   `json:"segments"`
	Places      map[string]Place     `json:"places"`
}

// SortingOptions exposes the provider's own itinerary rankings.
type SortingOptions struct {
	Cheapest []SortItem `json:"cheapest"`
	Fastest  []SortItem `json:"fastest"`
}

// SortItem is one entry of a sorting index.
type SortItem struct {
	Score       float64 `json:"score"`
	ItineraryID string  `json:"itineraryId"`
}

// Itinerary is one offered combination of legs with its pricing options.
type Itinerary struct {
	PricingOptions []PricingOption `json:"pricingOptions"`
	LegIDs         []string        `json:"legIds"`
}

// PricingOption is one bookable price for an itinerary.
type PricingOption struct {
	Price Price         `json:"price"`
	Items []PricingItem `json:"items"`
}

// PricingItem is one agent offer inside a pricing option.
type PricingItem struct {
	Price    Price  `json:"price"`
	DeepLink string `json:"deepLink"`
	Fares    []Fare `json:"fares"`
}

// Fare binds a pricing item to one flown segment.
type Fare struct {
	SegmentID string `json:"segmentId"`
}

// Price carries an amount in thousandths of the requested currency unit.
// The API reports amounts as decimal strings.
type Price struct {
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

// Float returns the amount as a number, or an error for a malformed amount.
func (p Price) Float() (float64, error) {
	return strconv.ParseFloat(p.Amount, 64)
}

// Leg is one flown origin-to-destination hop sequence of an itinerary.
type Leg struct {
	OriginPlaceID      string   `json:"originPlaceId"`
	DestinationPlaceID string   `json:"destinationPlaceId"`
	SegmentIDs         []string `json:"segmentIds"`
	DurationInMinutes  int      `json:"durationInMinutes"`
	StopCount          int      `json:"stopCount"`
	DepartureDateTime  DateTime `json:"departureDateTime"`
	ArrivalDateTime    DateTime `json:"arrivalDateTime"`
}

// Segment is one non-stop flight within a leg.
type Segment struct {
	OriginPlaceID      string   `json:"originPlaceId"`
	DestinationPlaceID string   `json:"destinationPlaceId"`
	DurationInMinutes  int      `json:"durationInMinutes"`
	DepartureDateTime  DateTime `json:"departureDateTime"`
	ArrivalDateTime    DateTime `json:"arrivalDateTime"`
}

// Place is airport or entity metadata referenced by legs and segments.
type Place struct {
	EntityID string `json:"entityId"`
	IATA     string `json:"iata"`
	Name     string `json:"name"`
}

// DateTime is the provider's zone-less local date-time.
type DateTime struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

// OrderingKey collapses the date-time into a scalar usable only for ordering
// segments within one leg. It is not a calendar timestamp: no timezone or
// month-length rules apply, so it must never be converted back to a time.
func (dt DateTime) OrderingKey() int64 {
	k := int64(dt.Year)
	k = k*13 + int64(dt.Month)
	k = k*32 + int64(dt.Day)
	k = k*24 + int64(dt.Hour)
	k = k*60 + int64(dt.Minute)
	k = k*60 + int64(dt.Second)
	return k
}

// clean lifts the response content into a Payload, dropping responses with no
// content at all.
func (r *searchResponse) clean() *Payload {
	if r.Content == nil {
		return nil
	}
	return &Payload{
		SessionToken:   r.SessionToken,
		Status:         r.Status,
		Results:        r.Content.Results,
		SortingOptions: r.Content.SortingOptions,
	}
}
