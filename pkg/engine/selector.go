package engine

import (
	"fmt"
	"sort"

	"github.com/EvgeniyStrigo/skyscanner-app/pkg/provider"
)

// findBestItineraries intersects the provider's "fastest" and "cheapest"
// rankings under the route's constraints. The result is a subset of the
// cheapest ordering, in that ordering's relative order, bounded by the
// journey's MaxBestCount. An empty fastest pass short-circuits to empty.
//
// The engine assumes the provider's sorting and itinerary indices are
// internally consistent; any inconsistency is a permanent
// MALFORMED_PAYLOAD error that aborts the whole run.
func findBestItineraries(payload *provider.Payload, route *Route) ([]string, error) {
	maxSegmentsCount := len(route.Query.QueryLegs)
	if !route.Journey.OnlyDirect {
		maxSegmentsCount *= 2
	}
	maxBestCount := route.Journey.MaxBestCount

	if payload.SortingOptions == nil || payload.Results == nil {
		return nil, nil
	}

	fastest := make(map[string]struct{})
	for _, item := range payload.SortingOptions.Fastest {
		itinerary, ok := payload.Results.Itineraries[item.ItineraryID]
		if !ok {
			return nil, malformed(fmt.Sprintf("fastest index references unknown itinerary %q", item.ItineraryID))
		}

		option, err := cheapestPricingOption(&itinerary)
		if err != nil {
			return nil, err
		}

		faresCount := 0
		for _, it := range option.Items {
			faresCount += len(it.Fares)
		}
		if faresCount > maxSegmentsCount {
			continue
		}

		fastest[item.ItineraryID] = struct{}{}
	}

	if len(fastest) == 0 {
		return nil, nil
	}

	var cheapest []string
	for _, item := range payload.SortingOptions.Cheapest {
		if len(cheapest) >= maxBestCount {
			break
		}
		if _, ok := fastest[item.ItineraryID]; ok {
			cheapest = append(cheapest, item.ItineraryID)
		}
	}

	return cheapest, nil
}

// cheapestPricingOption returns the itinerary's cheapest pricing option with
// its items ordered cheapest-first.
func cheapestPricingOption(itinerary *provider.Itinerary) (*provider.PricingOption, error) {
	if len(itinerary.PricingOptions) == 0 {
		return nil, malformed("itinerary has no pricing options")
	}

	for i := range itinerary.PricingOptions {
		if _, err := itinerary.PricingOptions[i].Price.Float(); err != nil {
			return nil, malformed("unparseable price amount: " + err.Error())
		}
		for _, item := range itinerary.PricingOptions[i].Items {
			if _, err := item.Price.Float(); err != nil {
				return nil, malformed("unparseable price amount: " + err.Error())
			}
		}
	}

	amount := func(p provider.Price) float64 {
		v, _ := p.Float()
		return v
	}

	options := make([]provider.PricingOption, len(itinerary.PricingOptions))
	copy(options, itinerary.PricingOptions)
	sort.SliceStable(options, func(i, j int) bool {
		return amount(options[i].Price) < amount(options[j].Price)
	})

	option := options[0]
	items := make([]provider.PricingItem, len(option.Items))
	copy(items, option.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return amount(items[i].Price) < amount(items[j].Price)
	})
	option.Items = items

	return &option, nil
}

// malformed builds the fatal payload-shape error.
func malformed(msg string) error {
	return NewPermanentError(msg, nil).WithCode(ErrCodeMalformedPayload)
}
