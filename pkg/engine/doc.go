// Package engine coordinates flight-price search runs end to end.
//
// # Overview
//
// A run turns a list of journey definitions into a grouped, sorted list of
// priced itinerary calculations. The pipeline has five stages:
//
//  1. Expand - Turn journeys into concrete dated routes (ExpandJourneys)
//  2. Dispatch - Send each route through the Searcher
//  3. Drain - Poll queued session tokens until every search resolves
//  4. Select - Pick the fastest/cheapest itineraries of each payload
//  5. Reduce - Filter, price, sort and group the results
//
// # Core Domain Types
//
//   - Journey: A user-facing trip definition with date windows and options
//   - Route: One concrete dated query derived from a journey
//   - Calculation: A priced, filtered itinerary with per-direction flights
//   - GroupedResult: The final output, bucketed by journey group label
//
// # Searcher Interface
//
// The engine talks to the fare provider through the Searcher interface:
//
//	type Searcher interface {
//	    CreateSearch(ctx context.Context, query *provider.RouteQuery) (*provider.Payload, error)
//	    PollSearch(ctx context.Context, sessionToken string) (*provider.Payload, error)
//	}
//
// A nil payload with a nil error means the route was abandoned (create) or
// is not ready yet (poll); the run continues either way.
//
// # Error Classification
//
// Run-fatal errors carry an EngineError with a code (VALIDATION_ERROR or
// MALFORMED_PAYLOAD). Recoverable conditions never become errors: rate
// limiting is retried under the shared cooldown and failing routes are
// abandoned after their retry budget.
//
// # Thread Safety
//
// Engine is immutable after New. All per-run mutable state lives in a
// private run value guarded by a mutex, so concurrent Process calls on one
// Engine are safe.
package engine
