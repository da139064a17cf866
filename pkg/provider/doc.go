// Package provider implements the Skyscanner flight search API client.
//
// The Client wraps the create/poll HTTP endpoints with the retry discipline
// the API demands:
//
//   - 429 responses start a shared cooldown. Concurrent requests wait on the
//     same cooldown instead of stacking their own; repeat hits inside one
//     request escalate the timeout.
//   - RESULT_STATUS_FAILED responses retry once with nearby-airports
//     matching disabled before counting as failures.
//   - Transport errors and unknown statuses retry with a linear backoff up
//     to a cap, after which the request is abandoned (nil payload, nil
//     error) rather than failing the caller.
//
// The wire types mirror the subset of the API response the engine consumes:
// itineraries, pricing options, legs, segments, places and the
// cheapest/fastest sorting options.
package provider
