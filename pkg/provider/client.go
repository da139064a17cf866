package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/EvgeniyStrigo/skyscanner-app/pkg/telemetry"
)

const (
	createPath = "/flights/live/search/create"
	pollPath   = "/flights/live/search/poll/"
)

// Config holds the client configuration.
type Config struct {
	// APIURL is the base URL of the live-search API.
	APIURL string

	// APIKey is sent as the x-api-key header on every request.
	APIKey string

	// RateTimeoutBase is the initial cooldown after a 429 response.
	RateTimeoutBase time.Duration

	// RateTimeoutStep is added to the cooldown on each repeated 429 within
	// one logical call. The cooldown never shrinks during a run.
	RateTimeoutStep time.Duration

	// RetryFailedDelay is the base delay between generic failure retries;
	// attempt n waits n times this value.
	RetryFailedDelay time.Duration

	// MaxFailedRetries bounds generic failure retries per request. Past the
	// bound the request is abandoned, not the run.
	MaxFailedRetries int

	// HTTPClient overrides the default http.Client.
	HTTPClient *http.Client

	// Notify, when set, receives the same human-readable wait/retry messages
	// that go to the log.
	Notify func(string)
}

// withDefaults fills zero config fields with the stock values.
func (c Config) withDefaults() Config {
	if c.APIURL == "" {
		c.APIURL = "https://partners.api.skyscanner.net/apiservices/v3"
	}
	if c.RateTimeoutBase == 0 {
		c.RateTimeoutBase = 40 * time.Second
	}
	if c.RateTimeoutStep == 0 {
		c.RateTimeoutStep = 5 * time.Second
	}
	if c.RetryFailedDelay == 0 {
		c.RetryFailedDelay = 100 * time.Millisecond
	}
	if c.MaxFailedRetries == 0 {
		c.MaxFailedRetries = 5
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	return c
}

// outcome classifies one HTTP exchange for the retry loop.
type outcome int

const (
	// outcomeDone ends the call; the payload may still be nil when the
	// provider sent no content or the result must be polled later.
	outcomeDone outcome = iota

	// outcomeRateLimited is a 429 response.
	outcomeRateLimited

	// outcomeProviderFailed is a 200 response with RESULT_STATUS_FAILED;
	// eligible for the nearby-airports demotion before the generic path.
	outcomeProviderFailed

	// outcomeFailed is every other failure: non-200 status, transport
	// error, undecodable body, unknown result status.
	outcomeFailed
)

// Client talks to the live-search API. One Client serves one run; the
// embedded cooldown is the run's shared rate-limit budget, so dispatch and
// poll callers all gate on the same window.
type Client struct {
	cfg      Config
	cooldown *Cooldown
	logger   zerolog.Logger
	metrics  *telemetry.Metrics

	nearbyRetries atomic.Int64
}

// NewClient creates a client for one run.
func NewClient(cfg Config, logger zerolog.Logger, metrics *telemetry.Metrics) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no api key configured")
	}
	return &Client{
		cfg:      cfg,
		cooldown: NewCooldown(cfg.RateTimeoutBase, cfg.RateTimeoutStep),
		logger:   logger.With().Str("component", "provider").Logger(),
		metrics:  metrics,
	}, nil
}

// Cooldown exposes the shared rate-limit state.
func (c *Client) Cooldown() *Cooldown {
	return c.cooldown
}

// NearbyRetries returns how many requests were demoted to a non-nearby
// search during this run.
func (c *Client) NearbyRetries() int64 {
	return c.nearbyRetries.Load()
}

// CreateSearch starts a live search for one route query. A nil payload with
// a nil error means the request was abandoned after exhausting retries.
// Incomplete results are returned as-is; the caller decides whether to queue
// the session token for polling.
func (c *Client) CreateSearch(ctx context.Context, query *RouteQuery) (*Payload, error) {
	q := *query
	return c.send(ctx, c.cfg.APIURL+createPath, &q, true)
}

// PollSearch polls a pending search. A nil payload with a nil error means
// the result is still incomplete, or retries were exhausted; either way the
// token stays pending.
func (c *Client) PollSearch(ctx context.Context, sessionToken string) (*Payload, error) {
	return c.send(ctx, c.cfg.APIURL+pollPath+sessionToken, nil, false)
}

// send executes one logical provider call with the full retry policy. It
// never returns an error for ordinary transport or provider failures; the
// only errors it surfaces are context cancellations.
func (c *Client) send(ctx context.Context, url string, query *RouteQuery, acceptIncomplete bool) (*Payload, error) {
	endpoint := endpointName(url)

	var limitRetries, failedRetries int

	for {
		status, out, payload, err := c.attempt(ctx, url, query, acceptIncomplete)
		if err != nil {
			return nil, err
		}

		switch out {
		case outcomeDone:
			c.metrics.RecordProviderRequest("success")
			return payload, nil

		case outcomeRateLimited:
			c.metrics.RecordRateLimitHit()
			wait, acquired := c.cooldown.Acquire(limitRetries + 1)
			if !acquired {
				c.say(fmt.Sprintf("/%s rate limit reached, waiting for current rate timeout finished", endpoint))
				if err := c.cooldown.Wait(ctx); err != nil {
					return nil, err
				}
				continue
			}
			limitRetries++
			c.say(fmt.Sprintf("/%s rate limit reached (%d), waiting for %s", endpoint, limitRetries, wait))
			err := sleep(ctx, wait)
			c.cooldown.Release()
			if err != nil {
				return nil, err
			}

		case outcomeProviderFailed:
			// Some nearby-airport combinations are rejected outright; demote
			// the request once and retry immediately.
			if query != nil && query.NearbyAirports {
				query.NearbyAirports = false
				n := c.nearbyRetries.Add(1)
				c.metrics.RecordNearbyDemotion()
				c.say(fmt.Sprintf("retrying without nearbyAirports (%d)", n))
				continue
			}
			fallthrough

		case outcomeFailed:
			c.metrics.RecordProviderRequest("failed")
			failedRetries++
			if failedRetries > c.cfg.MaxFailedRetries {
				c.say("max failed requests reached")
				return nil, nil
			}
			wait := c.cfg.RetryFailedDelay * time.Duration(failedRetries)
			c.say(fmt.Sprintf("request failed with status %d (%d), retry in %s", status, failedRetries, wait))
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
	}
}

// attempt performs a single HTTP exchange and classifies the result. The
// returned error is non-nil only for request-construction and context
// failures.
func (c *Client) attempt(ctx context.Context, url string, query *RouteQuery, acceptIncomplete bool) (int, outcome, *Payload, error) {
	var body io.Reader
	if query != nil {
		raw, err := json.Marshal(searchRequest{Query: query})
		if err != nil {
			return 0, outcomeFailed, nil, fmt.Errorf("marshal query: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return 0, outcomeFailed, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, outcomeFailed, nil, ctx.Err()
		}
		c.logger.Debug().Err(err).Str("url", url).Msg("request transport error")
		return 0, outcomeFailed, nil, nil
	}
	defer resp.Body.Close()

	c.logger.Debug().Str("url", url).Int("status", resp.StatusCode).Msg("request")

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, outcomeRateLimited, nil, nil

	case http.StatusOK:
		var sr searchResponse
		if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
			c.logger.Warn().Err(err).Str("url", url).Msg("undecodable response body")
			return resp.StatusCode, outcomeFailed, nil, nil
		}

		switch sr.Status {
		case "", StatusComplete:
			return resp.StatusCode, outcomeDone, sr.clean(), nil
		case StatusIncomplete:
			if acceptIncomplete {
				return resp.StatusCode, outcomeDone, sr.clean(), nil
			}
			return resp.StatusCode, outcomeDone, nil, nil
		case StatusFailed:
			return resp.StatusCode, outcomeProviderFailed, nil, nil
		default:
			return resp.StatusCode, outcomeFailed, nil, nil
		}

	default:
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, outcomeFailed, nil, nil
	}
}

// say logs a retry-policy message and mirrors it to the Notify callback.
func (c *Client) say(msg string) {
	c.logger.Info().Msg(msg)
	if c.cfg.Notify != nil {
		c.cfg.Notify(msg)
	}
}

// endpointName extracts the endpoint segment following "search" for log
// messages ("create" or "poll").
func endpointName(url string) string {
	parts := strings.Split(url, "/")
	for i, p := range parts {
		if p == "search" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return url
}

// sleep waits for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
