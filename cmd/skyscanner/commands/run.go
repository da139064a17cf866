package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/EvgeniyStrigo/skyscanner-app/pkg/config"
	"github.com/EvgeniyStrigo/skyscanner-app/pkg/engine"
	"github.com/EvgeniyStrigo/skyscanner-app/pkg/provider"
	"github.com/EvgeniyStrigo/skyscanner-app/pkg/stores"
	"github.com/EvgeniyStrigo/skyscanner-app/pkg/telemetry"
)

func newRunCommand() *cobra.Command {
	var (
		journeysPath string
		outFile      string
		storePath    string
		watch        bool
		metricsAddr  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a search run over a journeys file",
		Long: `Execute one complete search run: expand journeys into dated routes, search
each route through the live-search API, select the fastest and cheapest
itineraries and print the grouped, sorted calculations.`,
		Example: `  # Run a search and print the grouped results
  skyscanner run --journeys journeys.yaml

  # Write results to a file and record the run in the history store
  skyscanner run --journeys journeys.yaml --out results.json --store history.db

  # Re-run automatically whenever the journeys file changes
  skyscanner run --journeys journeys.yaml --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if verbose {
				cfg.Logging.Level = "debug"
			}
			if storePath != "" {
				cfg.Store.Path = storePath
			}

			logger, err := telemetry.NewLogger(cfg.Logging)
			if err != nil {
				return err
			}

			metrics, err := telemetry.NewMetrics(cfg.Metrics)
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				serveMetrics(ctx, metricsAddr, metrics, logger)
			}

			tracer, err := telemetry.NewTracer(cfg.Tracing, "skyscanner", cmd.Root().Version)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tracer.Shutdown(shutdownCtx)
			}()

			journeys, err := config.LoadJourneys(journeysPath)
			if err != nil {
				return err
			}

			exec := func(ctx context.Context, journeys []engine.Journey) error {
				return executeRun(ctx, cfg, journeys, outFile, logger, metrics, tracer)
			}

			if err := exec(ctx, journeys); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			return watchAndRerun(ctx, journeysPath, logger, exec)
		},
	}

	cmd.Flags().StringVarP(&journeysPath, "journeys", "j", "", "journeys definition file (YAML)")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write results to file instead of stdout")
	cmd.Flags().StringVar(&storePath, "store", "", "SQLite run history database (overrides config)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-run when the journeys file changes")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	_ = cmd.MarkFlagRequired("journeys")

	return cmd
}

// executeRun performs one full search run and writes the result.
func executeRun(ctx context.Context, cfg *config.Config, journeys []engine.Journey, outFile string, logger zerolog.Logger, metrics *telemetry.Metrics, tracer *telemetry.Tracer) error {
	startedAt := time.Now()

	progress := func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
	}

	client, err := provider.NewClient(provider.Config{
		APIURL:           cfg.Provider.APIURL,
		APIKey:           cfg.Provider.APIKey,
		RateTimeoutBase:  cfg.Provider.RateTimeoutBase.Std(),
		RateTimeoutStep:  cfg.Provider.RateTimeoutStep.Std(),
		RetryFailedDelay: cfg.Provider.RetryFailedDelay.Std(),
		MaxFailedRetries: cfg.Provider.MaxFailedRetries,
		Notify:           progress,
	}, logger, metrics)
	if err != nil {
		return err
	}

	eng := engine.New(client, engine.Options{
		Params: engine.SearchParams{
			Market:     cfg.Search.Market,
			Locale:     cfg.Search.Locale,
			Currency:   cfg.Search.Currency,
			CabinClass: cfg.Search.CabinClass,
		},
		QueueDelay: cfg.Search.QueueDelay.Std(),
		Progress:   progress,
	}, logger, metrics, tracer)

	result, stats, err := eng.Process(ctx, journeys)
	if err != nil {
		return err
	}

	if err := writeResult(result, outFile); err != nil {
		return err
	}

	if cfg.Store.Path != "" {
		if err := saveRun(ctx, cfg.Store.Path, startedAt, stats, result); err != nil {
			return err
		}
	}

	return nil
}

// writeResult renders the grouped result to the output file or stdout.
func writeResult(result engine.GroupedResult, outFile string) error {
	if outFile != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		if err := os.WriteFile(outFile, data, 0o644); err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	for _, group := range result {
		fmt.Printf("%s (%d)\n", group.Label, len(group.Calculations))
		for _, c := range group.Calculations {
			fmt.Printf("  %8.2f  rate %7.2f  %5.2f days  %4d min flown\n",
				c.Price, c.Rate, c.TravelDays, c.TotalFlightsDuration)
			for _, direction := range []engine.Direction{engine.DirectionOutbound, engine.DirectionReturn} {
				flight, ok := c.Flights[direction]
				if !ok {
					continue
				}
				fmt.Printf("    %s %s -> %s %s (%s)\n",
					flight.Departure, flight.DepartureTime.Format("2006-01-02 15:04"),
					flight.Arrival, flight.ArrivalTime.Format("15:04"), flight.Change)
			}
		}
	}
	return nil
}

// saveRun records a finished run in the history store under the engine's
// run id.
func saveRun(ctx context.Context, path string, startedAt time.Time, stats engine.RunStats, result engine.GroupedResult) error {
	store, err := stores.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	run := &stores.RunRecord{
		ID:               stats.RunID,
		StartedAt:        startedAt,
		FinishedAt:       time.Now(),
		JourneyCount:     stats.Journeys,
		RouteCount:       stats.Routes,
		CalculationCount: result.Size(),
	}

	var calculations []stores.CalculationRecord
	for _, group := range result {
		for _, c := range group.Calculations {
			payload, err := json.Marshal(c)
			if err != nil {
				return fmt.Errorf("failed to encode calculation: %w", err)
			}
			calculations = append(calculations, stores.CalculationRecord{
				RunID:                run.ID,
				GroupLabel:           group.Label,
				Price:                c.Price,
				Rate:                 c.Rate,
				TravelDays:           c.TravelDays,
				TotalFlightsDuration: c.TotalFlightsDuration,
				StartTimestamp:       c.StartTimestamp,
				Payload:              string(payload),
			})
		}
	}

	return store.SaveRun(ctx, run, calculations)
}

// watchAndRerun blocks, re-running the search whenever the journeys file
// changes, until the context is cancelled.
func watchAndRerun(ctx context.Context, journeysPath string, logger zerolog.Logger, exec func(context.Context, []engine.Journey) error) error {
	reloads := make(chan []engine.Journey, 1)

	watcher := config.NewWatcher(logger)
	err := watcher.Watch(ctx, journeysPath, func(journeys []engine.Journey) {
		select {
		case reloads <- journeys:
		default:
			// A reload is already pending; the watcher loads the latest
			// file content each time, so dropping this one loses nothing.
		}
	})
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case journeys := <-reloads:
			if err := exec(ctx, journeys); err != nil {
				logger.Error().Err(err).Msg("Run failed")
			}
		}
	}
}

// serveMetrics exposes the Prometheus handler in the background.
func serveMetrics(ctx context.Context, addr string, metrics *telemetry.Metrics, logger zerolog.Logger) {
	handler := metrics.Handler()
	if handler == nil {
		logger.Warn().Msg("Metrics disabled, not serving")
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
