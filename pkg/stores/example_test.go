package stores_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/EvgeniyStrigo/skyscanner-app/pkg/stores"
)

// ExampleNewSQLiteStore demonstrates creating and initializing a new SQLite store.
func ExampleNewSQLiteStore() {
	store, err := stores.NewSQLiteStore(":memory:") // Use in-memory database for example
	if err != nil {
		log.Fatal(err)
	}

	// Initialize the database connection
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	defer store.Close()

	// Store is now ready to use
	fmt.Println("Store initialized successfully")
	// Output: Store initialized successfully
}

// ExampleSQLiteStore_SaveRun demonstrates persisting a completed run with
// its calculations and reading the record back.
func ExampleSQLiteStore_SaveRun() {
	store, _ := stores.NewSQLiteStore(":memory:")
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	run := &stores.RunRecord{
		ID:               "run-001",
		StartedAt:        started,
		FinishedAt:       started.Add(2 * time.Minute),
		JourneyCount:     1,
		RouteCount:       4,
		CalculationCount: 1,
	}
	calculations := []stores.CalculationRecord{{
		RunID:                "run-001",
		GroupLabel:           "summer",
		Price:                129.99,
		Rate:                 43.33,
		TravelDays:           3,
		TotalFlightsDuration: 255,
		StartTimestamp:       started.Unix(),
		Payload:              `{}`,
	}}

	if err := store.SaveRun(ctx, run, calculations); err != nil {
		log.Fatal(err)
	}

	stored, err := store.GetRun(ctx, "run-001")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("run %s: %d routes, %d calculations\n", stored.ID, stored.RouteCount, stored.CalculationCount)
	// Output: run run-001: 4 routes, 1 calculations
}
