package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/EvgeniyStrigo/skyscanner-app/pkg/config"
	"github.com/EvgeniyStrigo/skyscanner-app/pkg/engine"
)

func newRoutesCommand() *cobra.Command {
	var journeysPath string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Preview the routes a journeys file expands to",
		Long: `Expand a journeys file into its concrete dated routes without searching.
Useful for checking how many API requests a run will make and which
airport pairs and dates it covers.`,
		Example: `  # Show the expansion of a journeys file
  skyscanner routes --journeys journeys.yaml

  # Machine-readable expansion
  skyscanner routes --journeys journeys.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			journeys, err := config.LoadJourneys(journeysPath)
			if err != nil {
				return err
			}

			routes, err := engine.ExpandJourneys(journeys, engine.SearchParams{
				Market:     cfg.Search.Market,
				Locale:     cfg.Search.Locale,
				Currency:   cfg.Search.Currency,
				CabinClass: cfg.Search.CabinClass,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(routes)
			}

			for i := range routes {
				route := &routes[i]
				fmt.Printf("%-20s", route.Journey.Group)
				for _, leg := range route.Query.QueryLegs {
					fmt.Printf("  %s -> %s on %s",
						leg.OriginPlaceID, leg.DestinationPlaceID, leg.Date)
				}
				fmt.Println()
			}
			fmt.Printf("%d routes\n", len(routes))
			return nil
		},
	}

	cmd.Flags().StringVarP(&journeysPath, "journeys", "j", "", "journeys definition file (YAML)")
	_ = cmd.MarkFlagRequired("journeys")

	return cmd
}
