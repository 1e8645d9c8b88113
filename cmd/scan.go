package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fleetline/minutes-scanner/internal/scanner"
)

// newScanCmd creates the 'scan' subcommand: a one-shot synchronous
// scan from the command line, mainly for smoke-testing configuration.
func newScanCmd() *cobra.Command {
	var cities []string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Runs a single scan synchronously",
		Long: `Runs one scan over the given cities and prints a summary when it
finishes. Cities are passed as repeated --city "Name,ST" flags.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScanCommand(cmd, cities)
		},
	}
	cmd.Flags().StringArrayVar(&cities, "city", nil, `city to scan, as "Name,ST" (repeatable)`)
	return cmd
}

func runScanCommand(cmd *cobra.Command, rawCities []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	requests, err := parseCities(rawCities)
	if err != nil {
		return err
	}

	job, err := appInstance.Orchestrator().Scan(cmd.Context(), requests)
	if err != nil {
		return fmt.Errorf("run scan: %w", err)
	}

	cmd.Printf("job %s %s: %d results from %d cities\n",
		job.ID, job.Status, job.TotalResults, job.CitiesScanned)
	if job.ErrorMessage != "" {
		cmd.Printf("error: %s\n", job.ErrorMessage)
	}
	results, err := appInstance.Store().ListJobResults(cmd.Context(), job.ID)
	if err != nil {
		return fmt.Errorf("list results: %w", err)
	}
	for _, res := range results {
		cmd.Printf("  [%s] %s, %s: %s\n", res.Keyword, res.City, res.State, res.SourceURL)
	}
	return nil
}

func parseCities(raw []string) ([]scanner.CityRequest, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("at least one --city is required")
	}
	requests := make([]scanner.CityRequest, 0, len(raw))
	for _, entry := range raw {
		city, state, ok := strings.Cut(entry, ",")
		city, state = strings.TrimSpace(city), strings.TrimSpace(state)
		if !ok || city == "" || state == "" {
			return nil, fmt.Errorf(`invalid --city %q: expected "Name,ST"`, entry)
		}
		requests = append(requests, scanner.CityRequest{City: city, State: state})
	}
	return requests, nil
}
