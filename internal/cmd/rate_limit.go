package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thumbsmith/thumbsmith/internal/genclient"
)

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Inspect and reset client-side rate limit windows",
	Long: `Inspect and reset the sliding windows that guard the generation backend.

Windows live in the store selected by limits.store: memory (this process
only), sqlite (shared by CLI runs on one machine) or redis (shared by
every client pointed at the same server).`,
}

func init() {
	rateLimitCmd.AddCommand(rateLimitListCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}

// selectEndpoints resolves --endpoint values, or every endpoint when all is set.
func selectEndpoints(names []string, all bool) ([]genclient.Endpoint, error) {
	if all {
		if len(names) > 0 {
			return nil, fmt.Errorf("--all and --endpoint are mutually exclusive")
		}
		return genclient.Endpoints, nil
	}

	seen := map[genclient.Endpoint]bool{}
	var endpoints []genclient.Endpoint
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			endpoint, err := genclient.ParseEndpoint(part)
			if err != nil {
				return nil, err
			}
			if !seen[endpoint] {
				seen[endpoint] = true
				endpoints = append(endpoints, endpoint)
			}
		}
	}
	return endpoints, nil
}
