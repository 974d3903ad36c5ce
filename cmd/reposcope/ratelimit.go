package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var rateLimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Show the remaining GitHub API budget",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, gh, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		status, err := gh.RateLimit(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Limit:     %d\n", status.Limit)
		fmt.Printf("Remaining: %d\n", status.Remaining)
		fmt.Printf("Resets:    %s (in %s)\n",
			status.Reset.Format(time.RFC3339),
			time.Until(status.Reset).Round(time.Second),
		)
		return nil
	},
}
