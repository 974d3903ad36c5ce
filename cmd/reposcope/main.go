// Package main implements the reposcope CLI: fetch a GitHub
// repository into a searchable corpus, query it, and run the HTTP
// API server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/reposcope/internal/config"
	"github.com/fyrsmithlabs/reposcope/internal/githubapi"
	"github.com/fyrsmithlabs/reposcope/internal/logging"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "reposcope",
	Short: "Fetch GitHub repositories into searchable corpora",
	Long: `reposcope ingests a public GitHub repository into a single bounded
corpus, embeds it, and answers similarity queries over the result.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (YAML)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(commitsCmd)
	rootCmd.AddCommand(rateLimitCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("reposcope\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

// setup loads configuration and builds the logger and GitHub client
// shared by every command.
func setup() (*config.Config, *zap.Logger, *githubapi.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing logger: %w", err)
	}

	gh, err := githubapi.New(githubapi.Config{
		Token:    cfg.GitHub.Token,
		Timeout:  cfg.GitHub.Timeout,
		CacheTTL: cfg.GitHub.CacheTTL,
	}, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing github client: %w", err)
	}

	return cfg, logger, gh, nil
}
