package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/reposcope/internal/ingest"
)

var fetchFlags struct {
	branch          string
	extensions      []string
	maxFileSizeKB   int
	fetchEverything bool
	output          string
	quiet           bool
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <repository-url>",
	Short: "Fetch a repository and assemble its corpus",
	Long: `Fetch a repository and assemble its corpus.

Examples:
  # Fetch with the default filter set
  reposcope fetch https://github.com/golang/example

  # Only TypeScript, written to a file
  reposcope fetch --ext .ts --ext .tsx -o corpus.txt github.com/microsoft/vscode

  # Everything except binaries and lock files
  reposcope fetch --everything github.com/tinygo-org/tinygo`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchFlags.branch, "branch", "b", "", "branch to fetch (default: repository default branch)")
	fetchCmd.Flags().StringArrayVar(&fetchFlags.extensions, "ext", nil, "extension filter, repeatable (default: built-in source/config/doc set)")
	fetchCmd.Flags().IntVar(&fetchFlags.maxFileSizeKB, "max-file-size", 0, "per-file size cap in KB (default 500)")
	fetchCmd.Flags().BoolVar(&fetchFlags.fetchEverything, "everything", false, "disable extension and size filters")
	fetchCmd.Flags().StringVarP(&fetchFlags.output, "output", "o", "", "write the corpus to a file instead of stdout")
	fetchCmd.Flags().BoolVarP(&fetchFlags.quiet, "quiet", "q", false, "suppress per-file progress")
}

func runFetch(cmd *cobra.Command, args []string) error {
	_, logger, gh, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	svc := ingest.NewService(gh, logger)
	sess, err := svc.Analyze(cmd.Context(), args[0], ingest.Options{
		Branch:          fetchFlags.branch,
		Extensions:      fetchFlags.extensions,
		MaxFileSizeKB:   fetchFlags.maxFileSizeKB,
		FetchEverything: fetchFlags.fetchEverything,
	})
	if err != nil {
		return err
	}

	reportProgress(sess, fetchFlags.quiet)

	res, err := sess.Wait()
	if err != nil {
		return err
	}

	if fetchFlags.output != "" {
		if err := os.WriteFile(fetchFlags.output, []byte(res.Corpus), 0o644); err != nil {
			return fmt.Errorf("writing corpus: %w", err)
		}
		fmt.Fprintf(os.Stderr, "wrote %d bytes to %s\n", len(res.Corpus), fetchFlags.output)
	} else {
		fmt.Print(res.Corpus)
	}

	printSummary(res)
	return nil
}

// reportProgress drains the session's event stream to stderr.
func reportProgress(sess *ingest.Session, quiet bool) {
	for ev := range sess.Events() {
		if quiet {
			continue
		}
		switch ev.Kind {
		case ingest.EventPhase:
			fmt.Fprintf(os.Stderr, "==> %s\n", ev.Phase)
		case ingest.EventFile:
			if ev.File != nil && ev.File.Status != ingest.StatusPending {
				fmt.Fprintf(os.Stderr, "  %-7s %s\n", ev.File.Status, ev.File.Path)
			}
		case ingest.EventProgress:
			fmt.Fprintf(os.Stderr, "  %d/%d files\n", ev.Completed, ev.Total)
		case ingest.EventWarning:
			fmt.Fprintf(os.Stderr, "warning: %s\n", ev.Message)
		}
	}
}

func printSummary(res *ingest.Result) {
	success, failed := 0, 0
	for _, rec := range res.Files {
		switch rec.Status {
		case ingest.StatusSuccess:
			success++
		case ingest.StatusError:
			failed++
		}
	}
	fmt.Fprintf(os.Stderr, "\n%s@%s: %d files fetched, %d failed", res.Ref.FullName(), res.Branch, success, failed)
	if res.Cancelled {
		fmt.Fprint(os.Stderr, " (cancelled)")
	}
	fmt.Fprintln(os.Stderr)
}
