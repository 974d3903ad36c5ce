package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/reposcope/internal/ingest"
	"github.com/fyrsmithlabs/reposcope/internal/repourl"
)

var commitsFlags struct {
	branch string
	limit  int
}

var commitsCmd = &cobra.Command{
	Use:   "commits <repository-url>",
	Short: "Show recent commits for a repository branch",
	Long: `Show recent commits for a repository branch.

Examples:
  reposcope commits github.com/golang/go

  reposcope commits -b release-branch.go1.23 -n 5 github.com/golang/go`,
	Args: cobra.ExactArgs(1),
	RunE: runCommits,
}

func init() {
	commitsCmd.Flags().StringVarP(&commitsFlags.branch, "branch", "b", "", "branch (default: repository default branch)")
	commitsCmd.Flags().IntVarP(&commitsFlags.limit, "limit", "n", 10, "number of commits")
}

func runCommits(cmd *cobra.Command, args []string) error {
	_, logger, gh, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ref, ok := repourl.Parse(args[0])
	if !ok {
		return fmt.Errorf("%q: %w", args[0], ingest.ErrInvalidURL)
	}

	branch := commitsFlags.branch
	if branch == "" {
		meta, err := gh.RepoMetadata(cmd.Context(), ref.Owner, ref.Repo)
		if err != nil {
			return err
		}
		branch = meta.DefaultBranch
	}

	commits, err := gh.RecentCommits(cmd.Context(), ref.Owner, ref.Repo, branch, commitsFlags.limit)
	if err != nil {
		return err
	}

	for _, c := range commits {
		subject, _, _ := strings.Cut(c.Message, "\n")
		sha := c.SHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		fmt.Printf("%s  %s  %s  %s\n", sha, c.AuthorDate.Format("2006-01-02"), c.AuthorName, subject)
	}
	return nil
}
