package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/reposcope/internal/corpus"
	"github.com/fyrsmithlabs/reposcope/internal/embeddings"
	"github.com/fyrsmithlabs/reposcope/internal/ingest"
	"github.com/fyrsmithlabs/reposcope/internal/search"
)

var searchFlags struct {
	branch          string
	extensions      []string
	fetchEverything bool
	topK            int
}

var searchCmd = &cobra.Command{
	Use:   "search <repository-url> <query>",
	Short: "Fetch, index, and search a repository in one shot",
	Long: `Fetch a repository, embed its corpus, and print the chunks most
similar to the query.

Examples:
  reposcope search github.com/spf13/cobra "how are subcommands registered"

  reposcope search --ext .go -k 3 github.com/golang/example "hello world"`,
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchFlags.branch, "branch", "b", "", "branch to fetch (default: repository default branch)")
	searchCmd.Flags().StringArrayVar(&searchFlags.extensions, "ext", nil, "extension filter, repeatable")
	searchCmd.Flags().BoolVar(&searchFlags.fetchEverything, "everything", false, "disable extension and size filters")
	searchCmd.Flags().IntVarP(&searchFlags.topK, "top", "k", 5, "number of results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, logger, gh, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	embedder, err := embeddings.NewService(cfg.Embeddings)
	if err != nil {
		return err
	}

	svc := ingest.NewService(gh, logger)
	sess, err := svc.Analyze(cmd.Context(), args[0], ingest.Options{
		Branch:          searchFlags.branch,
		Extensions:      searchFlags.extensions,
		FetchEverything: searchFlags.fetchEverything,
	})
	if err != nil {
		return err
	}
	reportProgress(sess, true)

	res, err := sess.Wait()
	if err != nil {
		return err
	}

	chunks := corpus.Chunks(res.Corpus)
	fmt.Fprintf(os.Stderr, "embedding %d chunks from %s@%s...\n", len(chunks), res.Ref.FullName(), res.Branch)

	indexer := search.NewIndexer(embedder, logger)
	chunks, err = indexer.Index(cmd.Context(), chunks, func(p search.Progress) {
		fmt.Fprintf(os.Stderr, "\r  %d/%d", p.Current, p.Total)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	results := search.Search(cmd.Context(), embedder, chunks, args[1], searchFlags.topK, logger)
	if results.Degraded {
		fmt.Fprintf(os.Stderr, "no results: %s\n", results.Reason)
		return nil
	}

	for i, hit := range results.Hits {
		fmt.Printf("%d. %s (score %.4f)\n", i+1, hit.Chunk.FileName, hit.Score)
		fmt.Println(indent(hit.Chunk.Content, "   "))
	}
	return nil
}

func indent(s, prefix string) string {
	trimmed := strings.TrimRight(s, "\n")
	return prefix + strings.ReplaceAll(trimmed, "\n", "\n"+prefix)
}
