// Command cardsearch runs the character card search service and its data
// pipelines: scrape, tag, index, search, serve.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/risulab/cardsearch/internal/version"
)

func main() {
	root := &cobra.Command{
		Use:           "cardsearch",
		Short:         "Hybrid semantic and keyword search over character cards",
		Version:       fmt.Sprintf("%s (%s)", version.Version, version.Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// Missing .env is fine; real deployments use the environment.
			_ = godotenv.Load()
		},
	}

	root.AddCommand(
		newServeCmd(),
		newScrapeCmd(),
		newTagCmd(),
		newIndexCmd(),
		newSearchCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
