package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/adrennan/cordix/pkg/btree"
	"github.com/adrennan/cordix/pkg/loader"
	"github.com/adrennan/cordix/pkg/storage"
)

var loadCmd = &cobra.Command{
	Use:   "load <indexfile> <csvfile>",
	Short: "Bulk-insert key/value pairs from a CSV file",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		indexFile, csvFile := args[0], args[1]
		start := time.Now()

		if _, err := os.Stat(indexFile); os.IsNotExist(err) {
			fail(fmt.Sprintf("Error: Index file '%s' does not exist.", indexFile))
		}
		if _, err := os.Stat(csvFile); os.IsNotExist(err) {
			fail(fmt.Sprintf("Error: CSV file '%s' does not exist.", csvFile))
		}

		results, err := loadAll(indexFile, csvFile)
		logInvocation("load", indexFile, start, err)

		if err != nil {
			if errors.Is(err, storage.ErrBadMagic) {
				fail("ERROR : Not a valid index file.")
			}
			fail(err.Error())
		}

		for _, r := range results {
			printLoadLine(r)
		}
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func loadAll(indexFile, csvFile string) ([]loader.LineResult, error) {
	pager, err := storage.Open(indexFile)
	if err != nil {
		return nil, err
	}
	defer pager.Close()
	pager.WithMetrics(metrics)

	csv, err := os.Open(csvFile)
	if err != nil {
		return nil, err
	}
	defer csv.Close()

	tree := btree.New(pager).WithMetrics(metrics)
	return loader.Load(csv, tree)
}

// printLoadLine reuses insert's own message set, since load drives the
// same insert engine one CSV line at a time and reports each line's
// outcome exactly as a standalone insert would.
func printLoadLine(r loader.LineResult) {
	switch {
	case errors.Is(r.Err, loader.ErrMalformedLine):
		fmt.Printf("Error: Invalid format in line %d: '%s'\n", r.Line, r.Raw)
	case errors.Is(r.Err, btree.ErrDuplicateKey):
		fmt.Printf("Key %d already exists. Insertion aborted.\n", r.Key)
	case r.Err != nil:
		fmt.Printf("Error: %v\n", r.Err)
	default:
		printInsertOutcome(r.Key, r.Outcome)
	}
}
