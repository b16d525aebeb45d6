package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/adrennan/cordix/pkg/btree"
	"github.com/adrennan/cordix/pkg/storage"
)

var extractCmd = &cobra.Command{
	Use:   "extract <indexfile> <csvfile>",
	Short: "Write key,value pairs in ascending key order to a new CSV file",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		indexFile, csvFile := args[0], args[1]
		start := time.Now()

		if _, err := os.Stat(csvFile); err == nil {
			fail(fmt.Sprintf("Error: Output file '%s' already exists.", csvFile))
		}

		err := extractIndex(indexFile, csvFile)
		logInvocation("extract", indexFile, start, err)

		switch {
		case err == nil, errors.Is(err, btree.ErrEmptyTree):
			return
		case errors.Is(err, storage.ErrNotFound):
			fail(fmt.Sprintf("Error: Index file '%s' does not exist.", indexFile))
		case errors.Is(err, storage.ErrBadMagic):
			fail("ERROR : Not a valid index file.")
		default:
			os.Remove(csvFile)
			fail(err.Error())
		}
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func extractIndex(indexFile, csvFile string) error {
	pager, err := storage.Open(indexFile)
	if err != nil {
		return err
	}
	defer pager.Close()
	pager.WithMetrics(metrics)

	out, err := os.OpenFile(csvFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	tree := btree.New(pager).WithMetrics(metrics)
	if err := tree.Traverse(out); err != nil && !errors.Is(err, btree.ErrEmptyTree) {
		return err
	}
	return nil
}
