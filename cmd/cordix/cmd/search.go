package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/adrennan/cordix/pkg/btree"
	"github.com/adrennan/cordix/pkg/storage"
)

var searchCmd = &cobra.Command{
	Use:   "search <indexfile> <key>",
	Short: "Search for a key and print its value",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		indexFile := args[0]
		start := time.Now()

		key, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			fail(fmt.Sprintf("ERROR : Invalid key '%s'.", args[1]))
		}

		value, found, err := searchOne(indexFile, key)
		logInvocation("search", indexFile, start, err)

		switch {
		case err == nil:
			if found {
				fmt.Printf("Key %d found with value %d.\n", key, value)
			} else {
				fmt.Printf("Key %d not found.\n", key)
			}
		case errors.Is(err, btree.ErrEmptyTree):
			// Empty tree is an informational outcome, not a precondition
			// failure: the command still exits 0.
			fmt.Println("ERROR : Tree is empty.")
		case errors.Is(err, storage.ErrNotFound):
			fail("ERROR : Index file does not exist.")
		case errors.Is(err, storage.ErrBadMagic):
			fail("ERROR : Not a valid index file.")
		default:
			fail(err.Error())
		}
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func searchOne(indexFile string, key uint64) (uint64, bool, error) {
	pager, err := storage.Open(indexFile)
	if err != nil {
		return 0, false, err
	}
	defer pager.Close()

	tree := btree.New(pager).WithMetrics(metrics)
	pager.WithMetrics(metrics)
	return tree.Search(key)
}
