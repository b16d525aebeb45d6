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

var insertCmd = &cobra.Command{
	Use:   "insert <indexfile> <key> <value>",
	Short: "Insert one key/value pair, rejecting duplicates",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		indexFile := args[0]
		start := time.Now()

		key, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			fail(fmt.Sprintf("ERROR: Invalid key '%s'.", args[1]))
		}
		value, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			fail(fmt.Sprintf("ERROR: Invalid value '%s'.", args[2]))
		}

		outcome, err := insertOne(indexFile, key, value)
		logInvocation("insert", indexFile, start, err)

		switch {
		case err == nil:
			printInsertOutcome(key, outcome)
		case errors.Is(err, storage.ErrNotFound):
			fail(fmt.Sprintf("ERROR: Index file '%s' does not exist.", indexFile))
		case errors.Is(err, storage.ErrBadMagic):
			fail("ERROR: Not a valid index file.")
		case errors.Is(err, btree.ErrDuplicateKey):
			fmt.Printf("Key %d already exists. Insertion aborted.\n", key)
		default:
			fail(err.Error())
		}
	},
}

func init() {
	rootCmd.AddCommand(insertCmd)
}

// insertOne opens indexFile, inserts (key, value), and closes the file
// whether or not the insert succeeded.
func insertOne(indexFile string, key, value uint64) (btree.InsertOutcome, error) {
	pager, err := storage.Open(indexFile)
	if err != nil {
		return btree.InsertOutcome{}, err
	}
	defer pager.Close()

	tree := btree.New(pager).WithMetrics(metrics)
	pager.WithMetrics(metrics)
	return tree.InsertReporting(key, value)
}

func printInsertOutcome(key uint64, outcome btree.InsertOutcome) {
	switch outcome.Shape {
	case btree.InsertAsRoot:
		fmt.Printf("Inserted key %d as root.\n", key)
	case btree.InsertRootSplit:
		fmt.Printf("Root was split. New root created with key %d.\n", outcome.PromotedKey)
	default:
		fmt.Printf("Inserted key %d.\n", key)
	}
}
