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

var printCmd = &cobra.Command{
	Use:   "print <indexfile>",
	Short: "Print key,value pairs in ascending key order",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		indexFile := args[0]
		start := time.Now()

		err := printIndex(indexFile, os.Stdout)
		logInvocation("print", indexFile, start, err)

		switch {
		case err == nil, errors.Is(err, btree.ErrEmptyTree):
			if errors.Is(err, btree.ErrEmptyTree) {
				fmt.Println("Index is empty.")
			}
		case errors.Is(err, storage.ErrNotFound):
			fail(fmt.Sprintf("Error: Index file '%s' does not exist.", indexFile))
		case errors.Is(err, storage.ErrBadMagic):
			fail("ERROR : Not a valid index file.")
		default:
			fail(err.Error())
		}
	},
}

func init() {
	rootCmd.AddCommand(printCmd)
}

func printIndex(indexFile string, w *os.File) error {
	pager, err := storage.Open(indexFile)
	if err != nil {
		return err
	}
	defer pager.Close()
	pager.WithMetrics(metrics)

	tree := btree.New(pager).WithMetrics(metrics)
	return tree.Traverse(w)
}
