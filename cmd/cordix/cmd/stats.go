package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/adrennan/cordix/pkg/btree"
	"github.com/adrennan/cordix/pkg/codec"
	"github.com/adrennan/cordix/pkg/storage"
)

var statsCmd = &cobra.Command{
	Use:   "stats <indexfile>",
	Short: "Print header fields, file size, and tree height",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		indexFile := args[0]
		start := time.Now()

		info, err := indexStats(indexFile)
		logInvocation("stats", indexFile, start, err)

		switch {
		case err == nil:
			fmt.Printf("Index file: %s\n", indexFile)
			fmt.Printf("Magic: %s\n", codec.Magic)
			fmt.Printf("Root ID: %d\n", info.rootID)
			fmt.Printf("Next block ID: %d\n", info.nextID)
			fmt.Printf("File size: %d bytes\n", info.fileSize)
			fmt.Printf("Tree height: %d\n", info.height)
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
	rootCmd.AddCommand(statsCmd)
}

type statsInfo struct {
	rootID, nextID uint64
	fileSize       int64
	height         int
}

func indexStats(indexFile string) (statsInfo, error) {
	pager, err := storage.Open(indexFile)
	if err != nil {
		return statsInfo{}, err
	}
	defer pager.Close()
	pager.WithMetrics(metrics)

	fi, err := os.Stat(indexFile)
	if err != nil {
		return statsInfo{}, err
	}

	tree := btree.New(pager).WithMetrics(metrics)
	height, err := tree.Height()
	if err != nil {
		return statsInfo{}, err
	}

	rootID, nextID := pager.ReadHeader()
	return statsInfo{rootID: rootID, nextID: nextID, fileSize: fi.Size(), height: height}, nil
}
