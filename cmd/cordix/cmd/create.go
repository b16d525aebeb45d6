package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/adrennan/cordix/pkg/storage"
)

var createCmd = &cobra.Command{
	Use:   "create <indexfile>",
	Short: "Create a new empty index file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		indexFile := args[0]
		start := time.Now()

		pager, err := storage.Create(indexFile)
		logInvocation("create", indexFile, start, err)

		if err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				fail("ERROR : Index file already exists.")
			}
			fail(err.Error())
		}
		pager.Close()
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
