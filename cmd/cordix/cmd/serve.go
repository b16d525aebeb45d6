package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adrennan/cordix/pkg/api"
	"github.com/adrennan/cordix/pkg/storage"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve <indexfile>",
	Short: "Start the read-only HTTP query server over an index file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		indexFile := args[0]

		pager, err := storage.Open(indexFile)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrNotFound):
				fail(fmt.Sprintf("Error: Index file '%s' does not exist.", indexFile))
			case errors.Is(err, storage.ErrBadMagic):
				fail("ERROR : Not a valid index file.")
			default:
				fail(err.Error())
			}
		}
		pager.Close()

		addr := serveAddr
		if addr == "" {
			addr = cfg.ServerAddr
		}

		logger.Info("starting query server", "addr", addr, "index_file", indexFile, "correlation_id", correlationID)
		fmt.Printf("Starting cordix query server on %s\n", addr)
		if err := api.StartServer(addr, indexFile, metrics); err != nil {
			logger.Error("query server exited", "error", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (defaults to the config's server_addr)")
}
