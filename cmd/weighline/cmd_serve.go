package main

import (
	"fmt"

	"weighline/internal/weighing"
	"weighline/internal/weighing/app/core"

	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the weighing HTTP service",
	Long: `Run the HTTP API for orders, excipients, bins and material search,
together with the bin cleaning ticker. Stops on SIGINT, SIGTERM or SIGHUP.

A port of 0 keeps the value from the config file (server.port).`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if servePort < 0 || servePort >= 65536 {
			return fmt.Errorf("port must be in [0: 65,535]: %d", servePort)
		}
		return nil
	},
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on, overrides server.port")
}

func runServe(cmd *cobra.Command, args []string) error {
	mylog, err := newLogger("weighing")
	if err != nil {
		return err
	}
	defer mylog.Sync()

	mylog.Action("weighing_service_started").Info("Successfully started")
	return weighing.Execute(cmd.Context(), mylog, core.ServiceParams{
		Port:       servePort,
		ConfigPath: configPath,
	})
}
