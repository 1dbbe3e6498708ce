package main

import (
	"weighline/internal/notsub"

	"github.com/spf13/cobra"
)

var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Print bin notifications",
	Long: `Consume the bin_notifications queue and print each notification when it
is due. Scheduled notifications still pending at shutdown go back to the queue.
Requires the rabbitmq section of the config.`,
	RunE: runNotifier,
}

func runNotifier(cmd *cobra.Command, args []string) error {
	mylog, err := newLogger("notification-subscriber")
	if err != nil {
		return err
	}
	defer mylog.Sync()

	mylog.Action("notification_subscriber_started").Info("Successfully started")
	return notsub.Execute(cmd.Context(), mylog, configPath, cmd.OutOrStdout())
}
