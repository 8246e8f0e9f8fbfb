package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop [server...]",
	Short: "Stop servers",
	Long: `Stop each named server. Players are warned in chat, the server quits
after --delay seconds and its tmux session is closed after a short grace
period. The console log is archived afterwards.

A server that is not running is left alone.`,
	ValidArgsFunction: serverCompletion,
	RunE: withApp(func(cmd *cobra.Command, rt *app) error {
		return rt.director.Stop(cmd.Context(), stopDelay(cmd, rt))
	}),
}

func init() {
	addDelayFlag(stopCmd)
	rootCmd.AddCommand(stopCmd)
}

// addDelayFlag adds --delay to a command that may stop servers.
func addDelayFlag(cmd *cobra.Command) {
	cmd.Flags().IntP("delay", "d", 0, "seconds players are warned before quit (default from stop.delay_seconds)")
}

// stopDelay returns --delay when given, otherwise the configured delay.
func stopDelay(cmd *cobra.Command, rt *app) time.Duration {
	if cmd.Flags().Changed("delay") {
		if secs, err := cmd.Flags().GetInt("delay"); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return rt.cfg.Stop.StopDelay()
}
