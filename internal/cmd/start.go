package cmd

import (
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start [server...]",
	Short: "Start servers",
	Long: `Start each named server in a new tmux session. The previous console
log is archived first and the new session's output is mirrored to
logs/<server>-console.log.

A server that is already running is left alone.`,
	ValidArgsFunction: serverCompletion,
	RunE: withApp(func(cmd *cobra.Command, rt *app) error {
		return rt.director.Start(cmd.Context())
	}),
}

func init() {
	rootCmd.AddCommand(startCmd)
}
