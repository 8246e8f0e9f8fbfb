package cmd

import (
	"github.com/spf13/cobra"
)

var restartCmd = &cobra.Command{
	Use:   "restart [server...]",
	Short: "Stop and start servers",
	Long: `Stop each named server as 'stop' does, then start it again. A server
that was not running is just started.`,
	ValidArgsFunction: serverCompletion,
	RunE: withApp(func(cmd *cobra.Command, rt *app) error {
		return rt.director.Restart(cmd.Context(), stopDelay(cmd, rt))
	}),
}

func init() {
	addDelayFlag(restartCmd)
	rootCmd.AddCommand(restartCmd)
}
