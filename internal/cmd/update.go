package cmd

import (
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update [server...]",
	Short: "Install server updates with steamcmd",
	Long: `Update each named server with steamcmd.

A stopped server is updated in place. A running server is only touched when
its console log shows that Steam has requested a restart; it is then
stopped, updated and started again. Other running servers are left alone.`,
	ValidArgsFunction: serverCompletion,
	RunE: withApp(func(cmd *cobra.Command, rt *app) error {
		return rt.director.Update(cmd.Context(), stopDelay(cmd, rt))
	}),
}

func init() {
	addDelayFlag(updateCmd)
	rootCmd.AddCommand(updateCmd)
}
