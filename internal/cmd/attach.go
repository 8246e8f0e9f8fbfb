package cmd

import (
	"github.com/spf13/cobra"
)

var attachCmd = &cobra.Command{
	Use:   "attach <server>",
	Short: "Attach to a server console",
	Long: `Attach the terminal to the server's tmux session to type console
commands directly. Detach with Ctrl-b d; the server keeps running.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: serverCompletion,
	RunE: withApp(func(cmd *cobra.Command, rt *app) error {
		return rt.director.Attach(cmd.Context())
	}),
}

func init() {
	rootCmd.AddCommand(attachCmd)
}
