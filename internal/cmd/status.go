package cmd

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [server...]",
	Short: "Show live server status",
	Long: `Query each named server over the Source query protocol and print its
name, player count and players sorted by score.

Servers without a public ip in the config are skipped.`,
	ValidArgsFunction: serverCompletion,
	RunE: withApp(func(cmd *cobra.Command, rt *app) error {
		return rt.director.Status(cmd.Context())
	}),
}

var checkUpdateCmd = &cobra.Command{
	Use:   "check-update [server...]",
	Short: "Report which running servers have an update pending",
	Long: `Print "<server>: not running", "<server>: HAS UPDATE" or
"<server>: no update" for each named server. Nothing is changed.`,
	ValidArgsFunction: serverCompletion,
	RunE: withApp(func(cmd *cobra.Command, rt *app) error {
		return rt.director.CheckUpdate(cmd.Context())
	}),
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkUpdateCmd)
}
