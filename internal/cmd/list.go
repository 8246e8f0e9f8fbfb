package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:               "list [server...]",
	Aliases:           []string{"ls"},
	Short:             "List configured servers and whether they are running",
	ValidArgsFunction: serverCompletion,
	RunE: withApp(func(cmd *cobra.Command, rt *app) error {
		out := cmd.OutOrStdout()
		p := paletteFor(out)

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, p.render(headerStyle, "SERVER")+"\t"+
			p.render(headerStyle, "STATE")+"\t"+
			p.render(headerStyle, "ADDRESS")+"\t"+
			p.render(headerStyle, "SESSION")+"\t"+
			p.render(headerStyle, "PATH"))

		var errs []error
		for _, st := range rt.director.List(cmd.Context()) {
			state := p.render(mutedStyle, "stopped")
			switch {
			case st.Err != nil:
				state = p.render(errorStyle, "unknown")
				errs = append(errs, st.Err)
			case st.Running:
				state = p.render(okStyle, "running")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", st.Name, state, st.Address, st.Session, st.Path)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		return errors.Join(errs...)
	}),
}

func init() {
	rootCmd.AddCommand(listCmd)
}
