package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRenderCmd() *cobra.Command {
	var bf bodyFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print a rendered body without sending anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := bf.buildBody(cmd, 0)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, b.Content())
			if alt := b.Alternative(); alt != "" {
				fmt.Fprintln(out, "-----")
				fmt.Fprintln(out, alt)
			}
			return nil
		},
	}
	bf.register(cmd)
	return cmd
}
