// Package cli implements the fluentmail command line.
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewRootCmd returns the fluentmail command with its subcommands attached.
func NewRootCmd() *cobra.Command {
	var level string

	root := &cobra.Command{
		Use:           "fluentmail",
		Short:         "Compose emails from templates and send them over SMTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("level") {
				return nil
			}
			return setLevel(level)
		},
	}
	root.PersistentFlags().StringVar(
		&level,
		"level",
		"info",
		`log level: "debug", "info", "warn" or "error"; overrides the config file`,
	)

	root.AddCommand(newSendCmd())
	root.AddCommand(newRenderCmd())
	return root
}

// Execute runs the root command with ctx, which is canceled on interrupt.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func setLevel(s string) error {
	l, err := zerolog.ParseLevel(s)
	if err != nil || l == zerolog.NoLevel {
		return fmt.Errorf("unknown log level %q", s)
	}
	log.Logger = log.Logger.Level(l)
	return nil
}
