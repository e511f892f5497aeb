package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/ptgott/fluentmail/cli"

	"github.com/rs/zerolog/log"
)

func main() {
	// Log with filename and line number. This writes to stderr, so it should
	// be thread safe.
	// https://github.com/rs/zerolog/blob/7ccd4c940bf8a02fcc5f10e5475f9d3daff04d57/log/log.go#L13
	log.Logger = log.With().Caller().Logger()

	// An interrupt cancels the context. A send that has already dialed
	// finishes its SMTP conversation first.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Execute(ctx, os.Args[1:]); err != nil {
		log.Error().Err(err).Msg("fluentmail failed")
		stop()
		os.Exit(1)
	}
}
