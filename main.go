/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

const (
	releaseVersion = "1.0.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cfg := &Config{}
	err := newCmd(cfg).ExecuteContext(ctx)
	stop()

	if err != nil {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}
