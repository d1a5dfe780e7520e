package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/probekit/probekit/internal/errors"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		formatter := errors.NewFormatter(os.Stderr, noColor)
		os.Stderr.WriteString(formatter.Format(err))
		os.Exit(1)
	}
}
