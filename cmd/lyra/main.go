package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"lyra-cli/internal/cli"
)

func main() {
	// ctrl+c cancels in-flight requests; the TUI handles its own keys.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
