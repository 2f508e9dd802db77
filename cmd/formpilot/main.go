package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/martinemde/formpilot/cmd"
)

// osExit is swapped in tests.
var osExit = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()
	if err != nil {
		osExit(1)
	}
}
