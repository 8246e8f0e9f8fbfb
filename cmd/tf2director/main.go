// Command tf2director manages TF2 dedicated servers running in tmux.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tf2director/tf2director/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
