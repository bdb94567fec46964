package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	pitwallcmder "github.com/papercomputeco/pitwall/cmd/pitwall"
)

func main() {
	// serve and ask unwind through the command context on Ctrl-C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := pitwallcmder.NewPitwallCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
