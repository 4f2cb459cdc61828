// Command playctl inspects and edits a running playground from the terminal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

const releaseVersion = "0.1.0"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := &Config{}
	err := newCmd(cfg).ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Stderr.WriteString("error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
