// Command courtside manages a card league: ownership, hands and two-party
// trades stored in SQLite.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/courtside/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		stop()
		os.Exit(exitErr.Code)
	}

	// Usage and flag errors never reach the formatter.
	fmt.Fprintln(os.Stderr, "Error:", err)
	stop()
	os.Exit(cli.ExitCommandError)
}
