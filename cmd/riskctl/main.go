// Command riskctl assesses health profiles from the shell and maintains the
// registry database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nyashahama/vitalwatch-backend/internal/assessment"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(defaultDeps()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "riskctl:", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes bad input from upstream failures for scripts.
func exitCode(err error) int {
	switch assessment.Kind(err) {
	case "validation":
		return 2
	case "transport", "schema":
		return 3
	default:
		return 1
	}
}
