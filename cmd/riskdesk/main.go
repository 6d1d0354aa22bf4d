// Command riskdesk analyses option positions held with Zerodha.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"zerodha-risk/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
