// Command reactlm runs a ReAct agent from the terminal.
//
//	reactlm ask "What is the tallest building in Jakarta?"
//	reactlm chat
//	reactlm traces list
//	reactlm tools --format json
//
// Configuration comes from an optional YAML file (--config), .env files and
// environment variables; see internal/config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
