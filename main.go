// Package main is the entry point for the talk2jesus companion.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/castillo-ev/talk2jesus/internal/cli"
)

func main() {
	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	cli.ExecuteContext(ctx)
}
