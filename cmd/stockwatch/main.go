package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stockwatch/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	code := cli.ExitCode(err)
	stop()
	os.Exit(code)
}
