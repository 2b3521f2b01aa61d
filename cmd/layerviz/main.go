package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/layerviz/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.New(os.Stderr, cli.LogInfo).RootCommand().ExecuteContext(ctx)
	cancel()
	os.Exit(cli.ReportError(os.Stderr, err))
}
