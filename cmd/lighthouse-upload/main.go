package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/straye-as/lighthouse-uploader/internal/config"
	"github.com/straye-as/lighthouse-uploader/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps := dependencies{
		loadConfig: config.Load,
		newStorage: storage.NewStorage,
		getwd:      os.Getwd,
	}

	if err := newRootCmd(deps).ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
