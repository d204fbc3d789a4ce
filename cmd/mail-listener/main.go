package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lectorgastos/internal/ai"
	"lectorgastos/internal/config"
	"lectorgastos/internal/listener"
	"lectorgastos/internal/logger"
	"lectorgastos/internal/ocr"
	"lectorgastos/internal/pipeline"
	"lectorgastos/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	log := logger.New(cfg.LogLevel)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	processor := pipeline.NewProcessor(db, ai.NewAdapterFromConfig(ctx, cfg, log), ocr.NewRecognizer(cfg, log), log)
	svc := listener.NewService(db, cfg, processor, log)
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
