package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	importercmd "github.com/marcusguelfi/rpg-plataform/internal/cmd/importer"
	"github.com/marcusguelfi/rpg-plataform/internal/platform/config"
)

func main() {
	cfg, err := importercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[IMPORTER] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := importercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
