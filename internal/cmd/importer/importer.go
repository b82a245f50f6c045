// Package importer parses importer command flags and starts the service.
package importer

import (
	"context"
	"flag"

	entrypoint "github.com/marcusguelfi/rpg-plataform/internal/platform/cmd"
	server "github.com/marcusguelfi/rpg-plataform/internal/services/importer/app"
)

// Config holds importer command configuration.
type Config struct {
	Port int    `env:"RPG_PLATAFORM_IMPORTER_PORT" envDefault:"8086"`
	Addr string `env:"RPG_PLATAFORM_IMPORTER_ADDR"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The importer server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The importer server listen address (overrides -port)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the sourcebook importer service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceImporter, func(context.Context) error {
		if cfg.Addr != "" {
			return server.RunWithAddr(ctx, cfg.Addr)
		}
		return server.Run(ctx, cfg.Port)
	})
}
