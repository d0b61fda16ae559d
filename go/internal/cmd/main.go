package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcdev12/fieldofplay/go/internal/config"
	"github.com/mcdev12/fieldofplay/go/internal/fop/orchestrator"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	setupLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("field of play engine failed")
	}
	log.Info().Msg("field of play engine stopped")
}

func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	services, err := setupServices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("setup services: %w", err)
	}
	defer services.Close()

	srv := setupServer(cfg.Server, services)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return services.Registry.Run(ctx) })
	g.Go(func() error { return services.Gateway.Start(ctx) })
	for _, f := range services.Forwarders {
		g.Go(func() error { return f.Run(ctx) })
	}
	if services.Relay != nil {
		g.Go(func() error { return services.Relay.Run(ctx) })
	}
	if services.Consumer != nil {
		g.Go(func() error { return services.Consumer.Start(ctx) })
	}
	if services.Listener != nil {
		g.Go(func() error { return services.Listener.Start(ctx) })
	}

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Strs("platforms", services.Registry.Platforms()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	openGroups(ctx, services.Registry, cfg.Platforms)
	return g.Wait()
}

// openGroups binds the platforms to the groups they are configured to start with.
func openGroups(ctx context.Context, registry *orchestrator.Registry, platforms []config.PlatformConfig) {
	for _, p := range platforms {
		if p.Group == "" {
			continue
		}
		if err := registry.Submit(ctx, p.Name, orchestrator.SwitchGroup{Group: p.Group}); err != nil {
			log.Error().Err(err).Str("platform", p.Name).Str("group", p.Group).Msg("failed to open group")
		}
	}
}
