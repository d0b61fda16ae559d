package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/fieldofplay/go/internal/competition"
	"github.com/mcdev12/fieldofplay/go/internal/config"
	"github.com/mcdev12/fieldofplay/go/internal/fop/forwarder"
	"github.com/mcdev12/fieldofplay/go/internal/fop/gateway"
	"github.com/mcdev12/fieldofplay/go/internal/fop/orchestrator"
	"github.com/mcdev12/fieldofplay/go/internal/fop/relay"
	"github.com/mcdev12/fieldofplay/go/internal/fop/service"
	"github.com/mcdev12/fieldofplay/go/internal/health"
	"github.com/mcdev12/fieldofplay/go/internal/metrics"
	"github.com/mcdev12/fieldofplay/go/internal/translation"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Registry   *orchestrator.Registry
	Gateway    *gateway.Service
	FOP        *service.Service
	Health     *health.Checker
	Metrics    *metrics.PrometheusCollector
	Forwarders []*forwarder.Forwarder
	Relay      *relay.Relay
	Consumer   *orchestrator.CommandConsumer
	Listener   *competition.ChangeListener

	pool *pgxpool.Pool
	nc   *nats.Conn
}

func setupServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	s := &Services{Metrics: metrics.NewPrometheusCollector("fop")}
	if err := s.setup(ctx, cfg); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Services) setup(ctx context.Context, cfg *config.Config) error {
	// Wire up dependency injection chain
	// Repository → fields of play → registry → outputs
	repo, pool, err := setupRepository(ctx, cfg)
	if err != nil {
		return err
	}
	s.pool = pool

	records, err := competition.LoadRecordTable(cfg.Competition.RecordsFile)
	if err != nil {
		return err
	}

	// Fields of play
	rules := orchestrator.Config{
		AttemptTime:            cfg.Competition.AttemptTime,
		ConsecutiveAttemptTime: cfg.Competition.ConsecutiveAttemptTime,
		DecisionVisible:        cfg.Competition.DecisionVisible,
		LeaderCount:            cfg.Competition.LeaderCount,
	}
	fops := make([]*orchestrator.FieldOfPlay, 0, len(cfg.Platforms))
	for _, p := range cfg.Platforms {
		f, err := orchestrator.NewFieldOfPlay(orchestrator.Params{
			Platform:   p.Name,
			Repository: repo,
			Records:    records,
			Metrics:    s.Metrics,
			Config:     rules,
		})
		if err != nil {
			return err
		}
		fops = append(fops, f)
	}
	if s.Registry, err = orchestrator.NewRegistry(fops...); err != nil {
		return err
	}

	// Displays and consoles
	s.Gateway = gateway.NewService(gateway.DefaultConfig(), s.Registry, s.Metrics)
	s.FOP = service.NewService(s.Registry)

	if err := s.setupForwarders(cfg); err != nil {
		return err
	}
	if err := s.setupNATS(ctx, cfg); err != nil {
		return err
	}
	if cfg.Database.Enabled && cfg.Database.Listen {
		if err := s.setupListener(cfg); err != nil {
			return err
		}
	}

	var db health.Pinger
	if s.pool != nil {
		db = s.pool
	}
	var nc health.Connection
	if s.nc != nil {
		nc = s.nc
	}
	s.Health = health.NewChecker(s.Registry, db, nc)
	return nil
}

func (s *Services) setupForwarders(cfg *config.Config) error {
	if cfg.Remote.URL == "" {
		log.Info().Msg("no remote results service configured")
		return nil
	}

	catalog, err := translation.Load(cfg.Competition.Locale, cfg.Competition.TranslationsDir)
	if err != nil {
		return err
	}

	fcfg := forwarder.RemoteConfig(cfg.Remote.URL, cfg.Remote.UpdateKey)
	fcfg.Debounce = cfg.Remote.Debounce
	fcfg.MaxInFlight = cfg.Remote.MaxInFlight
	fcfg.RequestTimeout = cfg.Remote.RequestTimeout
	fcfg.ConfigDir = cfg.Remote.ConfigDir

	for _, f := range s.Registry.All() {
		fw, err := forwarder.New(forwarder.Params{
			Source:       f,
			Bus:          f.Bus(),
			Translations: catalog,
			Metrics:      s.Metrics,
			Config:       fcfg,
		})
		if err != nil {
			return fmt.Errorf("platform %s: %w", f.Platform(), err)
		}
		s.Forwarders = append(s.Forwarders, fw)
	}

	log.Info().
		Str("remote", cfg.Remote.URL).
		Str("locale", catalog.Locale()).
		Int("platforms", len(s.Forwarders)).
		Msg("forwarding to remote results service")
	return nil
}

func (s *Services) setupNATS(ctx context.Context, cfg *config.Config) error {
	if cfg.NATS.URL == "" {
		return nil
	}

	rcfg := relay.DefaultConfig()
	rcfg.URL = cfg.NATS.URL
	rcfg.StreamName = cfg.NATS.StreamName
	rcfg.SubjectPrefix = cfg.NATS.SubjectPrefix

	nc, js, err := relay.Connect(rcfg)
	if err != nil {
		return err
	}
	s.nc = nc

	if err := relay.EnsureStream(ctx, js, rcfg); err != nil {
		return err
	}
	s.Relay = relay.New(js, rcfg, s.Metrics)
	for _, f := range s.Registry.All() {
		s.Relay.Attach(f.Bus())
	}

	if cfg.NATS.Commands {
		if s.Consumer, err = orchestrator.NewCommandConsumer(ctx, js, s.Registry); err != nil {
			return err
		}
	}
	return nil
}

func (s *Services) setupListener(cfg *config.Config) error {
	lcfg := competition.DefaultListenerConfig()
	lcfg.DatabaseURL = cfg.Database.DSN()

	var err error
	s.Listener, err = competition.NewChangeListener(lcfg, func(ctx context.Context, group string) {
		f, ok := s.Registry.ForGroup(group)
		if !ok {
			return
		}
		if err := f.Submit(ctx, orchestrator.AthleteDataChanged{}); err != nil {
			log.Warn().Err(err).Str("group", group).Msg("failed to refresh lifting order")
		}
	})
	return err
}

// Close releases the connections opened by setupServices.
func (s *Services) Close() {
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			log.Warn().Err(err).Msg("failed to drain NATS connection")
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
