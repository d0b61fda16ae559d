package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/fieldofplay/go/internal/competition"
	"github.com/mcdev12/fieldofplay/go/internal/config"
	"github.com/mcdev12/fieldofplay/go/internal/models"
	"github.com/rs/zerolog/log"
)

// setupRepository opens the Postgres roster when the database is enabled. Otherwise the
// roster file, if any, is loaded in memory. The pool is nil for the in-memory roster.
func setupRepository(ctx context.Context, cfg *config.Config) (competition.Repository, *pgxpool.Pool, error) {
	if !cfg.Database.Enabled {
		var groups []models.Group
		if cfg.Competition.RosterFile != "" {
			loaded, err := competition.LoadRoster(cfg.Competition.RosterFile)
			if err != nil {
				return nil, nil, err
			}
			groups = loaded
		}
		log.Info().
			Int("groups", len(groups)).
			Str("roster", cfg.Competition.RosterFile).
			Msg("using in-memory roster")
		return competition.NewMemoryRepository(groups...), nil, nil
	}

	db := cfg.Database
	pool, err := pgxpool.New(ctx, db.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := competition.NewPostgresRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info().
		Str("user", db.User).
		Str("host", db.Host).
		Int("port", db.Port).
		Str("database", db.Name).
		Msg("connected to database")
	return repo, pool, nil
}
