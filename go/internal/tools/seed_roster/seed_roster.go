package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/fieldofplay/go/internal/competition"
	"github.com/mcdev12/fieldofplay/go/internal/config"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	path := cfg.Competition.RosterFile
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "usage: seed_roster <roster.yaml> (or set FOP_ROSTER_FILE)")
		os.Exit(2)
	}

	// 1) Load the roster
	groups, err := competition.LoadRoster(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read roster: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect and create the tables
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := competition.NewPostgresRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	// 3) Upsert every group
	var athletes, errs int
	for _, g := range groups {
		if err := repo.SaveGroup(ctx, g); err != nil {
			fmt.Fprintf(os.Stderr, "error saving group %s: %v\n", g.Name, err)
			errs++
			continue
		}
		athletes += len(g.Athletes)
	}

	// 4) Print summary
	fmt.Printf(
		"Roster seed complete: %d groups, %d athletes, %d errors\n",
		len(groups), athletes, errs,
	)
	if errs > 0 {
		os.Exit(1)
	}
}
