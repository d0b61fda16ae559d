package competition

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/fieldofplay/go/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// PostgresRepository stores groups, athletes and attempts in Postgres.
// Writes fire the athlete_changes notification through table triggers.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the tables and triggers if they do not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Groups(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM competition_groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan group name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *PostgresRepository) Group(ctx context.Context, name string) (*models.Group, error) {
	g := &models.Group{Name: name}
	err := r.pool.QueryRow(ctx,
		`SELECT description, platform FROM competition_groups WHERE name = $1`, name,
	).Scan(&g.Description, &g.Platform)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("group %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load group %q: %w", name, err)
	}

	rows, err := r.pool.Query(ctx, `
        SELECT id, first_name, last_name, team, gender, category,
               body_weight, birth_year, lot_number, start_number
        FROM athletes WHERE group_name = $1 ORDER BY start_number, lot_number`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load athletes of %q: %w", name, err)
	}
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var a models.Athlete
		var gender string
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Team, &gender, &a.Category,
			&a.BodyWeight, &a.BirthYear, &a.LotNumber, &a.StartNumber); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan athlete: %w", err)
		}
		a.Gender = models.Gender(gender)
		index[a.ID] = len(g.Athletes)
		g.Athletes = append(g.Athletes, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read athletes: %w", err)
	}

	rows, err = r.pool.Query(ctx, `
        SELECT t.athlete_id, t.slot, t.declaration, t.change1, t.change2, t.actual_lift, t.lift_time
        FROM attempts t JOIN athletes a ON a.id = t.athlete_id
        WHERE a.group_name = $1`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts of %q: %w", name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   uuid.UUID
			slot int
			att  models.Attempt
		)
		if err := rows.Scan(&id, &slot, &att.Declaration, &att.Change1, &att.Change2, &att.ActualLift, &att.LiftTime); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		if i, ok := index[id]; ok && slot >= 0 && slot < models.AttemptSlots {
			g.Athletes[i].Attempts[slot] = att
		}
	}
	return g, rows.Err()
}

func (r *PostgresRepository) RecordLift(ctx context.Context, athleteID uuid.UUID, slot int, good bool, at time.Time) error {
	return r.updateAthlete(ctx, athleteID, func(a *models.Athlete) error {
		return ApplyLift(a, slot, good, at)
	})
}

func (r *PostgresRepository) ChangeWeight(ctx context.Context, athleteID uuid.UUID, slot, weight int) error {
	return r.updateAthlete(ctx, athleteID, func(a *models.Athlete) error {
		return ApplyChange(a, slot, weight)
	})
}

// SaveGroup upserts a group with its athletes and attempts.
func (r *PostgresRepository) SaveGroup(ctx context.Context, g models.Group) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
            INSERT INTO competition_groups (name, description, platform) VALUES ($1, $2, $3)
            ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, platform = EXCLUDED.platform`,
			g.Name, g.Description, g.Platform); err != nil {
			return fmt.Errorf("failed to upsert group %q: %w", g.Name, err)
		}
		for i := range g.Athletes {
			a := &g.Athletes[i]
			if _, err := tx.Exec(ctx, `
                INSERT INTO athletes (id, group_name, first_name, last_name, team, gender, category,
                                      body_weight, birth_year, lot_number, start_number)
                VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
                ON CONFLICT (id) DO UPDATE SET
                  group_name = EXCLUDED.group_name, first_name = EXCLUDED.first_name,
                  last_name = EXCLUDED.last_name, team = EXCLUDED.team, gender = EXCLUDED.gender,
                  category = EXCLUDED.category, body_weight = EXCLUDED.body_weight,
                  birth_year = EXCLUDED.birth_year, lot_number = EXCLUDED.lot_number,
                  start_number = EXCLUDED.start_number`,
				a.ID, g.Name, a.FirstName, a.LastName, a.Team, string(a.Gender), a.Category,
				a.BodyWeight, a.BirthYear, a.LotNumber, a.StartNumber); err != nil {
				return fmt.Errorf("failed to upsert athlete %s: %w", a.ID, err)
			}
			if err := saveAttempts(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRepository) updateAthlete(ctx context.Context, athleteID uuid.UUID, fn func(a *models.Athlete) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		a := models.Athlete{ID: athleteID}
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM athletes WHERE id = $1 FOR UPDATE`, athleteID).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("athlete %s: %w", athleteID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to lock athlete %s: %w", athleteID, err)
		}

		rows, err := tx.Query(ctx, `
            SELECT slot, declaration, change1, change2, actual_lift, lift_time
            FROM attempts WHERE athlete_id = $1`, athleteID)
		if err != nil {
			return fmt.Errorf("failed to load attempts of %s: %w", athleteID, err)
		}
		for rows.Next() {
			var (
				slot int
				att  models.Attempt
			)
			if err := rows.Scan(&slot, &att.Declaration, &att.Change1, &att.Change2, &att.ActualLift, &att.LiftTime); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan attempt: %w", err)
			}
			if slot >= 0 && slot < models.AttemptSlots {
				a.Attempts[slot] = att
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if err := fn(&a); err != nil {
			return err
		}
		return saveAttempts(ctx, tx, &a)
	})
}

func saveAttempts(ctx context.Context, tx pgx.Tx, a *models.Athlete) error {
	for slot, att := range a.Attempts {
		if _, err := tx.Exec(ctx, `
            INSERT INTO attempts (athlete_id, slot, declaration, change1, change2, actual_lift, lift_time)
            VALUES ($1,$2,$3,$4,$5,$6,$7)
            ON CONFLICT (athlete_id, slot) DO UPDATE SET
              declaration = EXCLUDED.declaration, change1 = EXCLUDED.change1,
              change2 = EXCLUDED.change2, actual_lift = EXCLUDED.actual_lift,
              lift_time = EXCLUDED.lift_time`,
			a.ID, slot, att.Declaration, att.Change1, att.Change2, att.ActualLift, att.LiftTime); err != nil {
			return fmt.Errorf("failed to save attempt %d of %s: %w", slot, a.ID, err)
		}
	}
	return nil
}
