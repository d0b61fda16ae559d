// Package health reports whether the engine and the services it depends on are usable.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mcdev12/fieldofplay/go/internal/fop"
	"github.com/mcdev12/fieldofplay/go/internal/fop/orchestrator"
	"github.com/rs/zerolog/log"
)

// DefaultBacklogThreshold is the mailbox depth above which a platform is reported as lagging.
const DefaultBacklogThreshold = 32

type PlatformStatus struct {
	State   fop.State `json:"state"`
	Group   string    `json:"group,omitempty"`
	Pending int       `json:"pending"`
	Running bool      `json:"running"`
}

type Status struct {
	Healthy           bool                      `json:"healthy"`
	Platforms         map[string]PlatformStatus `json:"platforms"`
	DatabaseConnected *bool                     `json:"database_connected,omitempty"`
	NATSConnected     *bool                     `json:"nats_connected,omitempty"`
	Errors            []string                  `json:"errors"`
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Connection is satisfied by *nats.Conn.
type Connection interface {
	IsConnected() bool
}

// Registry is satisfied by *orchestrator.Registry.
type Registry interface {
	All() []*orchestrator.FieldOfPlay
}

type Checker struct {
	registry  Registry
	db        Pinger
	nats      Connection
	threshold int
}

// NewChecker builds a checker. db and nc may be nil when the engine runs without them.
func NewChecker(registry Registry, db Pinger, nc Connection) *Checker {
	return &Checker{
		registry:  registry,
		db:        db,
		nats:      nc,
		threshold: DefaultBacklogThreshold,
	}
}

func (c *Checker) Check(ctx context.Context) Status {
	status := Status{
		Healthy:   true,
		Platforms: map[string]PlatformStatus{},
		Errors:    []string{},
	}

	for _, f := range c.registry.All() {
		s := f.Snapshot()
		ps := PlatformStatus{
			State:   s.State,
			Group:   s.Group,
			Pending: f.Pending(),
			Running: !f.Stopped(),
		}
		status.Platforms[f.Platform()] = ps

		if !ps.Running {
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("platform %s: command loop stopped", f.Platform()))
		}
		if ps.Pending > c.threshold {
			status.Errors = append(status.Errors, fmt.Sprintf("platform %s: %d commands pending", f.Platform(), ps.Pending))
		}
	}

	if c.db != nil {
		ok := true
		if err := c.db.Ping(ctx); err != nil {
			ok = false
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
		}
		status.DatabaseConnected = &ok
	}

	if c.nats != nil {
		ok := c.nats.IsConnected()
		if !ok {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
		status.NATSConnected = &ok
	}

	return status
}

// ServeHTTP answers 200 when healthy and 503 otherwise, with the status as JSON.
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := c.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to write health status")
	}
}
