// Package gateway pushes field of play events to the displays of the venue over
// websockets and serves the platform state over HTTP.
package gateway

import (
	"context"
	"net/http"
	"sync"

	"github.com/mcdev12/fieldofplay/go/internal/fop/bus"
	"github.com/mcdev12/fieldofplay/go/internal/fop/events"
	"github.com/mcdev12/fieldofplay/go/internal/fop/orchestrator"
	"github.com/mcdev12/fieldofplay/go/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Service ties the platform buses to the connected displays.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	subscriptions     []*bus.Subscription
}

type Config struct {
	ConnectionConfig ConnectionConfig
}

func DefaultConfig() Config {
	return Config{ConnectionConfig: DefaultConnectionConfig()}
}

// NewService subscribes to the bus of every platform in the registry.
func NewService(config Config, registry *orchestrator.Registry, m metrics.Collector) *Service {
	cm := NewConnectionManager(config.ConnectionConfig, m)
	s := &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm, registry),
		stateHandler:      NewStateHandler(registry),
	}
	for _, f := range registry.All() {
		s.subscriptions = append(s.subscriptions, f.Bus().Subscribe("gateway", bus.DefaultBuffer))
	}
	return s
}

// Start relays events to displays until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Int("platforms", len(s.subscriptions)).Msg("starting display gateway")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.connectionManager.Start(ctx)
	}()
	for _, sub := range s.subscriptions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.relay(ctx, sub)
		}()
	}

	<-ctx.Done()
	for _, sub := range s.subscriptions {
		sub.Close()
	}
	wg.Wait()
	log.Info().Msg("display gateway stopped")
	return nil
}

func (s *Service) relay(ctx context.Context, sub *bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			s.BroadcastEvent(ev)
		}
	}
}

// BroadcastEvent sends an event to the displays of its platform.
func (s *Service) BroadcastEvent(ev events.Event) {
	env, err := EventEnvelope(ev)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(ev.Kind())).Msg("failed to wrap event")
		return
	}
	s.connectionManager.BroadcastToPlatform(env.Platform, env)
}

func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("display gateway routes registered")
}

func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
