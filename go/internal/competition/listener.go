package competition

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// ChangeHandler is told which group had athlete data edited.
type ChangeHandler func(ctx context.Context, groupName string)

type ListenerConfig struct {
	DatabaseURL   string
	NotifyChannel string
	PingInterval  time.Duration
	MinReconnect  time.Duration
	MaxReconnect  time.Duration
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel: "athlete_changes",
		PingInterval:  90 * time.Second,
		MinReconnect:  10 * time.Second,
		MaxReconnect:  time.Minute,
	}
}

// ChangeListener turns Postgres notifications about athlete edits into calls to a
// ChangeHandler, so that a field of play can recompute its lifting order.
type ChangeListener struct {
	listener *pq.Listener
	handler  ChangeHandler
	cfg      ListenerConfig
}

func NewChangeListener(cfg ListenerConfig, handler ChangeHandler) (*ChangeListener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		cfg.MinReconnect,
		cfg.MaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for athlete changes")

	return &ChangeListener{listener: l, handler: handler, cfg: cfg}, nil
}

func (l *ChangeListener) Start(ctx context.Context) error {
	pingTicker := time.NewTicker(l.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("change listener shutting down")
			return l.listener.Close()
		case note := <-l.listener.Notify:
			if note == nil {
				// connection was re-established; notifications may have been lost
				continue
			}
			l.handler(ctx, note.Extra)
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}
