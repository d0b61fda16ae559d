// Package relay republishes field of play events on NATS JetStream so that remote
// consoles and scoreboards on other machines can follow the platforms.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mcdev12/fieldofplay/go/internal/fop"
	"github.com/mcdev12/fieldofplay/go/internal/fop/bus"
	"github.com/mcdev12/fieldofplay/go/internal/fop/events"
	"github.com/mcdev12/fieldofplay/go/internal/metrics"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

type Config struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration
	Replicas        int
	DuplicateWindow time.Duration
	PublishTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:             nats.DefaultURL,
		StreamName:      "FOP_EVENTS",
		SubjectPrefix:   "fop.events",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		MaxAge:          24 * time.Hour,
		Replicas:        1,
		DuplicateWindow: 2 * time.Minute,
		PublishTimeout:  2 * time.Second,
	}
}

// Connect opens a NATS connection that reconnects forever, and its JetStream context.
func Connect(cfg Config) (*nats.Conn, jetstream.JetStream, error) {
	opts := []nats.Option{
		nats.Name("fieldofplay"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return nc, js, nil
}

// Publisher is the part of jetstream.JetStream the relay publishes through.
type Publisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// StreamManager is the part of jetstream.JetStream that declares streams.
type StreamManager interface {
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// EnsureStream declares the event stream. Duplicates are detected on the event id.
func EnsureStream(ctx context.Context, sm StreamManager, cfg Config) error {
	_, err := sm.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Description: "Field of play events",
		Subjects:    []string{cfg.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      cfg.MaxAge,
		Storage:     jetstream.FileStorage,
		Replicas:    cfg.Replicas,
		Duplicates:  cfg.DuplicateWindow,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", cfg.StreamName, err)
	}
	log.Info().Str("stream", cfg.StreamName).Msg("event stream ready")
	return nil
}

// Subject is where an event of a platform is published.
func Subject(prefix, platform string, kind events.Kind) string {
	return fmt.Sprintf("%s.%s.%s", prefix, fop.SubjectToken(platform), kind)
}

// Relay publishes the events of the buses it is attached to.
type Relay struct {
	publisher     Publisher
	config        Config
	metrics       metrics.Collector
	subscriptions []*bus.Subscription
}

func New(publisher Publisher, cfg Config, m metrics.Collector) *Relay {
	if m == nil {
		m = metrics.NoOpCollector{}
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultConfig().PublishTimeout
	}
	return &Relay{publisher: publisher, config: cfg, metrics: m}
}

// Attach subscribes to a platform bus. Call it before Run.
func (r *Relay) Attach(b *bus.Bus) {
	r.subscriptions = append(r.subscriptions, b.Subscribe("relay", bus.DefaultBuffer))
}

// Run publishes events until ctx is cancelled. Each platform publishes in order on its
// own goroutine.
func (r *Relay) Run(ctx context.Context) error {
	log.Info().Int("platforms", len(r.subscriptions)).Msg("event relay started")

	var wg sync.WaitGroup
	for _, sub := range r.subscriptions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sub.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-sub.C:
					if !ok {
						return
					}
					if err := r.Publish(ctx, ev); err != nil {
						log.Warn().
							Err(err).
							Str("platform", ev.Head().Platform).
							Str("event_type", string(ev.Kind())).
							Msg("failed to relay event")
					}
				}
			}
		}()
	}
	wg.Wait()
	log.Info().Msg("event relay stopped")
	return nil
}

// Publish sends one event. The event id doubles as the JetStream message id.
func (r *Relay) Publish(ctx context.Context, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		r.metrics.RecordRelayPublish(string(ev.Kind()), false)
		return fmt.Errorf("marshal event: %w", err)
	}

	h := ev.Head()
	msg := &nats.Msg{
		Subject: Subject(r.config.SubjectPrefix, h.Platform, ev.Kind()),
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{string(ev.Kind())},
			"Event-ID":   []string{h.ID.String()},
			"Platform":   []string{h.Platform},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.PublishTimeout)
	defer cancel()
	ack, err := r.publisher.PublishMsg(ctx, msg,
		jetstream.WithMsgID(h.ID.String()),
		jetstream.WithExpectStream(r.config.StreamName),
	)
	r.metrics.RecordRelayPublish(string(ev.Kind()), err == nil)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", msg.Subject).
		Str("event_id", h.ID.String()).
		Uint64("sequence", ack.Sequence).
		Msg("relayed event")
	return nil
}
