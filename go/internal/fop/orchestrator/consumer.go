package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

const (
	CommandStream         = "FOP_COMMANDS"
	CommandSubjectPrefix  = "fop.commands."
	commandConsumerName   = "fop-orchestrator"
	consumerMaxDeliver    = 5
	consumerAckWait       = 30 * time.Second
	consumerMaxAckPending = 100
)

// CommandConsumer feeds commands published by referee devices and remote consoles on
// fop.commands.<platform> into the registry.
type CommandConsumer struct {
	js       jetstream.JetStream
	consumer jetstream.Consumer
	registry *Registry
}

func NewCommandConsumer(ctx context.Context, js jetstream.JetStream, registry *Registry) (*CommandConsumer, error) {
	c := &CommandConsumer{js: js, registry: registry}
	if err := c.ensureConsumer(ctx); err != nil {
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return c, nil
}

// ensureConsumer creates the command stream if needed and gets or creates the durable consumer.
func (c *CommandConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      CommandStream,
		Subjects:  []string{CommandSubjectPrefix + ">"},
		Retention: jetstream.WorkQueuePolicy,
		MaxAge:    time.Hour,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", CommandStream, err)
	}

	consumer, err := stream.Consumer(ctx, commandConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, jetstream.ConsumerConfig{
			Name:          commandConsumerName,
			Durable:       commandConsumerName,
			Description:   "Field of play command intake",
			FilterSubject: CommandSubjectPrefix + ">",
			// commands issued while the engine was down are stale
			DeliverPolicy: jetstream.DeliverNewPolicy,
			AckPolicy:     jetstream.AckExplicitPolicy,
			MaxDeliver:    consumerMaxDeliver,
			AckWait:       consumerAckWait,
			MaxAckPending: consumerMaxAckPending,
		})
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().Msg("created JetStream consumer for field of play commands")
	} else {
		log.Info().Msg("using existing JetStream consumer for field of play commands")
	}

	c.consumer = consumer
	return nil
}

// Start consumes commands until ctx is cancelled.
func (c *CommandConsumer) Start(ctx context.Context) error {
	log.Info().Msg("starting field of play command consumer")

	messageCh := make(chan jetstream.Msg, consumerMaxAckPending)
	consumeCtx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			_ = msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("field of play command consumer shutting down")
			return nil
		case msg := <-messageCh:
			c.handle(ctx, msg)
		}
	}
}

func (c *CommandConsumer) handle(ctx context.Context, msg jetstream.Msg) {
	err := c.processMessage(ctx, msg)
	switch {
	case err == nil:
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error().Err(ackErr).Msg("failed to ACK message")
		}
	case errors.Is(err, ErrBadCommand), errors.Is(err, ErrUnknownPlatform):
		// redelivery cannot fix a malformed command
		log.Warn().Err(err).Str("subject", msg.Subject()).Msg("dropping command")
		if termErr := msg.Term(); termErr != nil {
			log.Error().Err(termErr).Msg("failed to TERM message")
		}
	default:
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process command")
		if nakErr := msg.Nak(); nakErr != nil {
			log.Error().Err(nakErr).Msg("failed to NAK message")
		}
	}
}

func (c *CommandConsumer) processMessage(ctx context.Context, msg jetstream.Msg) error {
	token, ok := strings.CutPrefix(msg.Subject(), CommandSubjectPrefix)
	if !ok || token == "" {
		return fmt.Errorf("%w: subject %s", ErrBadCommand, msg.Subject())
	}
	platform, ok := c.registry.Resolve(token)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlatform, token)
	}
	cmd, err := ParseCommand(msg.Data())
	if err != nil {
		return err
	}

	log.Debug().
		Str("platform", platform).
		Str("command", cmd.Name()).
		Str("subject", msg.Subject()).
		Msg("received command")

	return c.registry.Submit(ctx, platform, cmd)
}

// ParseCommand decodes a JSON command of the form {"command": "Name", ...args}.
func ParseCommand(data []byte) (Command, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCommand, err)
	}
	name, _ := raw["command"].(string)
	if name == "" {
		return nil, fmt.Errorf("%w: missing command name", ErrBadCommand)
	}
	delete(raw, "command")
	return DecodeCommand(name, raw)
}
