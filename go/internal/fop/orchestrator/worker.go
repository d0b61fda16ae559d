package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/mcdev12/fieldofplay/go/internal/competition"
	"github.com/mcdev12/fieldofplay/go/internal/fop"
	"github.com/mcdev12/fieldofplay/go/internal/fop/events"
	"github.com/rs/zerolog/log"
)

type envelope struct {
	ctx   context.Context
	cmd   Command
	reply chan error
}

// Run processes commands until ctx is cancelled. It must be called exactly once.
func (f *FieldOfPlay) Run(ctx context.Context) error {
	log.Info().Str("platform", f.platform).Msg("field of play started")
	defer close(f.done)

	for {
		select {
		case <-ctx.Done():
			f.cancelAllTimers()
			log.Info().Str("platform", f.platform).Msg("field of play shutting down")
			return nil
		case env := <-f.mailbox:
			err := f.process(env.ctx, env.cmd)
			if env.reply != nil {
				env.reply <- err
			}
		}
	}
}

// Stopped reports whether the command loop has returned.
func (f *FieldOfPlay) Stopped() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Pending is the number of commands waiting in the mailbox.
func (f *FieldOfPlay) Pending() int {
	return len(f.mailbox)
}

// Submit enqueues a command without waiting for it to be handled.
func (f *FieldOfPlay) Submit(ctx context.Context, cmd Command) error {
	return f.enqueue(ctx, envelope{ctx: context.WithoutCancel(ctx), cmd: cmd})
}

// Do enqueues a command and waits for its outcome.
func (f *FieldOfPlay) Do(ctx context.Context, cmd Command) error {
	reply := make(chan error, 1)
	if err := f.enqueue(ctx, envelope{ctx: context.WithoutCancel(ctx), cmd: cmd, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return ErrStopped
	}
}

func (f *FieldOfPlay) enqueue(ctx context.Context, env envelope) error {
	select {
	case f.mailbox <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return ErrStopped
	}
}

// process handles one command and publishes the resulting snapshot. It never panics.
func (f *FieldOfPlay) process(ctx context.Context, cmd Command) (err error) {
	start := f.clock.Now()
	from := f.currentState()

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("platform", f.platform).
				Str("command", cmd.Name()).
				Str("state", string(from)).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("field of play fault, reverting to INACTIVE")
			f.fault()
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
		f.publishSnapshot()
		f.metrics.RecordCommand(f.platform, cmd.Name(), err == nil, f.clock.Since(start))
	}()

	err = f.dispatch(ctx, cmd)
	switch {
	case err == nil:
		if to := f.currentState(); to != from {
			log.Debug().
				Str("platform", f.platform).
				Str("command", cmd.Name()).
				Str("from", string(from)).
				Str("to", string(to)).
				Msg("state changed")
		}
	case errors.Is(err, ErrInvalidCommand):
		log.Warn().
			Err(err).
			Str("platform", f.platform).
			Str("command", cmd.Name()).
			Str("state", string(from)).
			Msg("rejected command")
	case errors.Is(err, competition.ErrRuleViolation):
		log.Info().
			Err(err).
			Str("platform", f.platform).
			Str("command", cmd.Name()).
			Msg("rule violation")
	default:
		log.Error().
			Err(err).
			Str("platform", f.platform).
			Str("command", cmd.Name()).
			Msg("command failed")
	}
	return err
}

// fault abandons the current context after an unexpected failure. The operator has
// to select a group again.
func (f *FieldOfPlay) fault() {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("platform", f.platform).Interface("panic", r).Msg("fault recovery failed")
		}
	}()
	f.clearPlatform()
	f.publish(events.GroupSwitched{Header: f.header()})
}

// clearPlatform drops the group and every running clock and ends up INACTIVE.
func (f *FieldOfPlay) clearPlatform() {
	f.cancelAllTimers()
	f.athleteClock.Reset(nil)
	f.breakClock.Reset(nil)
	f.decision.Reset()
	f.decisionGen++
	f.group = nil
	f.lifting = competition.LiftingOrder{}
	f.attempt = nil
	f.lastLift = nil
	f.allotted = 0
	f.breakType = fop.BreakNone
	f.ceremony = fop.CeremonyNone
	if f.currentState() == fop.StateInactive {
		return
	}
	if err := f.machine.Transition(string(fop.StateInactive)); err != nil {
		log.Error().Err(err).Str("platform", f.platform).Msg("failed to force INACTIVE")
	}
}

func (f *FieldOfPlay) header() events.Header {
	return events.NewHeader(f.platform, f.clock.Now())
}

func (f *FieldOfPlay) publish(ev events.Event) {
	f.bus.Publish(ev)
}
