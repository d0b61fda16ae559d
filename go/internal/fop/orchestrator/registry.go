package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mcdev12/fieldofplay/go/internal/fop"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownPlatform is returned when no field of play has the requested name.
var ErrUnknownPlatform = errors.New("unknown platform")

// Registry holds the fields of play of one competition site. It is built once at
// startup and is read-only afterwards.
type Registry struct {
	fops  map[string]*FieldOfPlay
	names []string
}

func NewRegistry(fops ...*FieldOfPlay) (*Registry, error) {
	r := &Registry{fops: make(map[string]*FieldOfPlay, len(fops))}
	for _, f := range fops {
		if _, dup := r.fops[f.Platform()]; dup {
			return nil, fmt.Errorf("duplicate platform %q", f.Platform())
		}
		r.fops[f.Platform()] = f
		r.names = append(r.names, f.Platform())
	}
	sort.Strings(r.names)
	return r, nil
}

func (r *Registry) Get(platform string) (*FieldOfPlay, error) {
	f, ok := r.fops[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}
	return f, nil
}

// All returns the fields of play sorted by platform name.
func (r *Registry) All() []*FieldOfPlay {
	out := make([]*FieldOfPlay, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.fops[name])
	}
	return out
}

func (r *Registry) Platforms() []string {
	return append([]string(nil), r.names...)
}

// Snapshot returns the latest snapshot of the named platform.
func (r *Registry) Snapshot(platform string) (*Snapshot, error) {
	f, err := r.Get(platform)
	if err != nil {
		return nil, err
	}
	return f.Snapshot(), nil
}

// Resolve maps a NATS subject token back to the platform it was built from.
func (r *Registry) Resolve(token string) (string, bool) {
	for _, name := range r.names {
		if name == token || fop.SubjectToken(name) == token {
			return name, true
		}
	}
	return "", false
}

// ForGroup returns the field of play currently bound to a group.
func (r *Registry) ForGroup(group string) (*FieldOfPlay, bool) {
	for _, name := range r.names {
		f := r.fops[name]
		if s := f.Snapshot(); s != nil && s.Group == group {
			return f, true
		}
	}
	return nil, false
}

// Submit enqueues a command on the named platform.
func (r *Registry) Submit(ctx context.Context, platform string, cmd Command) error {
	f, err := r.Get(platform)
	if err != nil {
		return err
	}
	return f.Submit(ctx, cmd)
}

// Do runs a command on the named platform and waits for its outcome.
func (r *Registry) Do(ctx context.Context, platform string, cmd Command) error {
	f, err := r.Get(platform)
	if err != nil {
		return err
	}
	return f.Do(ctx, cmd)
}

// Run starts every command loop and blocks until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, f := range r.All() {
		g.Go(func() error {
			return f.Run(ctx)
		})
	}
	return g.Wait()
}
