// Package forwarder pushes the state of a field of play to a remote public results
// service.
//
// Clock and decision events are posted as they happen. Everything else is coalesced:
// the scoreboard state is rebuilt from the latest snapshot once per debounce window
// and posted only when it changed or the window has passed since the last post. A
// window opens on the first pending event, so an unchanged state is skipped only when
// a resync posted it less than a window earlier. When the remote answers 412 it lost
// its configuration; the forwarder uploads the bundle once and re-sends the current
// state.
package forwarder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldofplay/go/internal/fop/bus"
	"github.com/mcdev12/fieldofplay/go/internal/fop/events"
	"github.com/mcdev12/fieldofplay/go/internal/fop/orchestrator"
	"github.com/mcdev12/fieldofplay/go/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Endpoint labels used in logs and metrics.
const (
	EndpointUpdate   = "update"
	EndpointTimer    = "timer"
	EndpointDecision = "decision"
	EndpointConfig   = "config"
)

const (
	DefaultDebounce       = time.Second
	DefaultMaxInFlight    = 4
	DefaultRequestTimeout = 5 * time.Second
)

// SnapshotSource is implemented by *orchestrator.FieldOfPlay.
type SnapshotSource interface {
	Snapshot() *orchestrator.Snapshot
}

// TranslationSource supplies the translation map sent with every update.
type TranslationSource interface {
	TranslationMap() map[string]string
}

type Config struct {
	UpdateURL      string
	TimerURL       string
	DecisionURL    string
	ConfigURL      string
	UpdateKey      string
	Debounce       time.Duration
	MaxInFlight    int64
	RequestTimeout time.Duration
	// ConfigDir is zipped and uploaded on resync. Empty sends a default bundle.
	ConfigDir string
}

// RemoteConfig derives the endpoint URLs from the base URL of the remote.
func RemoteConfig(remote, updateKey string) Config {
	base := strings.TrimRight(remote, "/")
	return Config{
		UpdateURL:   base + "/update",
		TimerURL:    base + "/timer",
		DecisionURL: base + "/decision",
		ConfigURL:   base + "/config",
		UpdateKey:   updateKey,
	}
}

type Params struct {
	Platform     string
	Source       SnapshotSource
	Bus          *bus.Bus
	Translations TranslationSource
	Client       *http.Client
	Clock        clockwork.Clock
	Metrics      metrics.Collector
	Config       Config
}

type Forwarder struct {
	platform     string
	source       SnapshotSource
	sub          *bus.Subscription
	translations TranslationSource
	client       *http.Client
	clock        clockwork.Clock
	metrics      metrics.Collector
	cfg          Config
	sem          *semaphore.Weighted

	ctx context.Context
	wg  sync.WaitGroup

	mu         sync.Mutex
	stopped    bool
	flushTimer clockwork.Timer
	sent       bool
	lastHash   uint64
	lastSent   time.Time

	resyncing atomic.Bool
}

// New subscribes to the platform's bus right away so no event is missed before Run.
func New(p Params) (*Forwarder, error) {
	if p.Source == nil || p.Bus == nil {
		return nil, errors.New("forwarder needs a snapshot source and a bus")
	}
	if p.Config.UpdateURL == "" || p.Config.TimerURL == "" || p.Config.DecisionURL == "" || p.Config.ConfigURL == "" {
		return nil, errors.New("forwarder needs the remote endpoints")
	}
	if p.Platform == "" {
		p.Platform = p.Bus.Platform()
	}
	if p.Client == nil {
		p.Client = &http.Client{}
	}
	if p.Clock == nil {
		p.Clock = clockwork.NewRealClock()
	}
	if p.Metrics == nil {
		p.Metrics = metrics.NoOpCollector{}
	}
	if p.Config.Debounce <= 0 {
		p.Config.Debounce = DefaultDebounce
	}
	if p.Config.MaxInFlight <= 0 {
		p.Config.MaxInFlight = DefaultMaxInFlight
	}
	if p.Config.RequestTimeout <= 0 {
		p.Config.RequestTimeout = DefaultRequestTimeout
	}

	return &Forwarder{
		platform:     p.Platform,
		source:       p.Source,
		sub:          p.Bus.Subscribe("forwarder", bus.DefaultBuffer),
		translations: p.Translations,
		client:       p.Client,
		clock:        p.Clock,
		metrics:      p.Metrics,
		cfg:          p.Config,
		sem:          semaphore.NewWeighted(p.Config.MaxInFlight),
		ctx:          context.Background(),
	}, nil
}

// Run forwards events until ctx is cancelled or the bus is closed. It waits for the
// requests in flight before returning.
func (f *Forwarder) Run(ctx context.Context) error {
	f.mu.Lock()
	f.ctx = ctx
	f.mu.Unlock()

	log.Info().
		Str("platform", f.platform).
		Str("update_url", f.cfg.UpdateURL).
		Msg("event forwarder started")

	defer func() {
		f.mu.Lock()
		f.stopped = true
		if f.flushTimer != nil {
			f.flushTimer.Stop()
			f.flushTimer = nil
		}
		f.mu.Unlock()
		f.sub.Close()
		f.wg.Wait()
		log.Info().Str("platform", f.platform).Msg("event forwarder stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-f.sub.C:
			if !ok {
				return nil
			}
			f.handle(ev)
		}
	}
}

func (f *Forwarder) handle(ev events.Event) {
	switch {
	case events.IsTimer(ev):
		if form, ok := TimerForm(f.cfg.UpdateKey, f.platform, ev); ok {
			f.post(EndpointTimer, f.cfg.TimerURL, form)
		}
	case events.IsDecision(ev):
		if form, ok := DecisionForm(f.cfg.UpdateKey, f.platform, ev); ok {
			f.post(EndpointDecision, f.cfg.DecisionURL, form)
		}
	}
	if changesScoreboard(ev) {
		f.scheduleUpdate()
	}
}

// changesScoreboard reports events after which the update form may differ. Clock
// events only move the clock, which has its own endpoint.
func changesScoreboard(ev events.Event) bool {
	switch ev.(type) {
	case events.StartTime, events.StopTime, events.SetTime, events.BreakPaused,
		events.Notification, events.JuryNotification:
		return false
	}
	return true
}

// scheduleUpdate opens a debounce window unless one is already pending.
func (f *Forwarder) scheduleUpdate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped || f.flushTimer != nil {
		return
	}
	f.flushTimer = f.clock.AfterFunc(f.cfg.Debounce, f.flush)
}

// flush closes the debounce window and posts the latest snapshot if it is worth sending.
func (f *Forwarder) flush() {
	f.mu.Lock()
	f.flushTimer = nil
	if f.stopped || f.ctx.Err() != nil {
		f.mu.Unlock()
		return
	}
	form, ok := f.updateForm()
	if !ok {
		f.mu.Unlock()
		return
	}
	h := hashForm(form)
	now := f.clock.Now()
	if f.sent && h == f.lastHash && now.Sub(f.lastSent) < f.cfg.Debounce {
		f.mu.Unlock()
		log.Debug().Str("platform", f.platform).Msg("scoreboard unchanged, skipping update")
		return
	}
	f.sent, f.lastHash, f.lastSent = true, h, now
	f.mu.Unlock()

	f.post(EndpointUpdate, f.cfg.UpdateURL, form)
}

// updateForm builds the update form from the latest snapshot. Callers hold f.mu.
func (f *Forwarder) updateForm() (url.Values, bool) {
	s := f.source.Snapshot()
	if s == nil {
		return nil, false
	}
	var translations map[string]string
	if f.translations != nil {
		translations = f.translations.TranslationMap()
	}
	form, err := UpdateForm(f.cfg.UpdateKey, s, translations)
	if err != nil {
		log.Error().Err(err).Str("platform", f.platform).Msg("failed to build update form")
		return nil, false
	}
	return form, true
}

// post sends a form on a free worker. With no worker free the form is dropped: a
// newer one will follow. Nothing is sent once Run has returned.
func (f *Forwarder) post(endpoint, target string, form url.Values) {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	if !f.sem.TryAcquire(1) {
		f.mu.Unlock()
		f.metrics.RecordPostDropped(f.platform, endpoint)
		log.Warn().
			Str("platform", f.platform).
			Str("endpoint", endpoint).
			Msg("all forwarder workers busy, dropping post")
		return
	}
	f.wg.Add(1)
	f.mu.Unlock()
	go func() {
		defer f.wg.Done()
		defer f.sem.Release(1)
		if status := f.send(endpoint, target, form); status == http.StatusPreconditionFailed {
			f.resync()
		}
	}()
}

// send posts a form and returns the status code, or 0 when the request failed.
func (f *Forwarder) send(endpoint, target string, form url.Values) int {
	body := strings.NewReader(form.Encode())
	return f.do(endpoint, target, "application/x-www-form-urlencoded", body)
}

func (f *Forwarder) do(endpoint, target, contentType string, body io.Reader) int {
	ctx, cancel := context.WithTimeout(f.runContext(), f.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		log.Error().Err(err).Str("endpoint", endpoint).Msg("failed to create request")
		return 0
	}
	req.Header.Set("Content-Type", contentType)

	start := f.clock.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.metrics.RecordPost(f.platform, endpoint, 0, f.clock.Since(start))
		log.Warn().
			Err(err).
			Str("platform", f.platform).
			Str("endpoint", endpoint).
			Msg("post to remote failed")
		return 0
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	f.metrics.RecordPost(f.platform, endpoint, resp.StatusCode, f.clock.Since(start))
	if resp.StatusCode != http.StatusOK {
		log.Warn().
			Str("platform", f.platform).
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("remote rejected post")
	}
	return resp.StatusCode
}

func (f *Forwarder) runContext() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctx
}

// resync uploads the configuration bundle and re-sends the current state once.
// Concurrent 412s share one resync, and a 412 on the re-sent state is not retried.
func (f *Forwarder) resync() {
	if !f.resyncing.CompareAndSwap(false, true) {
		return
	}
	defer f.resyncing.Store(false)

	f.metrics.RecordResync(f.platform)
	log.Info().Str("platform", f.platform).Msg("remote requires configuration, resyncing")

	if err := f.sendConfig(); err != nil {
		log.Error().Err(err).Str("platform", f.platform).Msg("failed to upload configuration")
		return
	}

	f.mu.Lock()
	form, ok := f.updateForm()
	if ok {
		f.sent, f.lastHash, f.lastSent = true, hashForm(form), f.clock.Now()
	}
	f.mu.Unlock()
	if !ok {
		return
	}
	if status := f.send(EndpointUpdate, f.cfg.UpdateURL, form); status == http.StatusPreconditionFailed {
		log.Error().Str("platform", f.platform).Msg("remote still rejects updates after resync")
	}
}

func (f *Forwarder) sendConfig() error {
	var translations map[string]string
	if f.translations != nil {
		translations = f.translations.TranslationMap()
	}
	bundle, err := Bundle(f.cfg.ConfigDir, translations)
	if err != nil {
		return fmt.Errorf("build bundle: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("updateKey", f.cfg.UpdateKey); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("local", "local.zip")
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(bundle); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	if err := mw.Close(); err != nil {
		return err
	}

	if status := f.do(EndpointConfig, f.cfg.ConfigURL, mw.FormDataContentType(), &body); status != http.StatusOK {
		return fmt.Errorf("config upload returned status %d", status)
	}
	return nil
}
