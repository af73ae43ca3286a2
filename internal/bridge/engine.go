// Package bridge mirrors switcher state onto the control panel and turns
// panel input into switcher commands. All state is owned by one goroutine,
// Engine.Run; every other context hands work to it through channels.
package bridge

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dunkelstern/obs-touchosc/internal/domain"
	"github.com/dunkelstern/obs-touchosc/internal/osc"
	"github.com/dunkelstern/obs-touchosc/internal/switcher"
	pkglog "github.com/dunkelstern/obs-touchosc/pkg/log"
)

// Errors
var (
	ErrMissingAudioSource = errors.New("audio source not configured on switcher")
	ErrStopped            = errors.New("bridge engine stopped")
	ErrBusy               = errors.New("bridge engine busy")
)

// Switcher is the part of the switcher client the engine drives.
type Switcher interface {
	GetSceneList(ctx context.Context) (*switcher.SceneList, error)
	GetCurrentScene(ctx context.Context) (*switcher.Scene, error)
	GetSpecialSources(ctx context.Context) (*switcher.SpecialSources, error)
	GetVolume(ctx context.Context, source string) (*switcher.Volume, error)
	SetVolume(ctx context.Context, source string, volume float64) error
	SetMute(ctx context.Context, source string, mute bool) error
	SetCurrentScene(ctx context.Context, scene string) error
	SetSceneItemVisible(ctx context.Context, item string, visible bool) error
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) error
	StartStreaming(ctx context.Context) error
	StopStreaming(ctx context.Context) error
	SetHeartbeat(ctx context.Context, enable bool) error
	Register(updateType string, h switcher.EventHandler)
	Unregister(updateType string)
	Connected() bool
}

// Sender delivers messages to the panel. Calls must not block.
type Sender interface {
	SendFloat(address string, value float32)
	SendString(address, value string)
}

// StatusPublisher receives bridge state changes for the event bus.
type StatusPublisher interface {
	Publish(eventType string, payload interface{})
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) {}

// Config holds engine settings.
type Config struct {
	Name                string        `mapstructure:"name"`
	FlushInterval       time.Duration `mapstructure:"flush_interval"`
	RequireAudioSources bool          `mapstructure:"require_audio_sources"`
	EventBuffer         int           `mapstructure:"event_buffer"`
}

// job is a unit of work executed on the engine goroutine. result is nil for
// fire-and-forget jobs.
type job struct {
	ctx    context.Context
	name   string
	fn     func(ctx context.Context) error
	result chan error
}

// Engine is the bridge core.
type Engine struct {
	cfg    Config
	sw     Switcher
	out    Sender
	status StatusPublisher
	router *osc.Router

	jobs   chan job
	events chan switcher.Event
	done   chan struct{}
	snap   atomic.Pointer[domain.Snapshot]

	// Owned by the Run goroutine once started.
	scenes       domain.SceneList
	currentScene string
	sources      domain.AudioSources
	levels       domain.LevelCache
	outputs      domain.Status
	haveOutputs  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithStatusPublisher forwards state changes to p.
func WithStatusPublisher(p StatusPublisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.status = p
		}
	}
}

// NewEngine creates an engine and its inbound routing table.
func NewEngine(cfg Config, sw Switcher, out Sender, opts ...Option) (*Engine, error) {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 200 * time.Millisecond
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 256
	}

	e := &Engine{
		cfg:    cfg,
		sw:     sw,
		out:    out,
		status: nopPublisher{},
		jobs:   make(chan job, 64),
		events: make(chan switcher.Event, cfg.EventBuffer),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	router, err := osc.NewRouter(e.routes()...)
	if err != nil {
		return nil, err
	}
	e.router = router
	e.publishSnapshot()
	return e, nil
}

// Router returns the inbound routing table; it is the OSC server's
// dispatcher.
func (e *Engine) Router() *osc.Router {
	return e.router
}

// Start registers for switcher events and runs the initial discovery. It
// must be called before Run. Discovery failures are logged; only a missing
// audio source under the strict policy is returned.
func (e *Engine) Start(ctx context.Context) error {
	l := pkglog.Ctx(ctx)

	for _, t := range eventTypes {
		e.sw.Register(t, e.enqueueEvent)
	}

	if err := e.discoverSources(ctx); err != nil {
		if errors.Is(err, ErrMissingAudioSource) {
			e.Stop()
			return err
		}
		l.Warn().Err(err).Msg("source discovery failed")
	}
	if err := e.loadScenes(ctx); err != nil {
		l.Warn().Err(err).Msg("scene discovery failed")
	}
	if err := e.resyncLevels(ctx); err != nil {
		l.Warn().Err(err).Msg("level resync failed")
	}
	if err := e.sw.SetHeartbeat(ctx, true); err != nil {
		l.Warn().Err(err).Msg("failed to enable heartbeat")
	}

	e.publishSnapshot()
	l.Info().Int("scenes", len(e.scenes)).Msg("bridge started")
	return nil
}

// Stop unregisters the switcher event handlers.
func (e *Engine) Stop() {
	for _, t := range eventTypes {
		e.sw.Unregister(t)
	}
}

// Run is the engine loop. It returns when ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)

	l := pkglog.Ctx(ctx)
	ticker := time.NewTicker(e.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case j := <-e.jobs:
			err := j.fn(j.ctx)
			e.publishSnapshot()
			if j.result != nil {
				j.result <- err
			} else if err != nil {
				l.Error().Err(err).Str("job", j.name).Msg("bridge job failed")
			}

		case ev := <-e.events:
			e.handleEvent(ctx, ev)
			e.publishSnapshot()

		case <-ticker.C:
			if err := e.flush(ctx); err != nil {
				l.Error().Err(err).Msg("level flush failed")
			}
			e.publishSnapshot()
		}
	}
}

// Done is closed when Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Snapshot returns the latest published state.
func (e *Engine) Snapshot() domain.Snapshot {
	return *e.snap.Load()
}

// Control routes a message as if it had arrived from the panel.
func (e *Engine) Control(ctx context.Context, msg osc.Message) error {
	return e.router.Route(ctx, msg)
}

// Flush writes pending fader levels now instead of waiting for the tick.
func (e *Engine) Flush(ctx context.Context) error {
	return e.do(ctx, "flush", e.flush)
}

// RequestResync queues a full rediscovery without waiting for it.
func (e *Engine) RequestResync() error {
	j := job{ctx: context.Background(), name: "resync", fn: e.discoverAll}
	select {
	case <-e.done:
		return ErrStopped
	default:
	}

	select {
	case e.jobs <- j:
		return nil
	default:
		return ErrBusy
	}
}

// do runs fn on the engine goroutine and waits for its result.
func (e *Engine) do(ctx context.Context, name string, fn func(context.Context) error) error {
	j := job{ctx: ctx, name: name, fn: fn, result: make(chan error, 1)}

	select {
	case e.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrStopped
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrStopped
	}
}

// enqueueEvent runs on the switcher read goroutine and must never block.
func (e *Engine) enqueueEvent(ev switcher.Event) {
	select {
	case e.events <- ev:
	default:
		l := pkglog.Component("bridge")
		l.Warn().Str(pkglog.FieldUpdateType, ev.UpdateType).Msg("event queue full, dropping event")
	}
}

func (e *Engine) publishSnapshot() {
	labels := e.scenes.Labels()

	s := &domain.Snapshot{
		Connected:    e.sw.Connected(),
		CurrentScene: e.currentScene,
		Scenes:       append([]string{}, e.scenes...),
		Labels:       labels[:],
		Sources:      make(map[string]string, domain.FaderCount),
		Levels:       make(map[string]float64, domain.FaderCount),
		FlushPending: e.levels.Dirty(),
		Status:       e.outputs.View(),
		UpdatedAt:    time.Now(),
	}
	for _, r := range domain.Roles {
		s.Sources[r.String()] = e.sources[r]
		s.Levels[r.String()] = e.levels.Get(r)
	}
	e.snap.Store(s)
}
