package bridge

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dunkelstern/obs-touchosc/internal/domain"
	"github.com/dunkelstern/obs-touchosc/internal/osc"
	pkglog "github.com/dunkelstern/obs-touchosc/pkg/log"
)

// routes is the static inbound table. Every handler runs on the engine
// goroutine and returns the error of its switcher call, if any.
func (e *Engine) routes() []osc.Route {
	return []osc.Route{
		{Pattern: domain.AddrScenePattern, Handler: e.inLoop("scene", e.selectScene)},
		{Pattern: domain.AddrMic, Handler: e.inLoop("mic", e.toggleMute(domain.RoleMic))},
		{Pattern: domain.AddrDesktop, Handler: e.inLoop("desktop", e.toggleMute(domain.RoleDesktop))},
		{Pattern: domain.AddrCamera, Handler: e.inLoop("camera", e.toggleCamera)},
		{Pattern: domain.AddrFaderPattern, Handler: e.inLoop("fader", e.setLevel)},
		{Pattern: domain.AddrRecord, Handler: e.inLoop("record", e.toggleOutput(e.sw.StartRecording, e.sw.StopRecording))},
		{Pattern: domain.AddrStream, Handler: e.inLoop("stream", e.toggleOutput(e.sw.StartStreaming, e.sw.StopStreaming))},
	}
}

type translateFunc func(ctx context.Context, msg osc.Message) error

// inLoop adapts a control to the router: it skips text payloads and runs
// the control on the engine goroutine.
func (e *Engine) inLoop(name string, fn translateFunc) osc.HandlerFunc {
	return func(ctx context.Context, msg osc.Message) error {
		if msg.IsText {
			l := pkglog.Component("bridge")
			l.Debug().Str(pkglog.FieldAddress, msg.Address).Msg("ignoring text payload")
			return nil
		}
		return e.do(ctx, name, func(ctx context.Context) error {
			return fn(ctx, msg)
		})
	}
}

func (e *Engine) echo(msg osc.Message) {
	e.out.SendFloat(msg.Address, float32(msg.Value))
}

// selectScene switches to the scene in the pressed slot. Releases (value
// below 1.0) are ignored.
func (e *Engine) selectScene(ctx context.Context, msg osc.Message) error {
	if msg.Value < 1.0 {
		return nil
	}

	slot, err := strconv.Atoi(msg.Wildcard)
	if err != nil {
		return nil
	}
	name, ok := e.scenes.At(slot - 1)
	if !ok {
		return nil
	}

	e.echo(msg)
	l := pkglog.Ctx(ctx)
	l.Debug().Str(pkglog.FieldScene, name).Int("slot", slot).Msg("switching scene")
	if err := e.sw.SetCurrentScene(ctx, name); err != nil {
		return fmt.Errorf("failed to switch to scene %q: %w", name, err)
	}
	return nil
}

// toggleMute handles a mute button. The panel shows "on" for an audible
// source, so values below 1.0 mute.
func (e *Engine) toggleMute(r domain.Role) translateFunc {
	return func(ctx context.Context, msg osc.Message) error {
		e.echo(msg)

		source, ok := e.sources.Source(r)
		if !ok {
			l := pkglog.Ctx(ctx)
			l.Debug().Str(pkglog.FieldRole, r.String()).Msg("no source bound, ignoring mute toggle")
			return nil
		}
		if err := e.sw.SetMute(ctx, source, msg.Value < 1.0); err != nil {
			return fmt.Errorf("failed to set mute on %q: %w", source, err)
		}
		return nil
	}
}

func (e *Engine) toggleCamera(ctx context.Context, msg osc.Message) error {
	e.echo(msg)

	visible := msg.Value > 0
	var errs []error
	for _, item := range domain.CameraItems {
		if err := e.sw.SetSceneItemVisible(ctx, item, visible); err != nil {
			errs = append(errs, fmt.Errorf("failed to set visibility of %q: %w", item, err))
		}
	}
	return errors.Join(errs...)
}

// setLevel buffers a fader value for the next flush.
func (e *Engine) setLevel(_ context.Context, msg osc.Message) error {
	index, err := strconv.Atoi(msg.Wildcard)
	if err != nil {
		return nil
	}
	r, ok := domain.RoleForFader(index)
	if !ok {
		return nil
	}
	e.levels.Set(r, msg.Value)
	return nil
}

func (e *Engine) toggleOutput(start, stop func(context.Context) error) translateFunc {
	return func(ctx context.Context, msg osc.Message) error {
		e.echo(msg)

		call := stop
		if msg.Value > 0 {
			call = start
		}
		if err := call(ctx); err != nil {
			return fmt.Errorf("failed to toggle %s: %w", msg.Address, err)
		}
		return nil
	}
}
