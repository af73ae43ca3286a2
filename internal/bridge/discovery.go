package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/dunkelstern/obs-touchosc/internal/domain"
	"github.com/dunkelstern/obs-touchosc/internal/switcher"
	pkglog "github.com/dunkelstern/obs-touchosc/pkg/log"
	"github.com/dunkelstern/obs-touchosc/pkg/pubsub"
)

// discoverAll reloads sources, scenes and levels. Each step runs even when
// an earlier one failed. The level resync also reports mute state, so the
// scene step skips its own.
func (e *Engine) discoverAll(ctx context.Context) error {
	return errors.Join(
		e.discoverSources(ctx),
		e.loadScenes(ctx),
		e.resyncLevels(ctx),
	)
}

// discoverSources binds the mic and desktop roles to the switcher's global
// audio devices. On failure the previous binding is kept.
func (e *Engine) discoverSources(ctx context.Context) error {
	special, err := e.sw.GetSpecialSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to get special sources: %w", err)
	}

	sources := domain.AudioSources{
		domain.RoleMic:     special.Mic1,
		domain.RoleDesktop: special.Desktop1,
	}

	missing := sources.Missing()
	if len(missing) > 0 && e.cfg.RequireAudioSources {
		return fmt.Errorf("%w: %v", ErrMissingAudioSource, missing)
	}

	l := pkglog.Ctx(ctx)
	for _, r := range missing {
		l.Warn().Str(pkglog.FieldRole, r.String()).Msg("no switcher source for role, audio control disabled")
	}

	e.sources = sources
	return nil
}

// discoverScenes reloads the scene list and resyncs mute state.
func (e *Engine) discoverScenes(ctx context.Context) error {
	if err := e.loadScenes(ctx); err != nil {
		return err
	}
	return e.resyncMute(ctx)
}

// loadScenes reloads the scene list, publishes the panel labels and reports
// the current scene's slot and camera state.
func (e *Engine) loadScenes(ctx context.Context) error {
	list, err := e.sw.GetSceneList(ctx)
	if err != nil {
		return fmt.Errorf("failed to get scene list: %w", err)
	}

	e.scenes = domain.NewSceneList(list.Names())
	e.currentScene = list.CurrentScene

	labels := e.scenes.Labels()
	for slot, label := range labels {
		e.out.SendString(domain.SceneLabelAddress(slot), label)
	}
	e.status.Publish(pubsub.EventScenesUpdated, pubsub.ScenesUpdatedPayload{
		Scenes: append([]string{}, e.scenes...),
	})

	e.highlightScene(list.CurrentScene)
	for _, s := range list.Scenes {
		if s.Name == list.CurrentScene {
			e.syncVisibility(s.Sources)
			break
		}
	}
	return nil
}

// resyncMute reports the mute state of every bound role.
func (e *Engine) resyncMute(ctx context.Context) error {
	var errs []error
	for _, r := range domain.Roles {
		source, ok := e.sources.Source(r)
		if !ok {
			continue
		}
		vol, err := e.sw.GetVolume(ctx, source)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to get volume of %q: %w", source, err))
			continue
		}
		e.sendMute(r, vol.Muted)
	}
	return errors.Join(errs...)
}

// resyncLevels reads the volume of every bound role into the level cache
// and reports fader and mute state.
func (e *Engine) resyncLevels(ctx context.Context) error {
	var errs []error
	for _, r := range domain.Roles {
		source, ok := e.sources.Source(r)
		if !ok {
			continue
		}
		vol, err := e.sw.GetVolume(ctx, source)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to get volume of %q: %w", source, err))
			continue
		}
		e.levels.Update(r, vol.Volume)
		e.out.SendFloat(domain.FaderAddress(r), float32(vol.Volume))
		e.sendMute(r, vol.Muted)
	}
	return errors.Join(errs...)
}

// syncVisibility reports the camera button from a scene's items. The button
// is lit when any camera item is rendered.
func (e *Engine) syncVisibility(items []switcher.Source) {
	visible := false
	for _, item := range items {
		if isCameraItem(item.Name) && item.Render {
			visible = true
			break
		}
	}
	e.out.SendFloat(domain.AddrCamera, domain.BoolValue(visible))
}

func (e *Engine) queryVisibility(ctx context.Context) error {
	scene, err := e.sw.GetCurrentScene(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current scene: %w", err)
	}
	e.syncVisibility(scene.Sources)
	return nil
}

func isCameraItem(name string) bool {
	for _, c := range domain.CameraItems {
		if c == name {
			return true
		}
	}
	return false
}

// flush writes buffered fader levels, mic first. Nothing is sent when no
// fader moved since the last flush.
func (e *Engine) flush(ctx context.Context) error {
	levels, ok := e.levels.Take()
	if !ok {
		return nil
	}

	var errs []error
	for _, r := range domain.Roles {
		source, ok := e.sources.Source(r)
		if !ok {
			continue
		}
		if err := e.sw.SetVolume(ctx, source, levels[r]); err != nil {
			errs = append(errs, fmt.Errorf("failed to set volume of %q: %w", source, err))
			continue
		}
		l := pkglog.Ctx(ctx)
		l.Debug().Str(pkglog.FieldSource, source).Float64(pkglog.FieldValue, levels[r]).Msg("level flushed")
	}
	return errors.Join(errs...)
}
