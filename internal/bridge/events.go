package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/dunkelstern/obs-touchosc/internal/domain"
	"github.com/dunkelstern/obs-touchosc/internal/switcher"
	pkglog "github.com/dunkelstern/obs-touchosc/pkg/log"
	"github.com/dunkelstern/obs-touchosc/pkg/pubsub"
)

var eventTypes = []string{
	switcher.EventSwitchScenes,
	switcher.EventSourceMuteStateChanged,
	switcher.EventSourceVolumeChanged,
	switcher.EventSourceRenamed,
	switcher.EventScenesChanged,
	switcher.EventSceneCollectionChanged,
	switcher.EventHeartbeat,
}

func (e *Engine) handleEvent(ctx context.Context, ev switcher.Event) {
	l := pkglog.Ctx(ctx)

	var err error
	switch ev.UpdateType {
	case switcher.EventSwitchScenes:
		err = e.onSwitchScenes(ctx, ev)
	case switcher.EventSourceMuteStateChanged:
		err = e.onMuteChanged(ev)
	case switcher.EventSourceVolumeChanged:
		err = e.onVolumeChanged(ev)
	case switcher.EventSourceRenamed:
		err = e.discoverAll(ctx)
	case switcher.EventScenesChanged:
		err = e.discoverScenes(ctx)
	case switcher.EventSceneCollectionChanged:
		err = e.discoverAll(ctx)
	case switcher.EventHeartbeat:
		err = e.onHeartbeat(ev)
	default:
		return
	}

	if err != nil {
		l.Warn().Err(err).Str(pkglog.FieldUpdateType, ev.UpdateType).Msg("failed to handle switcher event")
	}
}

func (e *Engine) onSwitchScenes(ctx context.Context, ev switcher.Event) error {
	var body switcher.SwitchScenes
	if err := ev.Decode(&body); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}

	e.currentScene = body.SceneName
	slot := e.highlightScene(body.SceneName)
	e.status.Publish(pubsub.EventSceneSwitched, pubsub.SceneSwitchedPayload{
		Scene: body.SceneName,
		Slot:  slot,
	})

	if body.Sources != nil {
		e.syncVisibility(body.Sources)
		return nil
	}
	return e.queryVisibility(ctx)
}

// highlightScene lights the slot of name and returns it, or 0 when the scene
// has no slot.
func (e *Engine) highlightScene(name string) int {
	i := e.scenes.Index(name)
	if i < 0 {
		return 0
	}
	e.out.SendFloat(domain.SceneSelectAddress(i+1), 1.0)
	return i + 1
}

func (e *Engine) onMuteChanged(ev switcher.Event) error {
	var body switcher.SourceMuteStateChanged
	if err := ev.Decode(&body); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}

	if r, ok := e.sources.RoleOf(body.SourceName); ok {
		e.sendMute(r, body.Muted)
	}
	return nil
}

func (e *Engine) onVolumeChanged(ev switcher.Event) error {
	var body switcher.SourceVolumeChanged
	if err := ev.Decode(&body); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}

	r, ok := e.sources.RoleOf(body.SourceName)
	if !ok {
		return nil
	}
	e.levels.Update(r, body.Volume)
	e.out.SendFloat(domain.FaderAddress(r), float32(body.Volume))
	if body.Muted != nil {
		e.sendMute(r, *body.Muted)
	}
	return nil
}

func (e *Engine) onHeartbeat(ev switcher.Event) error {
	var body switcher.Heartbeat
	if err := ev.Decode(&body); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}

	next := domain.Status{
		Streaming:  body.Streaming,
		Recording:  body.Recording,
		StreamTime: seconds(body.TotalStreamTime),
		RecordTime: seconds(body.TotalRecordTime),
	}

	e.out.SendFloat(domain.AddrStream, domain.BoolValue(next.Streaming))
	e.out.SendFloat(domain.AddrRecord, domain.BoolValue(next.Recording))
	e.out.SendString(domain.AddrStreamTime, domain.FormatDuration(next.StreamTime))
	e.out.SendString(domain.AddrRecordTime, domain.FormatDuration(next.RecordTime))

	if e.haveOutputs {
		e.notifyOutput(e.outputs.Streaming, next.Streaming, next.StreamTime,
			pubsub.EventStreamingStarted, pubsub.EventStreamingStopped)
		e.notifyOutput(e.outputs.Recording, next.Recording, next.RecordTime,
			pubsub.EventRecordingStarted, pubsub.EventRecordingStopped)
	}
	e.outputs = next
	e.haveOutputs = true
	return nil
}

func (e *Engine) notifyOutput(was, is bool, d *time.Duration, started, stopped string) {
	if was == is {
		return
	}
	eventType := stopped
	if is {
		eventType = started
	}
	e.status.Publish(eventType, pubsub.OutputPayload{
		Active:   is,
		Duration: domain.FormatDuration(d),
	})
}

// sendMute reports a mute state. The panel button is lit while the source
// is audible.
func (e *Engine) sendMute(r domain.Role, muted bool) {
	e.out.SendFloat(domain.ToggleAddress(r), domain.BoolValue(!muted))
}

func seconds(v *int) *time.Duration {
	if v == nil {
		return nil
	}
	d := time.Duration(*v) * time.Second
	return &d
}
