package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/dunkelstern/obs-touchosc/internal/switcher"
)

// trace is the shared call log of the fake switcher and sender, so tests can
// assert ordering across both.
type trace struct {
	mu    sync.Mutex
	lines []string
}

func (t *trace) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
}

func (t *trace) all() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...)
}

func (t *trace) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = nil
}

type sent struct {
	Address string
	Value   interface{}
}

type fakeSender struct {
	trace *trace
	mu    sync.Mutex
	msgs  []sent
}

func (f *fakeSender) SendFloat(address string, value float32) {
	f.mu.Lock()
	f.msgs = append(f.msgs, sent{address, value})
	f.mu.Unlock()
	f.trace.add(fmt.Sprintf("send %s %v", address, value))
}

func (f *fakeSender) SendString(address, value string) {
	f.mu.Lock()
	f.msgs = append(f.msgs, sent{address, value})
	f.mu.Unlock()
	f.trace.add(fmt.Sprintf("send %s %q", address, value))
}

func (f *fakeSender) all() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.msgs...)
}

func (f *fakeSender) to(address string) []sent {
	var out []sent
	for _, m := range f.all() {
		if m.Address == address {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = nil
}

type fakeSwitcher struct {
	trace *trace

	mu       sync.Mutex
	scenes   switcher.SceneList
	current  switcher.Scene
	special  switcher.SpecialSources
	volumes  map[string]switcher.Volume
	failures map[string]error
	handlers map[string]switcher.EventHandler
}

func newFakeSwitcher(tr *trace) *fakeSwitcher {
	return &fakeSwitcher{
		trace: tr,
		special: switcher.SpecialSources{
			Mic1:     "Mic/Aux",
			Desktop1: "Desktop Audio",
		},
		volumes: map[string]switcher.Volume{
			"Mic/Aux":       {Name: "Mic/Aux", Volume: 0.5},
			"Desktop Audio": {Name: "Desktop Audio", Volume: 0.25, Muted: true},
		},
		failures: make(map[string]error),
		handlers: make(map[string]switcher.EventHandler),
	}
}

func (f *fakeSwitcher) fail(request string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[request] = err
}

func (f *fakeSwitcher) call(request string, args ...interface{}) error {
	line := request
	for _, a := range args {
		line += fmt.Sprintf(" %v", a)
	}
	f.trace.add(line)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures[request]
}

func (f *fakeSwitcher) GetSceneList(context.Context) (*switcher.SceneList, error) {
	if err := f.call("GetSceneList"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.scenes
	return &list, nil
}

func (f *fakeSwitcher) GetCurrentScene(context.Context) (*switcher.Scene, error) {
	if err := f.call("GetCurrentScene"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	scene := f.current
	return &scene, nil
}

func (f *fakeSwitcher) GetSpecialSources(context.Context) (*switcher.SpecialSources, error) {
	if err := f.call("GetSpecialSources"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	special := f.special
	return &special, nil
}

func (f *fakeSwitcher) GetVolume(_ context.Context, source string) (*switcher.Volume, error) {
	if err := f.call("GetVolume", source); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	vol := f.volumes[source]
	return &vol, nil
}

func (f *fakeSwitcher) SetVolume(_ context.Context, source string, volume float64) error {
	return f.call("SetVolume", source, volume)
}

func (f *fakeSwitcher) SetMute(_ context.Context, source string, mute bool) error {
	return f.call("SetMute", source, mute)
}

func (f *fakeSwitcher) SetCurrentScene(_ context.Context, scene string) error {
	return f.call("SetCurrentScene", scene)
}

func (f *fakeSwitcher) SetSceneItemVisible(_ context.Context, item string, visible bool) error {
	return f.call("SetSceneItemVisible", item, visible)
}

func (f *fakeSwitcher) StartRecording(context.Context) error { return f.call("StartRecording") }
func (f *fakeSwitcher) StopRecording(context.Context) error  { return f.call("StopRecording") }
func (f *fakeSwitcher) StartStreaming(context.Context) error { return f.call("StartStreaming") }
func (f *fakeSwitcher) StopStreaming(context.Context) error  { return f.call("StopStreaming") }

func (f *fakeSwitcher) SetHeartbeat(_ context.Context, enable bool) error {
	return f.call("SetHeartbeat", enable)
}

func (f *fakeSwitcher) Register(updateType string, h switcher.EventHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[updateType] = h
}

func (f *fakeSwitcher) Unregister(updateType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, updateType)
}

func (f *fakeSwitcher) Connected() bool { return true }

func (f *fakeSwitcher) registered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var types []string
	for t := range f.handlers {
		types = append(types, t)
	}
	return types
}

// emit delivers an event the way the client read loop does.
func (f *fakeSwitcher) emit(ev switcher.Event) bool {
	f.mu.Lock()
	h, ok := f.handlers[ev.UpdateType]
	f.mu.Unlock()
	if ok {
		h(ev)
	}
	return ok
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

type published struct {
	Type    string
	Payload interface{}
}

func (f *fakePublisher) Publish(eventType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{eventType, payload})
}

func (f *fakePublisher) all() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.events...)
}
