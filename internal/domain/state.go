package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is one of the two audio roles a fader controls.
type Role int

const (
	RoleMic Role = iota
	RoleDesktop
)

// Roles lists the audio roles in fader order.
var Roles = [FaderCount]Role{RoleMic, RoleDesktop}

func (r Role) String() string {
	switch r {
	case RoleMic:
		return "mic"
	case RoleDesktop:
		return "desktop"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// RoleForFader maps a 1-based fader index to its role.
func RoleForFader(index int) (Role, bool) {
	if index < 1 || index > FaderCount {
		return 0, false
	}
	return Role(index - 1), true
}

// AudioSources binds each role to a switcher source name. An empty name
// means the role is unset and role-specific work is skipped.
type AudioSources [FaderCount]string

// Source returns the source bound to r.
func (a AudioSources) Source(r Role) (string, bool) {
	if r < 0 || int(r) >= FaderCount || a[r] == "" {
		return "", false
	}
	return a[r], true
}

// RoleOf returns the role a source is bound to.
func (a AudioSources) RoleOf(source string) (Role, bool) {
	if source == "" {
		return 0, false
	}
	for _, r := range Roles {
		if a[r] == source {
			return r, true
		}
	}
	return 0, false
}

// Missing returns the roles without a source.
func (a AudioSources) Missing() []Role {
	var missing []Role
	for _, r := range Roles {
		if a[r] == "" {
			missing = append(missing, r)
		}
	}
	return missing
}

// OverlayPrefix marks scenes used as overlays; they never get a panel slot.
const OverlayPrefix = "overlay:"

// SceneList is the ordered list of selectable scenes.
type SceneList []string

// NewSceneList keeps the switcher order and drops overlay scenes.
func NewSceneList(names []string) SceneList {
	list := make(SceneList, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(strings.ToLower(name), OverlayPrefix) {
			continue
		}
		list = append(list, name)
	}
	return list
}

// Index returns the 0-based position of name, or -1.
func (l SceneList) Index(name string) int {
	for i, n := range l {
		if n == name {
			return i
		}
	}
	return -1
}

// At returns the scene at a 0-based index.
func (l SceneList) At(i int) (string, bool) {
	if i < 0 || i >= len(l) {
		return "", false
	}
	return l[i], true
}

// Labels returns the text of every panel slot; unused slots are empty.
func (l SceneList) Labels() [SceneSlots]string {
	var labels [SceneSlots]string
	copy(labels[:], l)
	return labels
}

// LevelCache buffers fader levels between flushes. The dirty flag is shared
// by both faders.
type LevelCache struct {
	levels [FaderCount]float64
	dirty  bool
}

// Set stores a level coming from the panel and marks the cache dirty.
func (c *LevelCache) Set(r Role, v float64) {
	c.levels[r] = v
	c.dirty = true
}

// Update stores a level reported by the switcher without marking it dirty.
func (c *LevelCache) Update(r Role, v float64) {
	c.levels[r] = v
}

// Get returns the cached level of r.
func (c *LevelCache) Get(r Role) float64 {
	return c.levels[r]
}

// Dirty reports whether a flush is pending.
func (c *LevelCache) Dirty() bool {
	return c.dirty
}

// Take clears the dirty flag and returns the levels to write. ok is false
// when nothing changed since the last call.
func (c *LevelCache) Take() (levels [FaderCount]float64, ok bool) {
	if !c.dirty {
		return levels, false
	}
	c.dirty = false
	return c.levels, true
}

// Status is the output state reported by the switcher heartbeat. Durations
// are nil when the heartbeat omitted them.
type Status struct {
	Streaming  bool
	Recording  bool
	StreamTime *time.Duration
	RecordTime *time.Duration
}

// DefaultDuration is shown when the switcher reports no duration.
const DefaultDuration = "0:00:00"

// FormatDuration renders d as H:MM:SS.
func FormatDuration(d *time.Duration) string {
	if d == nil || *d < 0 {
		return DefaultDuration
	}
	secs := int64(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

// BoolValue encodes an on/off indicator for the panel.
func BoolValue(on bool) float32 {
	if on {
		return 1.0
	}
	return 0.0
}
