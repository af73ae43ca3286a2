package domain

import "fmt"

// OSC addresses shared with the TouchOSC layout. Patterns use a single "*"
// segment for the slot or fader index.
const (
	AddrScenePattern = "/scene/1/*"
	AddrSceneSelect  = "/scene/1/%d"
	AddrSceneLabel   = "/scene_label_%d"
	AddrMic          = "/mic"
	AddrDesktop      = "/audio"
	AddrCamera       = "/cam"
	AddrFaderPattern = "/volume/*"
	AddrFader        = "/volume/%d"
	AddrRecord       = "/rec"
	AddrStream       = "/stream"
	AddrStreamTime   = "/stream_time"
	AddrRecordTime   = "/rec_time"
)

// Panel limits.
const (
	SceneSlots = 8
	FaderCount = 2
)

// Camera items toggled together by the camera button. The button reads as on
// when any of them is rendered in the current scene.
var CameraItems = []string{"Webcam", "Overlay: Webcam"}

// SceneSelectAddress returns the select address for a 1-based slot.
func SceneSelectAddress(slot int) string {
	return fmt.Sprintf(AddrSceneSelect, slot)
}

// SceneLabelAddress returns the label address for a 0-based slot.
func SceneLabelAddress(slot int) string {
	return fmt.Sprintf(AddrSceneLabel, slot)
}

// FaderAddress returns the level address for a role.
func FaderAddress(r Role) string {
	return fmt.Sprintf(AddrFader, int(r)+1)
}

// ToggleAddress returns the mute toggle address for a role.
func ToggleAddress(r Role) string {
	if r == RoleDesktop {
		return AddrDesktop
	}
	return AddrMic
}
