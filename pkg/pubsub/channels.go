package pubsub

import "fmt"

// Channel naming conventions for bridge traffic. The middle segment is the
// bridge instance name so several studios can share one bus.
const (
	// Bridge -> bus: switcher state changes.
	ChannelStatus = "obs:bridge:%s:status"

	// Bus -> bridge: remote control commands.
	ChannelControl = "obs:bridge:%s:control"
)

// Status event types.
const (
	EventSceneSwitched    = "scene_switched"
	EventScenesUpdated    = "scenes_updated"
	EventRecordingStarted = "recording_started"
	EventRecordingStopped = "recording_stopped"
	EventStreamingStarted = "streaming_started"
	EventStreamingStopped = "streaming_stopped"
)

// Control event types.
const (
	EventControl = "control"
)

// StatusChannel returns the channel name for a bridge's status events.
func StatusChannel(bridge string) string {
	return fmt.Sprintf(ChannelStatus, bridge)
}

// ControlChannel returns the channel name for a bridge's control events.
func ControlChannel(bridge string) string {
	return fmt.Sprintf(ChannelControl, bridge)
}

// SceneSwitchedPayload is published when the program scene changes.
type SceneSwitchedPayload struct {
	Scene string `json:"scene"`
	Slot  int    `json:"slot,omitempty"` // 1-based panel slot, 0 when not on the panel
}

// ScenesUpdatedPayload is published after scene discovery.
type ScenesUpdatedPayload struct {
	Scenes []string `json:"scenes"`
}

// OutputPayload is published when recording or streaming starts or stops.
type OutputPayload struct {
	Active   bool   `json:"active"`
	Duration string `json:"duration,omitempty"`
}

// ControlPayload carries one control message for the bridge, in the same
// address namespace the panel uses.
type ControlPayload struct {
	Address string  `json:"address"`
	Value   float64 `json:"value"`
}
