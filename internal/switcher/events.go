package switcher

// Update types the bridge listens to.
const (
	EventSwitchScenes           = "SwitchScenes"
	EventSourceMuteStateChanged = "SourceMuteStateChanged"
	EventSourceVolumeChanged    = "SourceVolumeChanged"
	EventSourceRenamed          = "SourceRenamed"
	EventScenesChanged          = "ScenesChanged"
	EventSceneCollectionChanged = "SceneCollectionChanged"
	EventHeartbeat              = "Heartbeat"
)

// SwitchScenes is sent when the program scene changes. Sources is nil when
// the server did not include the item list.
type SwitchScenes struct {
	SceneName string   `json:"scene-name"`
	Sources   []Source `json:"sources"`
}

// SourceMuteStateChanged is sent when a source is muted or unmuted.
type SourceMuteStateChanged struct {
	SourceName string `json:"sourceName"`
	Muted      bool   `json:"muted"`
}

// SourceVolumeChanged is sent when a source volume changes. Muted is set
// only when the server reports the mute state alongside.
type SourceVolumeChanged struct {
	SourceName string  `json:"sourceName"`
	Volume     float64 `json:"volume"`
	Muted      *bool   `json:"muted,omitempty"`
}

// SourceRenamed is sent when a source or scene is renamed.
type SourceRenamed struct {
	PreviousName string `json:"previousName"`
	NewName      string `json:"newName"`
	SourceType   string `json:"sourceType"`
}

// Heartbeat is the periodic status event. Durations are in seconds and only
// present while the matching output is active.
type Heartbeat struct {
	Pulse           bool `json:"pulse"`
	Streaming       bool `json:"streaming"`
	Recording       bool `json:"recording"`
	TotalStreamTime *int `json:"total-stream-time,omitempty"`
	TotalRecordTime *int `json:"total-record-time,omitempty"`
}
