package domain

import "time"

// Snapshot is a point-in-time copy of the bridge state for readers outside
// the engine loop.
type Snapshot struct {
	Connected    bool               `json:"connected"`
	CurrentScene string             `json:"current_scene"`
	Scenes       []string           `json:"scenes"`
	Labels       []string           `json:"labels"`
	Sources      map[string]string  `json:"sources"`
	Levels       map[string]float64 `json:"levels"`
	FlushPending bool               `json:"flush_pending"`
	Status       StatusView         `json:"status"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// StatusView is the JSON form of Status.
type StatusView struct {
	Streaming  bool   `json:"streaming"`
	Recording  bool   `json:"recording"`
	StreamTime string `json:"stream_time"`
	RecordTime string `json:"record_time"`
}

// View converts s for display.
func (s Status) View() StatusView {
	return StatusView{
		Streaming:  s.Streaming,
		Recording:  s.Recording,
		StreamTime: FormatDuration(s.StreamTime),
		RecordTime: FormatDuration(s.RecordTime),
	}
}
