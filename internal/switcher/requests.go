package switcher

import "context"

// Source is a scene item as reported in scene listings and SwitchScenes.
type Source struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Render bool   `json:"render"`
}

// Scene is a named scene with its items.
type Scene struct {
	Name    string   `json:"name"`
	Sources []Source `json:"sources"`
}

// SceneList is the GetSceneList response.
type SceneList struct {
	CurrentScene string  `json:"current-scene"`
	Scenes       []Scene `json:"scenes"`
}

// Names returns the scene names in switcher order.
func (l *SceneList) Names() []string {
	names := make([]string, len(l.Scenes))
	for i, s := range l.Scenes {
		names[i] = s.Name
	}
	return names
}

// SpecialSources is the GetSpecialSources response. Fields are empty when
// the device is not configured.
type SpecialSources struct {
	Desktop1 string `json:"desktop-1"`
	Desktop2 string `json:"desktop-2"`
	Mic1     string `json:"mic-1"`
	Mic2     string `json:"mic-2"`
	Mic3     string `json:"mic-3"`
}

// Volume is the GetVolume response.
type Volume struct {
	Name   string  `json:"name"`
	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted"`
}

// GetSceneList lists all scenes of the active collection.
func (c *Client) GetSceneList(ctx context.Context) (*SceneList, error) {
	var resp SceneList
	if err := c.Call(ctx, "GetSceneList", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCurrentScene returns the program scene and its items.
func (c *Client) GetCurrentScene(ctx context.Context) (*Scene, error) {
	var resp Scene
	if err := c.Call(ctx, "GetCurrentScene", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSpecialSources returns the global audio device sources.
func (c *Client) GetSpecialSources(ctx context.Context) (*SpecialSources, error) {
	var resp SpecialSources
	if err := c.Call(ctx, "GetSpecialSources", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetVolume returns the volume (as a multiplier) and mute state of a source.
func (c *Client) GetVolume(ctx context.Context, source string) (*Volume, error) {
	var resp Volume
	err := c.Call(ctx, "GetVolume", map[string]interface{}{"source": source}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetVolume sets the volume multiplier of a source.
func (c *Client) SetVolume(ctx context.Context, source string, volume float64) error {
	return c.Call(ctx, "SetVolume", map[string]interface{}{
		"source": source,
		"volume": volume,
	}, nil)
}

// SetMute mutes or unmutes a source.
func (c *Client) SetMute(ctx context.Context, source string, mute bool) error {
	return c.Call(ctx, "SetMute", map[string]interface{}{
		"source": source,
		"mute":   mute,
	}, nil)
}

// SetCurrentScene switches the program scene.
func (c *Client) SetCurrentScene(ctx context.Context, scene string) error {
	return c.Call(ctx, "SetCurrentScene", map[string]interface{}{"scene-name": scene}, nil)
}

// SetSceneItemVisible shows or hides an item in the current scene.
func (c *Client) SetSceneItemVisible(ctx context.Context, item string, visible bool) error {
	return c.Call(ctx, "SetSceneItemProperties", map[string]interface{}{
		"item":    item,
		"visible": visible,
	}, nil)
}

// StartRecording starts recording.
func (c *Client) StartRecording(ctx context.Context) error {
	return c.Call(ctx, "StartRecording", nil, nil)
}

// StopRecording stops recording.
func (c *Client) StopRecording(ctx context.Context) error {
	return c.Call(ctx, "StopRecording", nil, nil)
}

// StartStreaming starts streaming with the configured service.
func (c *Client) StartStreaming(ctx context.Context) error {
	return c.Call(ctx, "StartStreaming", nil, nil)
}

// StopStreaming stops streaming.
func (c *Client) StopStreaming(ctx context.Context) error {
	return c.Call(ctx, "StopStreaming", nil, nil)
}

// SetHeartbeat enables or disables the periodic Heartbeat event.
func (c *Client) SetHeartbeat(ctx context.Context, enable bool) error {
	return c.Call(ctx, "SetHeartbeat", map[string]interface{}{"enable": enable}, nil)
}
