package bridge

import (
	"perimeterd/internal/models"
	"strings"

	json "github.com/goccy/go-json"
)

var metadataKeys = []string{"title", "author", "uri", "identifier", "source", "url"}

// NewProbe reads the flavour-specific player state. Anything it does not
// recognise yields an empty probe.
func NewProbe(flavor string, raw json.RawMessage) models.TrackProbe {
	if len(raw) == 0 {
		return models.EmptyProbe{}
	}
	var state map[string]any
	if err := json.Unmarshal(raw, &state); err != nil {
		return models.EmptyProbe{}
	}
	switch flavor {
	case FlavorVoice:
		return voiceClientProbe(state)
	default:
		return lavalinkProbe(state)
	}
}

type probe struct {
	text    string
	playing bool
}

func (p probe) CurrentTrackText() string { return p.text }
func (p probe) IsPlaying() bool          { return p.playing }

// lavalinkProbe: {"current": {...}, "paused": bool}. A loaded, unpaused
// track counts as playing.
func lavalinkProbe(state map[string]any) models.TrackProbe {
	track := firstObject(state, "current", "current_track", "track")
	if track == nil {
		return models.EmptyProbe{}
	}
	paused, _ := state["paused"].(bool)
	return probe{text: trackText(track), playing: !paused}
}

// voiceClientProbe: {"now_playing": {...}, "is_playing": bool}.
func voiceClientProbe(state map[string]any) models.TrackProbe {
	playing, _ := state["is_playing"].(bool)
	var text string
	if track := firstObject(state, "current", "current_track", "track", "now_playing", "playing"); track != nil {
		text = trackText(track)
	}
	return probe{text: text, playing: playing}
}

func firstObject(state map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if obj, ok := state[k].(map[string]any); ok && len(obj) > 0 {
			return obj
		}
	}
	return nil
}

func trackText(track map[string]any) string {
	parts := make([]string, 0, len(metadataKeys))
	for _, k := range metadataKeys {
		if v, ok := track[k].(string); ok && strings.TrimSpace(v) != "" {
			parts = append(parts, strings.TrimSpace(v))
		}
	}
	return strings.Join(parts, " ")
}
