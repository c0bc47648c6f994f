package models

// TrackProbe is a best-effort view of what the external player is doing.
// Implementations return empty values when data is missing, never errors.
type TrackProbe interface {
	CurrentTrackText() string
	IsPlaying() bool
}

// EmptyProbe reports nothing playing.
type EmptyProbe struct{}

func (EmptyProbe) CurrentTrackText() string { return "" }
func (EmptyProbe) IsPlaying() bool          { return false }
