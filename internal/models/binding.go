package models

// PerimeterBinding is the single registered location playback is allowed in.
type PerimeterBinding struct {
	Bound             bool   `json:"bound"`
	GuildID           string `json:"guild_id,omitempty"`
	ControlChannelID  string `json:"control_channel_id,omitempty"`
	VoiceChannelID    string `json:"voice_channel_id,omitempty"`
	AuditChannelID    string `json:"audit_channel_id,omitempty"`
	FallbackChannelID string `json:"fallback_channel_id,omitempty"`
	OperatorID        string `json:"operator_id,omitempty"`
}
