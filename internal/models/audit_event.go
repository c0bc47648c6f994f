package models

import "time"

type AuditEvent struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason"`
	Detail    string    `json:"detail,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	GuildID   string    `json:"guild_id,omitempty"`
	ChannelID string    `json:"channel_id,omitempty"`
	At        time.Time `json:"at"`
}

type PostureEvent struct {
	Transition string       `json:"transition"`
	State      PostureState `json:"state"`
	Reason     string       `json:"reason,omitempty"`
	ActorID    string       `json:"actor_id,omitempty"`
	At         time.Time    `json:"at"`
}
