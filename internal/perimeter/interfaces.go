package perimeter

import (
	"context"
	"perimeterd/internal/models"
)

// Player is the external voice-channel audio player. All calls are best
// effort and may fail; callers never retry on their own.
type Player interface {
	Summon(ctx context.Context, guildID, voiceChannelID string) error
	Play(ctx context.Context, guildID, query string) error
	Stop(ctx context.Context, guildID string) error
	Disconnect(ctx context.Context, guildID string) error
	// VoiceChannel returns "" when the player is not connected.
	VoiceChannel(ctx context.Context, guildID string) (string, error)
	// Probe never fails; unknown data comes back empty.
	Probe(ctx context.Context, guildID string) models.TrackProbe
}

// Voice resolves which voice channel a user is connected to ("" if none).
type Voice interface {
	UserChannel(ctx context.Context, guildID, userID string) (string, error)
}

type Messenger interface {
	SendDirect(ctx context.Context, userID string, msg models.Message) error
	SendChannel(ctx context.Context, channelID string, msg models.Message) error
	SetActivity(ctx context.Context, label string) error
}

type StationDirectory interface {
	Search(ctx context.Context, query string) ([]models.Station, error)
}
