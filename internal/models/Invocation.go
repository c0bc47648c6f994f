package models

// Command names accepted on the command surface.
const (
	CmdBind              = "bind"
	CmdStatus            = "status"
	CmdPanic             = "panic"
	CmdSuspend           = "suspend"
	CmdResume            = "resume"
	CmdHardMode          = "hard-mode"
	CmdUnlock            = "unlock"
	CmdSetProtectedUser  = "set-protected-user"
	CmdControl           = "control"
	CmdHome              = "home"
	CmdSearch            = "search"
	CmdPlayResult        = "play-result"
	CmdStop              = "stop"
	CmdForceRadioRestore = "force-radio-restore"

	CmdRequestRadioBack = "request-radio-back"
	CmdRequestExternal  = "request-external"
	CmdAcknowledge      = "acknowledge-reminder"
)

// Invocation is an authenticated command delivered by the host dispatcher.
type Invocation struct {
	Command   string `json:"command"`
	Args      string `json:"args,omitempty"`
	CallerID  string `json:"caller_id"`
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
}

// PlayerInvocation is a command aimed at the external audio player, reported
// by the host before the player acts on it.
type PlayerInvocation struct {
	Command   string `json:"command"`
	Content   string `json:"content,omitempty"`
	Query     string `json:"query,omitempty"`
	CallerID  string `json:"caller_id"`
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
}

type Reply struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}
