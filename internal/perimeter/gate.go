package perimeter

import (
	"context"
	"fmt"
	"perimeterd/internal/models"
	"perimeterd/internal/providers"
	"perimeterd/internal/store"
	"perimeterd/internal/structures"
)

var (
	protectedCommands = commandSet(models.CmdRequestRadioBack, models.CmdRequestExternal, models.CmdAcknowledge)
	prebindCommands   = commandSet(models.CmdBind, models.CmdStatus)
	// Recovery commands work from any channel.
	controlBypass = commandSet(models.CmdStatus, models.CmdUnlock, models.CmdPanic, models.CmdSuspend,
		models.CmdResume, models.CmdHardMode, models.CmdControl)
	panicAllowed = commandSet(models.CmdStatus, models.CmdUnlock, models.CmdPanic, models.CmdControl,
		models.CmdHardMode)
	presenceCommands = commandSet(models.CmdHome, models.CmdSearch, models.CmdPlayResult, models.CmdStop,
		models.CmdPanic, models.CmdSuspend, models.CmdResume, models.CmdUnlock, models.CmdControl,
		models.CmdForceRadioRestore)
)

func commandSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func inSet(set map[string]struct{}, name string) bool {
	_, ok := set[name]
	return ok
}

func IsProtectedCommand(name string) bool { return inSet(protectedCommands, name) }

// NeedsPresence reports whether a command requires the operator to be in
// the locked voice channel.
func NeedsPresence(name string) bool { return inSet(presenceCommands, name) }

type Decision struct {
	Allowed bool
	Err     error
	Audited bool
}

func allow() Decision { return Decision{Allowed: true} }

func deny(err error) Decision { return Decision{Err: err} }

type GateInterface interface {
	Check(ctx context.Context, inv models.Invocation) Decision
	RequireOperatorPresence(ctx context.Context, inv models.Invocation) error
	PerimeterSatisfied(ctx context.Context, inv models.PlayerInvocation) bool
	IsOperator(userID string) bool
}

type Gate struct {
	conf      *structures.Config
	store     store.StoreInterface
	voice     Voice
	auditor   AuditorInterface
	logger    providers.Logger
	operators map[string]struct{}
}

func (g *Gate) IsOperator(userID string) bool {
	return userID != "" && inSet(g.operators, userID)
}

// Check decides whether inv may run at all. Rules are applied in order:
// protected-user carve-out, operator identity, binding, guild, control
// channel, panic lock.
func (g *Gate) Check(ctx context.Context, inv models.Invocation) Decision {
	binding := g.store.Binding()

	if IsProtectedCommand(inv.Command) {
		if binding.GuildID != "" && inv.GuildID != binding.GuildID {
			return deny(ErrWrongGuild)
		}
		protected := g.store.Protected().UserID
		if protected == "" || inv.CallerID != protected {
			return deny(ErrNotProtectedUser)
		}
		return allow()
	}

	if !g.IsOperator(inv.CallerID) {
		return deny(ErrNotOperator)
	}

	if !binding.Bound {
		if inSet(prebindCommands, inv.Command) {
			return allow()
		}
		return deny(ErrNotBound)
	}

	if binding.GuildID != "" && inv.GuildID != binding.GuildID {
		g.audit(ctx, ReasonWrongGuild, fmt.Sprintf("command %s from guild %s", inv.Command, inv.GuildID), inv)
		return Decision{Err: ErrWrongGuild, Audited: true}
	}

	if binding.ControlChannelID != "" && inv.ChannelID != binding.ControlChannelID && !inSet(controlBypass, inv.Command) {
		g.audit(ctx, ReasonWrongChannel, fmt.Sprintf("command %s from channel %s", inv.Command, inv.ChannelID), inv)
		return Decision{Err: ErrWrongChannel, Audited: true}
	}

	if g.store.Posture().PanicLocked && !inSet(panicAllowed, inv.Command) {
		return deny(ErrPanicLocked)
	}

	return allow()
}

// RequireOperatorPresence fails unless the caller is connected to the
// locked voice channel. Being in the wrong channel is audited exactly once.
func (g *Gate) RequireOperatorPresence(ctx context.Context, inv models.Invocation) error {
	binding := g.store.Binding()
	if binding.VoiceChannelID == "" {
		return ErrVoiceLockUnset
	}

	channelID, err := g.voice.UserChannel(ctx, binding.GuildID, inv.CallerID)
	if err != nil {
		g.logger.Warnf(providers.TypeSecurity, "Voice state for %s unavailable: %v", inv.CallerID, err)
		return fmt.Errorf("%w: %v", ErrNotInVoice, err)
	}
	if channelID == "" {
		return ErrNotInVoice
	}
	if channelID != binding.VoiceChannelID {
		g.audit(ctx, ReasonWrongVoice, fmt.Sprintf("operator in voice channel %s", channelID), inv)
		return ErrWrongVoiceChannel
	}
	return nil
}

// PerimeterSatisfied is the silent version of the full check used for
// player commands: operator, guild, control channel and voice presence.
func (g *Gate) PerimeterSatisfied(ctx context.Context, inv models.PlayerInvocation) bool {
	binding := g.store.Binding()
	if !binding.Bound || binding.VoiceChannelID == "" {
		return false
	}
	if binding.GuildID != "" && inv.GuildID != binding.GuildID {
		return false
	}
	if !g.IsOperator(inv.CallerID) {
		return false
	}
	if binding.ControlChannelID != "" && inv.ChannelID != binding.ControlChannelID {
		return false
	}
	channelID, err := g.voice.UserChannel(ctx, binding.GuildID, inv.CallerID)
	if err != nil {
		return false
	}
	return channelID == binding.VoiceChannelID
}

func (g *Gate) audit(ctx context.Context, reason, detail string, inv models.Invocation) {
	g.auditor.Record(ctx, models.AuditEvent{
		Reason:    reason,
		Detail:    detail,
		ActorID:   inv.CallerID,
		GuildID:   inv.GuildID,
		ChannelID: inv.ChannelID,
	})
}

func NewGate(
	conf *structures.Config,
	st store.StoreInterface,
	voice Voice,
	auditor AuditorInterface,
	logger providers.Logger,
) GateInterface {
	return &Gate{
		conf:      conf,
		store:     st,
		voice:     voice,
		auditor:   auditor,
		logger:    logger,
		operators: commandSet(conf.Perimeter.OperatorIDs...),
	}
}
