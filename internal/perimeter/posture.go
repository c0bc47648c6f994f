package perimeter

import (
	"context"
	"fmt"
	"perimeterd/internal/models"
	"perimeterd/internal/providers"
	"perimeterd/internal/store"
	"strings"
	"sync"
	"time"
)

type UnlockMode string

const (
	UnlockHome   UnlockMode = "home"
	UnlockResume UnlockMode = "resume"
	UnlockRadio  UnlockMode = "radio"
)

func ParseUnlockMode(raw string) (UnlockMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "home":
		return UnlockHome, nil
	case "resume", "full":
		return UnlockResume, nil
	case "radio":
		return UnlockRadio, nil
	}
	return "", fmt.Errorf("%w: unlock mode %q", ErrInvalidArgument, raw)
}

// Edge is the transition a perimeter violation took.
type Edge string

const (
	EdgeNone    Edge = "none"
	EdgePanic   Edge = "panic"
	EdgeSuspend Edge = "suspend"
)

// Transition names used for metrics and posture events.
const (
	TransitionPanic     = "panic"
	TransitionAutoPanic = "auto_panic"
	TransitionSuspend   = "suspend"
	TransitionResume    = "resume"
	TransitionUnlock    = "unlock"
	TransitionHardMode  = "hard_mode"
)

type UnlockResult struct {
	AlreadyNormal bool          `json:"already_normal"`
	Mode          UnlockMode    `json:"mode"`
	Homed         bool          `json:"homed"`
	Playback      *ResumeResult `json:"playback,omitempty"`
	Message       string        `json:"message"`
}

type PostureInterface interface {
	Current() models.SafetyPosture
	Panic(ctx context.Context, reason, actorID string) bool
	AutoPanic(ctx context.Context, reason string) bool
	Suspend(ctx context.Context, reason, actorID string) bool
	Unsuspend(ctx context.Context, actorID string) bool
	Unlock(ctx context.Context, mode UnlockMode, actorID string) UnlockResult
	SetHardMode(ctx context.Context, on bool, actorID string)
	Violation(ctx context.Context, reason string) Edge
}

// Posture owns the panic and suspend flags. Flag writes always land before
// any side effect runs; side-effect failures are logged and swallowed.
type Posture struct {
	// mu serializes panic entry so concurrent triggers collapse to one.
	mu       sync.Mutex
	store    store.StoreInterface
	player   Player
	snapshot SnapshotInterface
	auditor  AuditorInterface
	notifier NotifierInterface
	graces   *Graces
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface
	events   providers.EventPublisherInterface
	now      func() time.Time
}

func (p *Posture) Current() models.SafetyPosture {
	return p.store.Posture()
}

func (p *Posture) Panic(ctx context.Context, reason, actorID string) bool {
	if reason == "" {
		reason = "Manual panic engaged"
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store.Posture().PanicLocked {
		p.logger.Infof(providers.TypePosture, "Panic requested by %s but already panicked", actorID)
		return false
	}
	p.enterPanic(ctx, reason, actorID, true)
	return true
}

// AutoPanic is a no-op when auto-panic is disabled or a panic is already in
// place. The first reason to acquire the lock is the one recorded.
func (p *Posture) AutoPanic(ctx context.Context, reason string) bool {
	if !p.store.Posture().AutopanicEnabled {
		p.logger.Warnf(providers.TypePosture, "Auto-panic disabled, ignoring: %s", reason)
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store.Posture().PanicLocked {
		return false
	}
	p.enterPanic(ctx, reason, "", false)
	return true
}

func (p *Posture) enterPanic(ctx context.Context, reason, actorID string, manual bool) {
	binding := p.store.Binding()
	p.snapshot.Capture(ctx, binding.GuildID)

	err := p.store.Update(func(s *models.State) {
		s.Posture.PanicLocked = true
		s.Posture.PanicReason = reason
		s.Media.Clear()
	})
	if err != nil {
		p.logger.Errorf(providers.TypeStore, "Panic flags committed in memory only: %v", err)
	}

	p.haltPlayer(ctx, binding.GuildID, true)

	auditReason, transition, title := ReasonAutoPanic, TransitionAutoPanic, "Panic Engaged"
	if manual {
		auditReason, transition, title = ReasonManualPanic, TransitionPanic, "Panic Engaged (Manual)"
	}
	p.auditor.Record(ctx, models.AuditEvent{
		Reason:    auditReason,
		Detail:    reason,
		ActorID:   actorID,
		GuildID:   binding.GuildID,
		ChannelID: binding.ControlChannelID,
	})
	p.notifier.NotifyControl(ctx, models.Message{
		Title: title,
		Body: reason + "\n\nSafe recovery:\n" +
			"1) `unlock` (home only)\n" +
			"2) optionally `unlock radio` or `unlock resume`",
		Tone: models.ToneDanger,
	})
	p.logger.Warnf(providers.TypePosture, "Panic engaged: %s", reason)
	p.record(ctx, transition, reason, actorID)
}

// haltPlayer stops playback and optionally disconnects. Errors never
// escape: the lockout is already committed.
func (p *Posture) haltPlayer(ctx context.Context, guildID string, disconnect bool) {
	if err := p.player.Stop(ctx, guildID); err != nil {
		p.logger.Warnf(providers.TypePosture, "Stop during transition failed: %v", err)
	}
	if disconnect {
		if err := p.player.Disconnect(ctx, guildID); err != nil {
			p.logger.Warnf(providers.TypePosture, "Disconnect during transition failed: %v", err)
		}
	}
	p.notifier.SetActivity(ctx, "")
}

func (p *Posture) Suspend(ctx context.Context, reason, actorID string) bool {
	if reason == "" {
		reason = "Manual suspend"
	}
	return p.suspend(ctx, reason, actorID, "Suspended")
}

func (p *Posture) suspend(ctx context.Context, reason, actorID, title string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	posture := p.store.Posture()
	if posture.Suspended || posture.PanicLocked {
		return false
	}

	err := p.store.Update(func(s *models.State) {
		s.Posture.Suspended = true
		s.Posture.SuspendReason = reason
		s.Media.Clear()
	})
	if err != nil {
		p.logger.Errorf(providers.TypeStore, "Suspend flags committed in memory only: %v", err)
	}

	p.haltPlayer(ctx, p.store.Binding().GuildID, true)
	p.notifier.NotifyControl(ctx, models.Message{
		Title: title,
		Body:  reason + "\n\nUse `resume` (in the control channel, in the locked voice channel) to continue.",
		Tone:  models.ToneWarning,
	})
	p.logger.Infof(providers.TypePosture, "Suspended: %s", reason)
	p.record(ctx, TransitionSuspend, reason, actorID)
	return true
}

func (p *Posture) Unsuspend(ctx context.Context, actorID string) bool {
	if !p.store.Posture().Suspended {
		return false
	}
	err := p.store.UpdatePosture(func(s *models.SafetyPosture) {
		s.Suspended = false
		s.SuspendReason = ""
	})
	if err != nil {
		p.logger.Errorf(providers.TypeStore, "Resume flags committed in memory only: %v", err)
	}
	p.logger.Infof(providers.TypePosture, "Suspend cleared by %s", actorID)
	p.record(ctx, TransitionResume, "", actorID)
	return true
}

// Unlock clears both flags, summons the player home and optionally replays
// media. The panic snapshot is cleared afterwards whatever the outcome.
func (p *Posture) Unlock(ctx context.Context, mode UnlockMode, actorID string) UnlockResult {
	result := UnlockResult{Mode: mode}
	defer func() {
		if !p.store.Snapshot().Empty() {
			if err := p.store.ClearSnapshot(); err != nil {
				p.logger.Errorf(providers.TypeStore, "Failed to clear panic snapshot: %v", err)
			}
		}
	}()

	if p.store.Posture().State() == models.PostureNormal {
		result.AlreadyNormal = true
		result.Message = "Already normal."
		return result
	}

	err := p.store.UpdatePosture(func(s *models.SafetyPosture) {
		s.PanicLocked = false
		s.PanicReason = ""
		s.Suspended = false
		s.SuspendReason = ""
	})
	if err != nil {
		p.logger.Errorf(providers.TypeStore, "Unlock flags committed in memory only: %v", err)
	}
	p.record(ctx, TransitionUnlock, string(mode), actorID)

	binding := p.store.Binding()
	p.graces.Open()
	if err := p.player.Summon(ctx, binding.GuildID, binding.VoiceChannelID); err != nil {
		p.logger.Warnf(providers.TypePosture, "Summon after unlock failed: %v", err)
		result.Message = "Unlocked, but summon failed. Try `home`."
		p.announceUnlock(ctx, actorID, "OFF", result.Message)
		return result
	}
	result.Homed = true

	switch mode {
	case UnlockRadio:
		restore, err := p.snapshot.ForceRadioRestore(ctx, binding.GuildID)
		result.Playback = &restore
		if err != nil {
			result.Message = fmt.Sprintf("Unlock complete, but radio restore failed: %v", err)
		} else {
			result.Message = "Unlocked, homed and switched to radio: " + restore.Target
		}
		p.announceUnlock(ctx, actorID, "RADIO", result.Message)
	case UnlockResume:
		resume := p.snapshot.Resume(ctx, binding.GuildID)
		result.Playback = &resume
		if resume.OK {
			result.Message = "Unlocked and homed, " + resume.Summary()
		} else {
			result.Message = "Unlock complete, but nothing resumed: " + resume.Summary()
		}
		p.announceUnlock(ctx, actorID, "RESUME", result.Message)
	default:
		result.Message = "Unlocked and homed. Playback is off; use `unlock radio` or `unlock resume`."
		p.announceUnlock(ctx, actorID, "OFF", result.Message)
	}
	return result
}

func (p *Posture) announceUnlock(ctx context.Context, actorID, playback, outcome string) {
	p.notifier.NotifyControl(ctx, models.Message{
		Title: "Panic Cleared",
		Body:  fmt.Sprintf("Panic lock cleared by <@%s>.\nPlayback: **%s**\nResult: %s", actorID, playback, outcome),
		Tone:  models.ToneSuccess,
	})
}

func (p *Posture) SetHardMode(ctx context.Context, on bool, actorID string) {
	if err := p.store.UpdatePosture(func(s *models.SafetyPosture) { s.HardMode = on }); err != nil {
		p.logger.Errorf(providers.TypeStore, "Hard mode change committed in memory only: %v", err)
	}
	p.logger.Infof(providers.TypePosture, "Hard mode set to %t by %s", on, actorID)
	p.record(ctx, TransitionHardMode, fmt.Sprintf("%t", on), actorID)
}

// Violation routes a perimeter breach: hard mode panics, soft mode
// suspends and tells the control channel how to continue.
func (p *Posture) Violation(ctx context.Context, reason string) Edge {
	posture := p.store.Posture()
	if posture.PanicLocked {
		return EdgeNone
	}
	if posture.HardMode {
		if p.AutoPanic(ctx, reason) {
			return EdgePanic
		}
		return EdgeNone
	}
	if !p.suspend(ctx, reason, "", "Suspended (Soft)") {
		return EdgeNone
	}
	return EdgeSuspend
}

func (p *Posture) record(ctx context.Context, transition, reason, actorID string) {
	p.metrics.IncPostureTransitions(transition)
	event := models.PostureEvent{
		Transition: transition,
		State:      p.store.Posture().State(),
		Reason:     reason,
		ActorID:    actorID,
		At:         p.now(),
	}
	if err := p.events.Publish(ctx, providers.TopicPosture, event); err != nil {
		p.logger.Warnf(providers.TypePosture, "Failed to publish %s event: %v", transition, err)
	}
}

func NewPosture(
	st store.StoreInterface,
	player Player,
	snapshot SnapshotInterface,
	auditor AuditorInterface,
	notifier NotifierInterface,
	graces *Graces,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
	events providers.EventPublisherInterface,
) PostureInterface {
	return &Posture{
		store:    st,
		player:   player,
		snapshot: snapshot,
		auditor:  auditor,
		notifier: notifier,
		graces:   graces,
		logger:   logger,
		metrics:  metrics,
		events:   events,
		now:      time.Now,
	}
}
