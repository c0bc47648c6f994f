package perimeter

import (
	"context"
	"fmt"
	"perimeterd/internal/models"
	"perimeterd/internal/providers"
	"perimeterd/internal/store"
	"perimeterd/internal/structures"
	"sync"
	"time"
)

const (
	DefaultReassureTick  = 10 * time.Second
	MinInChannelInterval = 30 * time.Second
	MinElsewhereInterval = 60 * time.Second
	MinSleepRepeat       = 10 * time.Minute
)

const maxAckNote = 500

// SleepSession tracks one continuous stay of the protected user in the
// locked voice channel. It is process local and lost on restart.
type SleepSession struct {
	Since        time.Time `json:"since,omitempty"`
	LastReminder time.Time `json:"last_reminder,omitempty"`
	Count        int       `json:"count"`
	FinalSent    bool      `json:"final_sent"`
}

// SleepLevel maps the number of reminders sent so far to gentle (1), firm
// (2) or final (3).
func SleepLevel(count int) int {
	switch {
	case count <= 1:
		return 1
	case count == 2:
		return 2
	default:
		return 3
	}
}

type ReassuranceInterface interface {
	Tick(ctx context.Context)
	Run(ctx context.Context) error
	Acknowledge(ctx context.Context, note string)
	NotifyExternalStarted(ctx context.Context) bool
	NotifyExternalStopped(ctx context.Context) bool
	Session() SleepSession
	InQuietHours() bool
}

type Reassurance struct {
	mu            sync.Mutex
	session       SleepSession
	lastInChannel time.Time
	lastElsewhere time.Time

	conf     *structures.Config
	store    store.StoreInterface
	voice    Voice
	player   Player
	notifier NotifierInterface
	logger   providers.Logger
	loc      *time.Location
	now      func() time.Time
}

func (r *Reassurance) Run(ctx context.Context) error {
	tick := r.conf.Reassurance.Tick
	if tick <= 0 {
		tick = DefaultReassureTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	r.logger.Infof(providers.TypeReassure, "Reassurance loop started, tick %s", tick)

	for {
		select {
		case <-ctx.Done():
			r.logger.Infof(providers.TypeReassure, "Reassurance loop stopped")
			return nil
		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(ctx, tick)
			r.Tick(tickCtx)
			cancel()
		}
	}
}

type tickPlan struct {
	sleepLevel int
	sleepMins  int
	sendFinal  bool
	reassure   bool
	inChannel  bool
}

func (r *Reassurance) Tick(ctx context.Context) {
	binding := r.store.Binding()
	if !binding.Bound || binding.GuildID == "" || binding.VoiceChannelID == "" {
		return
	}
	if r.store.Posture().State() != models.PostureNormal {
		return
	}
	userID := r.store.Protected().UserID
	if userID == "" {
		return
	}

	botChannel, err := r.player.VoiceChannel(ctx, binding.GuildID)
	if err != nil {
		r.logger.Debugf(providers.TypeReassure, "Player voice state unavailable: %v", err)
		return
	}
	if botChannel != binding.VoiceChannelID {
		r.resetSession()
		return
	}

	userChannel, err := r.voice.UserChannel(ctx, binding.GuildID, userID)
	if err != nil {
		r.logger.Debugf(providers.TypeReassure, "Voice state for %s unavailable: %v", userID, err)
		return
	}
	inChannel := userChannel == binding.VoiceChannelID

	mediaActive := r.store.Media().Active()
	if !mediaActive && r.conf.Reassurance.Enabled {
		mediaActive = r.player.Probe(ctx, binding.GuildID).IsPlaying()
	}

	plan := r.plan(r.now(), inChannel, mediaActive)

	if plan.sleepLevel > 0 {
		r.notifier.SendToProtected(ctx, r.sleepMessage(plan.sleepLevel, plan.sleepMins))
		if plan.sendFinal {
			r.notifier.SendToProtected(ctx, models.Message{
				Title:  "…last thing.",
				Body:   "i'm staying.\nyou can rest.\n\nyou don't have to keep watch.\ni've got it.",
				Footer: "one-time message",
				Tone:   models.ToneCalm,
			})
		}
	}
	if plan.reassure {
		r.notifier.SendToProtected(ctx, r.reassuranceMessage(plan.inChannel))
	}
}

// plan advances the process-local timers and decides what to send. It
// holds the lock only while touching timer state.
func (r *Reassurance) plan(now time.Time, inChannel, mediaActive bool) tickPlan {
	r.mu.Lock()
	defer r.mu.Unlock()
	plan := tickPlan{inChannel: inChannel}

	if !inChannel {
		r.session = SleepSession{}
	} else if r.session.Since.IsZero() {
		r.session = SleepSession{Since: now}
	}

	sleep := r.conf.Sleep
	if inChannel && sleep.Enabled && sleep.After > 0 && now.Sub(r.session.Since) >= sleep.After {
		repeat := sleep.Repeat
		if repeat < MinSleepRepeat {
			repeat = MinSleepRepeat
		}
		if r.session.LastReminder.IsZero() || now.Sub(r.session.LastReminder) >= repeat {
			r.session.LastReminder = now
			r.session.Count++
			plan.sleepLevel = SleepLevel(r.session.Count)
			plan.sleepMins = int(now.Sub(r.session.Since) / time.Minute)
			if plan.sleepLevel >= 3 && !r.session.FinalSent {
				r.session.FinalSent = true
				plan.sendFinal = true
			}
		}
	}

	if !r.conf.Reassurance.Enabled || !mediaActive {
		return plan
	}
	if inChannel {
		interval := maxDuration(r.conf.Reassurance.InChannelInterval, MinInChannelInterval)
		if r.lastInChannel.IsZero() || now.Sub(r.lastInChannel) >= interval {
			r.lastInChannel = now
			plan.reassure = true
		}
		return plan
	}
	interval := maxDuration(r.conf.Reassurance.ElsewhereInterval, MinElsewhereInterval)
	if r.lastElsewhere.IsZero() || now.Sub(r.lastElsewhere) >= interval {
		r.lastElsewhere = now
		plan.reassure = true
	}
	return plan
}

func (r *Reassurance) resetSession() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = SleepSession{}
}

// Acknowledge cools reminders down immediately: the count and final flag
// reset and, when the user is still in the channel, the session restarts.
func (r *Reassurance) Acknowledge(ctx context.Context, note string) {
	now := r.now()
	r.mu.Lock()
	r.session.LastReminder = now
	r.session.Count = 0
	r.session.FinalSent = false
	if !r.session.Since.IsZero() {
		r.session.Since = now
	}
	r.mu.Unlock()

	if len(note) > maxAckNote {
		note = note[:maxAckNote]
	}
	err := r.store.UpdateProtected(func(p *models.ProtectedUser) {
		p.LastAckNote = note
		p.LastAckAt = now
	})
	if err != nil {
		r.logger.Errorf(providers.TypeStore, "Failed to persist acknowledgement: %v", err)
	}
	r.logger.Infof(providers.TypeReassure, "Reminder acknowledged by protected user")

	body := "The protected user acknowledged the sleep reminder."
	if note != "" {
		body += "\n**Note:** " + note
	}
	r.notifier.NotifyControl(ctx, models.Message{Title: "Reminder Acknowledged", Body: body, Tone: models.ToneCalm})
}

func (r *Reassurance) NotifyExternalStarted(ctx context.Context) bool {
	if !r.conf.Reassurance.NotifyExternalStart {
		return false
	}
	line := "radio state saved."
	if last := r.store.RestoreMemory().LastStationName; last != "" {
		line = "last radio saved: **" + last + "**"
	}
	return r.notifier.SendToProtected(ctx, models.Message{
		Title:  "it's ok.",
		Body:   "external playback started. i'm still here. you're safe.\n" + line,
		Footer: "if you want the radio back: request-radio-back",
		Tone:   models.ToneCalm,
	})
}

func (r *Reassurance) NotifyExternalStopped(ctx context.Context) bool {
	if !r.conf.Reassurance.NotifyExternalStop {
		return false
	}
	body := "external playback stopped. if you want radio back: **request-radio-back**"
	if last := r.store.RestoreMemory().LastStationName; last != "" {
		body += "\nlast station: **" + last + "**"
	}
	return r.notifier.SendToProtected(ctx, models.Message{Title: "it's ok.", Body: body, Tone: models.ToneCalm})
}

func (r *Reassurance) Session() SleepSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// InQuietHours reports whether local time falls in [start, end). The
// window may wrap past midnight; equal bounds cover the whole day.
func (r *Reassurance) InQuietHours() bool {
	start := clampHour(r.conf.Sleep.QuietStartHour)
	end := clampHour(r.conf.Sleep.QuietEndHour)
	h := r.now().In(r.loc).Hour()
	switch {
	case start == end:
		return true
	case start < end:
		return start <= h && h < end
	default:
		return h >= start || h < end
	}
}

func (r *Reassurance) sleepMessage(level, minutes int) models.Message {
	clock := r.now().In(r.loc).Format("3:04 PM")
	switch level {
	case 1:
		return models.Message{
			Title:  "…hey",
			Body:   fmt.Sprintf("you've been in there for **%d min**.\nit's **%s**.\n\npls go sleep soon, ok?\nwater. stretch. bed.", minutes, clock),
			Footer: "gentle nudge | ack: acknowledge-reminder",
			Tone:   models.ToneCalm,
		}
	case 2:
		return models.Message{
			Title:  "ok. no.",
			Body:   fmt.Sprintf("**%d min** is a lot.\ntime: **%s**\n\ngo sleep. seriously.\nleave the vc.", minutes, clock),
			Footer: "firm nudge | ack: acknowledge-reminder",
			Tone:   models.ToneWarning,
		}
	default:
		return models.Message{
			Title:  "go. to. bed.",
			Body:   fmt.Sprintf("you're still here.\n**%d min**.\n**%s**.\n\nGO TO BED.\nright now.", minutes, clock),
			Footer: "hard stop | ack: acknowledge-reminder",
			Tone:   models.ToneDanger,
		}
	}
}

func (r *Reassurance) reassuranceMessage(inChannel bool) models.Message {
	media := r.store.Media()
	var line string
	switch {
	case media.RadioActive():
		line = "**station:** " + media.StationName
	case media.ExternalActive:
		line = "**media:** external playback active"
	default:
		line = "**media:** playback active"
		if last := r.store.RestoreMemory().LastStationName; last != "" {
			line += "\n**radio saved:** " + last
		}
	}
	if inChannel {
		return models.Message{Title: "it's ok.", Body: "you're safe. i'm here.\n" + line, Footer: "reassurance (in channel)", Tone: models.ToneCalm}
	}
	return models.Message{Title: "it's ok.", Body: "i'm still here. even if you're not in the room.\n" + line, Footer: "reassurance (elsewhere)", Tone: models.ToneCalm}
}

func clampHour(h int) int {
	if h < 0 {
		return 0
	}
	if h > 23 {
		return 23
	}
	return h
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

func NewReassurance(
	conf *structures.Config,
	st store.StoreInterface,
	voice Voice,
	player Player,
	notifier NotifierInterface,
	logger providers.Logger,
) ReassuranceInterface {
	loc := time.UTC
	if tz := conf.Sleep.Timezone; tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			logger.Warnf(providers.TypeReassure, "Unknown timezone %q, using UTC: %v", tz, err)
		} else {
			loc = l
		}
	}
	return &Reassurance{
		conf:     conf,
		store:    st,
		voice:    voice,
		player:   player,
		notifier: notifier,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
	}
}
