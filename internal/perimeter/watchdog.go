package perimeter

import (
	"context"
	"perimeterd/internal/models"
	"perimeterd/internal/providers"
	"perimeterd/internal/store"
	"perimeterd/internal/structures"
	"time"
)

const DefaultWatchdogInterval = 8 * time.Second

const maxBlobInMessage = 200

// Tick outcomes, also used as the metrics label.
const (
	TickSkipped = "skipped"
	TickIdle    = "idle"
	TickNoData  = "no_data"
	TickNotHome = "not_home"
	TickBlocked = "blocked"
	TickOK      = "ok"
)

type WatchdogInterface interface {
	Tick(ctx context.Context) string
	Run(ctx context.Context) error
}

type Watchdog struct {
	interval time.Duration
	store    store.StoreInterface
	player   Player
	matcher  *Matcher
	posture  PostureInterface
	auditor  AuditorInterface
	notifier NotifierInterface
	graces   *Graces
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface
}

func (w *Watchdog) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.logger.Infof(providers.TypeWatchdog, "Watchdog started, interval %s", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Infof(providers.TypeWatchdog, "Watchdog stopped")
			return nil
		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(ctx, w.interval)
			w.Tick(tickCtx)
			cancel()
		}
	}
}

// Tick re-validates the perimeter once. Missing data skips the check
// instead of triggering a panic.
func (w *Watchdog) Tick(ctx context.Context) string {
	outcome := w.tick(ctx)
	w.metrics.IncWatchdogTicks(outcome)
	return outcome
}

func (w *Watchdog) tick(ctx context.Context) string {
	binding := w.store.Binding()
	if !binding.Bound || binding.GuildID == "" {
		return TickSkipped
	}
	if w.store.Posture().State() != models.PostureNormal {
		return TickSkipped
	}
	if w.graces.InHomeGrace() {
		return TickSkipped
	}

	probe := w.player.Probe(ctx, binding.GuildID)
	if !w.store.Media().Active() && !probe.IsPlaying() {
		return TickIdle
	}

	channelID, err := w.player.VoiceChannel(ctx, binding.GuildID)
	if err != nil {
		w.logger.Debugf(providers.TypeWatchdog, "Player voice state unavailable: %v", err)
		return TickNoData
	}
	if channelID != binding.VoiceChannelID {
		w.posture.AutoPanic(ctx, "Watchdog: media active but bot is not home")
		return TickNotHome
	}

	blob := probe.CurrentTrackText()
	term, blocked := w.matcher.Match(blob)
	if !blocked {
		return TickOK
	}

	if err := w.player.Stop(ctx, binding.GuildID); err != nil {
		w.logger.Warnf(providers.TypeWatchdog, "Stop of blocked track failed: %v", err)
	}
	if err := w.store.UpdateMedia(func(m *models.MediaState) { m.Clear() }); err != nil {
		w.logger.Errorf(providers.TypeStore, "Failed to clear media after blocked track: %v", err)
	}
	w.notifier.SetActivity(ctx, "")
	w.auditor.Record(ctx, models.AuditEvent{
		Reason:  ReasonBlockedTrack,
		Detail:  "blocked term " + term + " in resolved track metadata",
		GuildID: binding.GuildID,
	})
	w.notifier.NotifyControl(ctx, models.Message{
		Title: "Blocked Track Stopped",
		Body:  "Blocked term detected in current track metadata:\n`" + truncate(blob, maxBlobInMessage) + "`",
		Tone:  models.ToneWarning,
	})
	return TickBlocked
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func NewWatchdog(
	conf *structures.Config,
	st store.StoreInterface,
	player Player,
	matcher *Matcher,
	posture PostureInterface,
	auditor AuditorInterface,
	notifier NotifierInterface,
	graces *Graces,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) WatchdogInterface {
	interval := conf.Watchdog.Interval
	if interval <= 0 {
		interval = DefaultWatchdogInterval
	}
	return &Watchdog{
		interval: interval,
		store:    st,
		player:   player,
		matcher:  matcher,
		posture:  posture,
		auditor:  auditor,
		notifier: notifier,
		graces:   graces,
		logger:   logger,
		metrics:  metrics,
	}
}
