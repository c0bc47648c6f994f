package perimeter

import (
	"context"
	"fmt"
	"perimeterd/internal/models"
	"perimeterd/internal/providers"
	"perimeterd/internal/store"
	"strings"
	"time"
)

const (
	VerdictIgnored   = "ignored"
	VerdictAllowed   = "allowed"
	VerdictBlocked   = "blocked"
	VerdictViolation = "violation"
)

const maxExternalQuery = 4000

var (
	summonAliases     = commandSet("summon", "join", "connect")
	disconnectAliases = commandSet("disconnect", "dc", "leave")
	stopAliases       = commandSet("stop")
	playAliases       = commandSet("play", "local", "playurl", "playlist")
)

type TripwireOutcome struct {
	Verdict string `json:"verdict"`
	Edge    Edge   `json:"edge,omitempty"`
	Term    string `json:"term,omitempty"`
	Message string `json:"message,omitempty"`
}

type TripwireInterface interface {
	Intercept(ctx context.Context, inv models.PlayerInvocation) TripwireOutcome
}

// Tripwire sees every external player command before the player acts on it.
type Tripwire struct {
	store       store.StoreInterface
	gate        GateInterface
	matcher     *Matcher
	player      Player
	posture     PostureInterface
	notifier    NotifierInterface
	reassurance ReassuranceInterface
	graces      *Graces
	logger      providers.Logger
	now         func() time.Time
}

func (t *Tripwire) Intercept(ctx context.Context, inv models.PlayerInvocation) TripwireOutcome {
	name := strings.ToLower(strings.TrimSpace(inv.Command))

	if inSet(summonAliases, name) && t.graces.InSummonGrace() {
		return TripwireOutcome{Verdict: VerdictIgnored, Message: "self-authorized summon"}
	}

	if t.gate.PerimeterSatisfied(ctx, inv) {
		return t.legitimate(ctx, name, inv)
	}

	binding := t.store.Binding()
	if !binding.Bound {
		return TripwireOutcome{Verdict: VerdictIgnored}
	}
	if !t.store.Media().Active() && !t.player.Probe(ctx, binding.GuildID).IsPlaying() {
		return TripwireOutcome{Verdict: VerdictIgnored, Message: "nothing active"}
	}

	reason := fmt.Sprintf("Audio `%s` used outside perimeter while active", name)
	t.logger.Warnf(providers.TypeSecurity, "%s (caller %s, channel %s)", reason, inv.CallerID, inv.ChannelID)
	edge := t.posture.Violation(ctx, reason)
	return TripwireOutcome{Verdict: VerdictViolation, Edge: edge, Message: reason}
}

func (t *Tripwire) legitimate(ctx context.Context, name string, inv models.PlayerInvocation) TripwireOutcome {
	switch {
	case inSet(playAliases, name) && LooksExternal(inv.Content):
		return t.externalPlay(ctx, inv)
	case inSet(stopAliases, name):
		t.clearMedia(ctx)
		t.reassurance.NotifyExternalStopped(ctx)
	case inSet(disconnectAliases, name):
		t.clearMedia(ctx)
		t.graces.Open()
		t.reassurance.NotifyExternalStopped(ctx)
	}
	return TripwireOutcome{Verdict: VerdictAllowed}
}

// externalPlay pre-filters the typed request, then parks the radio in
// restore memory and flips media to external playback.
func (t *Tripwire) externalPlay(ctx context.Context, inv models.PlayerInvocation) TripwireOutcome {
	query := strings.TrimSpace(inv.Query)
	if query == "" {
		query = strings.TrimSpace(inv.Content)
	}
	if r := []rune(query); len(r) > maxExternalQuery {
		query = string(r[:maxExternalQuery])
	}

	if term, blocked := t.matcher.Match(query); blocked {
		err := t.store.UpdateMedia(func(m *models.MediaState) {
			if m.ExternalActive {
				m.Clear()
			}
		})
		if err != nil {
			t.logger.Errorf(providers.TypeStore, "Failed to clear external intent: %v", err)
		}
		t.notifier.SetActivity(ctx, "")
		return TripwireOutcome{
			Verdict: VerdictBlocked,
			Term:    term,
			Message: "Blocked by safety filter (matched blocked terms in the request).",
		}
	}

	err := t.store.Update(func(s *models.State) {
		if s.Media.RadioActive() {
			s.Restore.LastStationName = s.Media.StationName
			s.Restore.LastStationURL = s.Media.StationURL
		}
		s.Media.SetExternal(query, t.now())
		s.Restore.LastExternalQuery = query
	})
	if err != nil {
		t.logger.Errorf(providers.TypeStore, "Failed to persist external intent: %v", err)
	}
	t.notifier.SetActivity(ctx, "")
	t.reassurance.NotifyExternalStarted(ctx)
	return TripwireOutcome{Verdict: VerdictAllowed}
}

func (t *Tripwire) clearMedia(ctx context.Context) {
	if err := t.store.UpdateMedia(func(m *models.MediaState) { m.Clear() }); err != nil {
		t.logger.Errorf(providers.TypeStore, "Failed to clear media: %v", err)
	}
	t.notifier.SetActivity(ctx, "")
}

func NewTripwire(
	st store.StoreInterface,
	gate GateInterface,
	matcher *Matcher,
	player Player,
	posture PostureInterface,
	notifier NotifierInterface,
	reassurance ReassuranceInterface,
	graces *Graces,
	logger providers.Logger,
) TripwireInterface {
	return &Tripwire{
		store:       st,
		gate:        gate,
		matcher:     matcher,
		player:      player,
		posture:     posture,
		notifier:    notifier,
		reassurance: reassurance,
		graces:      graces,
		logger:      logger,
		now:         time.Now,
	}
}
