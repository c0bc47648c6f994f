package services

import (
	"context"
	"fmt"
	"perimeterd/internal/models"
	"perimeterd/internal/perimeter"
	"perimeterd/internal/providers"
	"perimeterd/internal/store"
	"perimeterd/internal/structures"
	"strconv"
	"strings"
	"time"
)

const maxRequestText = 4000

type StatusReport struct {
	Binding         models.PerimeterBinding `json:"binding"`
	State           models.PostureState     `json:"state"`
	Posture         models.SafetyPosture    `json:"posture"`
	Media           models.MediaState       `json:"media"`
	ExternalAge     string                  `json:"external_age,omitempty"`
	Snapshot        models.PanicSnapshot    `json:"snapshot"`
	Restore         models.RestoreMemory    `json:"restore"`
	Protected       models.ProtectedUser    `json:"protected"`
	PlayerChannelID string                  `json:"player_channel_id,omitempty"`
	Home            bool                    `json:"home"`
	Playing         bool                    `json:"playing"`
	Sleep           perimeter.SleepSession  `json:"sleep"`
	QuietHours      bool                    `json:"quiet_hours"`
	BlockTerms      []string                `json:"block_terms"`
}

type CommandServiceInterface interface {
	Execute(ctx context.Context, inv models.Invocation) (models.Reply, error)
	Status(ctx context.Context) StatusReport
}

type handler func(ctx context.Context, inv models.Invocation) (models.Reply, error)

// CommandService runs operator and protected-user commands. Every
// invocation goes through the access gate first; control commands also
// need the operator in the locked voice channel.
type CommandService struct {
	conf        *structures.Config
	store       store.StoreInterface
	gate        perimeter.GateInterface
	posture     perimeter.PostureInterface
	snapshot    perimeter.SnapshotInterface
	reassurance perimeter.ReassuranceInterface
	stations    StationServiceInterface
	matcher     *perimeter.Matcher
	graces      *perimeter.Graces
	player      perimeter.Player
	voice       perimeter.Voice
	notifier    perimeter.NotifierInterface
	logger      providers.Logger
	handlers    map[string]handler
	now         func() time.Time
}

func (cs *CommandService) Execute(ctx context.Context, inv models.Invocation) (models.Reply, error) {
	inv.Command = strings.ToLower(strings.TrimSpace(inv.Command))
	inv.Args = strings.TrimSpace(inv.Args)

	h, ok := cs.handlers[inv.Command]
	if !ok {
		return failure(fmt.Errorf("%w: %q", perimeter.ErrUnknownCommand, inv.Command))
	}

	if d := cs.gate.Check(ctx, inv); !d.Allowed {
		cs.logger.Infof(providers.TypeCommand, "Denied %s from %s: %v", inv.Command, inv.CallerID, d.Err)
		return failure(d.Err)
	}
	if perimeter.NeedsPresence(inv.Command) {
		if err := cs.gate.RequireOperatorPresence(ctx, inv); err != nil {
			cs.logger.Infof(providers.TypeCommand, "Denied %s from %s: %v", inv.Command, inv.CallerID, err)
			return failure(err)
		}
	}

	reply, err := h(ctx, inv)
	if err != nil {
		cs.logger.Warnf(providers.TypeCommand, "Command %s failed: %v", inv.Command, err)
		return failure(err)
	}
	cs.logger.Infof(providers.TypeCommand, "Command %s by %s: %s", inv.Command, inv.CallerID, reply.Message)
	return reply, nil
}

func failure(err error) (models.Reply, error) {
	return models.Reply{OK: false, Message: err.Error()}, err
}

func done(message string, data any) (models.Reply, error) {
	return models.Reply{OK: true, Message: message, Data: data}, nil
}

func (cs *CommandService) bind(ctx context.Context, inv models.Invocation) (models.Reply, error) {
	voiceID, err := cs.voice.UserChannel(ctx, inv.GuildID, inv.CallerID)
	if err != nil {
		return models.Reply{}, fmt.Errorf("%w: %v", perimeter.ErrNotInVoice, err)
	}
	if voiceID == "" {
		return models.Reply{}, fmt.Errorf("%w: join the voice channel to lock first", perimeter.ErrNotInVoice)
	}

	binding := models.PerimeterBinding{
		Bound:            true,
		GuildID:          inv.GuildID,
		ControlChannelID: inv.ChannelID,
		VoiceChannelID:   voiceID,
		AuditChannelID:   inv.Args,
		OperatorID:       inv.CallerID,
	}
	err = cs.store.Update(func(s *models.State) {
		if binding.AuditChannelID == "" {
			binding.AuditChannelID = s.Binding.AuditChannelID
		}
		binding.FallbackChannelID = s.Binding.FallbackChannelID
		s.Binding = binding
		s.Posture.PanicLocked = false
		s.Posture.PanicReason = ""
		s.Posture.Suspended = false
		s.Posture.SuspendReason = ""
		s.Posture.AutopanicEnabled = true
		s.Media.Clear()
		s.Snapshot = models.PanicSnapshot{}
	})
	if err != nil {
		cs.logger.Errorf(providers.TypeStore, "Binding committed in memory only: %v", err)
	}
	cs.notifier.SetActivity(ctx, "")
	return done("Bound. Use set-protected-user to pick the protected user and home to bring the player in.", binding)
}

func (cs *CommandService) status(ctx context.Context, _ models.Invocation) (models.Reply, error) {
	report := cs.Status(ctx)
	return done(fmt.Sprintf("Posture: %s", report.State), report)
}

func (cs *CommandService) Status(ctx context.Context) StatusReport {
	state := cs.store.State()
	report := StatusReport{
		Binding:    state.Binding,
		State:      state.Posture.State(),
		Posture:    state.Posture,
		Media:      state.Media,
		Snapshot:   state.Snapshot,
		Restore:    state.Restore,
		Protected:  state.Protected,
		Sleep:      cs.reassurance.Session(),
		QuietHours: cs.reassurance.InQuietHours(),
		BlockTerms: cs.matcher.Terms(),
	}
	if state.Media.ExternalActive && !state.Media.ExternalStartedAt.IsZero() {
		report.ExternalAge = cs.now().Sub(state.Media.ExternalStartedAt).Truncate(time.Second).String()
	}
	if state.Binding.GuildID != "" {
		if ch, err := cs.player.VoiceChannel(ctx, state.Binding.GuildID); err == nil {
			report.PlayerChannelID = ch
			report.Home = ch != "" && ch == state.Binding.VoiceChannelID
		}
		report.Playing = cs.player.Probe(ctx, state.Binding.GuildID).IsPlaying()
	}
	return report
}

func (cs *CommandService) panic(ctx context.Context, inv models.Invocation) (models.Reply, error) {
	if !cs.posture.Panic(ctx, inv.Args, inv.CallerID) {
		return done("Panic lock already active.", cs.posture.Current())
	}
	return done("Panic engaged.", cs.posture.Current())
}

func (cs *CommandService) suspend(ctx context.Context, inv models.Invocation) (models.Reply, error) {
	if !cs.posture.Suspend(ctx, inv.Args, inv.CallerID) {
		return done("Already suspended.", cs.posture.Current())
	}
	return done("Suspended.", cs.posture.Current())
}

func (cs *CommandService) resume(ctx context.Context, inv models.Invocation) (models.Reply, error) {
	if !cs.posture.Unsuspend(ctx, inv.CallerID) {
		return done("Not suspended.", cs.posture.Current())
	}
	return done("Resumed. Use home if the player needs to come back.", cs.posture.Current())
}

func (cs *CommandService) hardMode(ctx context.Context, inv models.Invocation) (models.Reply, error) {
	switch strings.ToLower(inv.Args) {
	case "":
		return done(fmt.Sprintf("Hard mode is currently %t. Use hard-mode on or hard-mode off.", cs.posture.Current().HardMode), nil)
	case "on", "true", "1", "hard":
		cs.posture.SetHardMode(ctx, true, inv.CallerID)
		return done("Hard mode ON: violations trigger panic.", cs.posture.Current())
	case "off", "false", "0", "soft":
		cs.posture.SetHardMode(ctx, false, inv.CallerID)
		return done("Hard mode OFF: violations trigger suspend.", cs.posture.Current())
	}
	return models.Reply{}, fmt.Errorf("%w: use hard-mode on or hard-mode off", perimeter.ErrInvalidArgument)
}

func (cs *CommandService) unlock(ctx context.Context, inv models.Invocation) (models.Reply, error) {
	mode, err := perimeter.ParseUnlockMode(inv.Args)
	if err != nil {
		return models.Reply{}, err
	}
	res := cs.posture.Unlock(ctx, mode, inv.CallerID)
	return done(res.Message, res)
}

func (cs *CommandService) setProtectedUser(_ context.Context, inv models.Invocation) (models.Reply, error) {
	userID := strings.Trim(inv.Args, "<@!>")
	if userID == "" {
		return models.Reply{}, fmt.Errorf("%w: user id required", perimeter.ErrInvalidArgument)
	}
	err := cs.store.UpdateProtected(func(p *models.ProtectedUser) {
		if p.UserID != userID {
			*p = models.ProtectedUser{UserID: userID}
		}
	})
	if err != nil {
		cs.logger.Errorf(providers.TypeStore, "Protected user committed in memory only: %v", err)
	}
	return done("Protected user set to <@"+userID+">.", nil)
}

// control re-keys the control channel. The first re-key also becomes the
// fallback channel for protected-user messages.
func (cs *CommandService) control(ctx context.Context, inv models.Invocation) (models.Reply, error) {
	target := strings.Trim(inv.Args, "<#>")
	if target == "" {
		target = inv.ChannelID
	}
	err := cs.store.Update(func(s *models.State) {
		s.Binding.ControlChannelID = target
		if s.Binding.FallbackChannelID == "" {
			s.Binding.FallbackChannelID = target
		}
	})
	if err != nil {
		cs.logger.Errorf(providers.TypeStore, "Control channel committed in memory only: %v", err)
	}
	cs.notifier.NotifyControl(ctx, models.Message{
		Title: "Control Channel Re-Keyed",
		Body:  "Control channel moved to <#" + target + ">.",
		Tone:  models.ToneWarning,
	})
	return done("Control channel moved to "+target+".", cs.store.Binding())
}

func (cs *CommandService) home(ctx context.Context, inv models.Invocation) (models.Reply, error) {
	if cs.posture.Current().PanicLocked {
		return models.Reply{}, perimeter.ErrPanicLocked
	}
	binding := cs.store.Binding()
	if cs.isHome(ctx, binding) {
		return done("Already home.", nil)
	}

	cs.graces.Open()
	cs.posture.Unsuspend(ctx, inv.CallerID)
	if err := cs.player.Summon(ctx, binding.GuildID, binding.VoiceChannelID); err != nil {
		return models.Reply{}, &perimeter.PlayerError{Op: "summon", Err: err}
	}
	if media := cs.store.Media(); media.RadioActive() {
		cs.notifier.SetActivity(ctx, "📻 "+media.StationName)
	}
	return done("Home command executed.", nil)
}

func (cs *CommandService) isHome(ctx context.Context, binding models.PerimeterBinding) bool {
	ch, err := cs.player.VoiceChannel(ctx, binding.GuildID)
	return err == nil && ch != "" && ch == binding.VoiceChannelID
}

// requirePlayable checks the perimeter is not suspended and the player is
// home.
func (cs *CommandService) requirePlayable(ctx context.Context) error {
	if cs.posture.Current().Suspended {
		return fmt.Errorf("%w: use resume first", perimeter.ErrSuspended)
	}
	if !cs.isHome(ctx, cs.store.Binding()) {
		return fmt.Errorf("%w: use home while in the locked voice channel", perimeter.ErrNotHome)
	}
	return nil
}

func (cs *CommandService) search(ctx context.Context, inv models.Invocation) (models.Reply, error) {
	if err := cs.requirePlayable(ctx); err != nil {
		return models.Reply{}, err
	}
	stations, err := cs.stations.Search(ctx, inv.Args)
	if err != nil {
		return models.Reply{}, err
	}
	return done(fmt.Sprintf("%d stations for %q. Use play-result <number>.", len(stations), inv.Args), stations)
}

func (cs *CommandService) playResult(ctx context.Context, inv models.Invocation) (models.Reply, error) {
	if err := cs.requirePlayable(ctx); err != nil {
		return models.Reply{}, err
	}
	index, err := strconv.Atoi(inv.Args)
	if err != nil {
		return models.Reply{}, fmt.Errorf("%w: %q is not a number", perimeter.ErrInvalidSelection, inv.Args)
	}
	station, err := cs.stations.Select(index)
	if err != nil {
		return models.Reply{}, err
	}

	if err := cs.player.Play(ctx, cs.store.Binding().GuildID, station.StreamURL); err != nil {
		return models.Reply{}, &perimeter.PlayerError{Op: "play", Err: err}
	}
	err = cs.store.Update(func(s *models.State) {
		s.Restore.LastStationName = station.Name
		s.Restore.LastStationURL = station.StreamURL
		s.Media.SetRadio(station.Name, station.StreamURL)
	})
	if err != nil {
		cs.logger.Errorf(providers.TypeStore, "Station committed in memory only: %v", err)
	}
	cs.notifier.SetActivity(ctx, "📻 "+station.Name)
	return done("Station playing: "+station.Name, station)
}

func (cs *CommandService) stop(ctx context.Context, _ models.Invocation) (models.Reply, error) {
	if err := cs.player.Stop(ctx, cs.store.Binding().GuildID); err != nil {
		return models.Reply{}, &perimeter.PlayerError{Op: "stop", Err: err}
	}
	if err := cs.store.UpdateMedia(func(m *models.MediaState) { m.Clear() }); err != nil {
		cs.logger.Errorf(providers.TypeStore, "Stop committed in memory only: %v", err)
	}
	cs.notifier.SetActivity(ctx, "")
	return done("Stopped.", nil)
}

func (cs *CommandService) forceRadioRestore(ctx context.Context, _ models.Invocation) (models.Reply, error) {
	if err := cs.requirePlayable(ctx); err != nil {
		return models.Reply{}, err
	}
	res, err := cs.snapshot.ForceRadioRestore(ctx, cs.store.Binding().GuildID)
	if err != nil {
		return models.Reply{}, err
	}
	return done("Restored radio: "+cs.store.Media().StationName, res)
}

func (cs *CommandService) requestRadioBack(ctx context.Context, inv models.Invocation) (models.Reply, error) {
	last := "No saved station on record."
	if name := cs.store.RestoreMemory().LastStationName; name != "" {
		last = "Last station saved: **" + name + "**"
	}
	body := last
	if inv.Args != "" {
		body += "\n**Note:** " + truncate(inv.Args, 500)
	}
	body += "\n\nSuggested action: `force-radio-restore`"

	if !cs.notifyOperator(ctx, "Protected user requested the radio back", body) {
		return models.Reply{}, fmt.Errorf("control channel unreachable")
	}
	return done("okay. i told the operator you want the radio back.", nil)
}

func (cs *CommandService) requestExternal(ctx context.Context, inv models.Invocation) (models.Reply, error) {
	q := truncate(inv.Args, maxRequestText)
	if q == "" {
		return models.Reply{}, fmt.Errorf("%w: type what you want, link or search", perimeter.ErrInvalidArgument)
	}
	if term, blocked := cs.matcher.Match(q); blocked {
		return models.Reply{}, fmt.Errorf("%w: request hits the blocklist (%s)", perimeter.ErrBlocked, term)
	}

	err := cs.store.UpdateProtected(func(p *models.ProtectedUser) {
		p.LastExternalRequest = q
		p.LastRequestAt = cs.now()
	})
	if err != nil {
		cs.logger.Errorf(providers.TypeStore, "External request committed in memory only: %v", err)
	}

	body := "**Request:** " + q + "\n\nSuggested action (operator, in the control channel and locked voice channel):\n`play " + q + "`"
	if !cs.notifyOperator(ctx, "Protected user requested external playback", body) {
		return models.Reply{}, fmt.Errorf("control channel unreachable")
	}
	return done("ok. i told the operator. don't spam.", nil)
}

func (cs *CommandService) acknowledge(ctx context.Context, inv models.Invocation) (models.Reply, error) {
	cs.reassurance.Acknowledge(ctx, inv.Args)
	return done("good. go sleep. i've got it.", nil)
}

func (cs *CommandService) notifyOperator(ctx context.Context, title, body string) bool {
	mention := cs.store.Binding().OperatorID
	return cs.notifier.NotifyControl(ctx, models.Message{
		Title:   title,
		Body:    body,
		Mention: mention,
		Tone:    models.ToneCalm,
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func NewCommandService(
	conf *structures.Config,
	st store.StoreInterface,
	gate perimeter.GateInterface,
	posture perimeter.PostureInterface,
	snapshot perimeter.SnapshotInterface,
	reassurance perimeter.ReassuranceInterface,
	stations StationServiceInterface,
	matcher *perimeter.Matcher,
	graces *perimeter.Graces,
	player perimeter.Player,
	voice perimeter.Voice,
	notifier perimeter.NotifierInterface,
	logger providers.Logger,
) CommandServiceInterface {
	cs := &CommandService{
		conf:        conf,
		store:       st,
		gate:        gate,
		posture:     posture,
		snapshot:    snapshot,
		reassurance: reassurance,
		stations:    stations,
		matcher:     matcher,
		graces:      graces,
		player:      player,
		voice:       voice,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
	cs.handlers = map[string]handler{
		models.CmdBind:              cs.bind,
		models.CmdStatus:            cs.status,
		models.CmdPanic:             cs.panic,
		models.CmdSuspend:           cs.suspend,
		models.CmdResume:            cs.resume,
		models.CmdHardMode:          cs.hardMode,
		models.CmdUnlock:            cs.unlock,
		models.CmdSetProtectedUser:  cs.setProtectedUser,
		models.CmdControl:           cs.control,
		models.CmdHome:              cs.home,
		models.CmdSearch:            cs.search,
		models.CmdPlayResult:        cs.playResult,
		models.CmdStop:              cs.stop,
		models.CmdForceRadioRestore: cs.forceRadioRestore,
		models.CmdRequestRadioBack:  cs.requestRadioBack,
		models.CmdRequestExternal:   cs.requestExternal,
		models.CmdAcknowledge:       cs.acknowledge,
	}
	return cs
}
