package services

import (
	"perimeterd/internal/models"
	"perimeterd/internal/perimeter"
	"perimeterd/internal/store"
	"perimeterd/internal/structures"
	"perimeterd/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	guildID   = "G"
	controlID = "T"
	voiceID   = "V"
	auditID   = "A"
	operator  = "op"
	protected = "dj"
)

var testStations = []models.Station{
	{Name: "Jazz FM", Country: "UK", Bitrate: 128, Tags: "jazz,smooth", StreamURL: "https://jazz.example/stream"},
	{Name: "Low Jazz", Country: "US", Bitrate: 32, Tags: "jazz", StreamURL: "https://low.example/stream"},
	{Name: "Jazz Phonk Mix", Country: "DE", Bitrate: 192, Tags: "mix", StreamURL: "https://mix.example/stream"},
	{Name: "Night Jazz", Country: "FR", Bitrate: 0, Tags: "jazz,late", StreamURL: "https://night.example/stream"},
}

func testConfig() *structures.Config {
	return &structures.Config{
		Perimeter: structures.PerimeterConfig{
			OperatorIDs:      []string{operator},
			ProtectedUserID:  protected,
			AuditChannelID:   auditID,
			MinBitrateKbps:   64,
			AutopanicEnabled: true,
			HardMode:         true,
		},
		Watchdog: structures.WatchdogConfig{
			Interval:    8 * time.Second,
			HomeGrace:   15 * time.Second,
			SummonGrace: 10 * time.Second,
		},
		Reassurance: structures.ReassuranceConfig{
			Enabled:            true,
			InChannelInterval:  300 * time.Second,
			ElsewhereInterval:  900 * time.Second,
			UseDM:              true,
			NotifyExternalStop: true,
		},
		Sleep: structures.SleepConfig{Timezone: "UTC"},
	}
}

type harness struct {
	conf      *structures.Config
	store     store.StoreInterface
	player    *testutil.MockPlayer
	voice     *testutil.MockVoice
	messenger *testutil.MockMessenger
	directory *testutil.MockDirectory
	cache     *testutil.MockCache
	events    *testutil.MockPublisher

	posture  perimeter.PostureInterface
	tripwire perimeter.TripwireInterface
	stations StationServiceInterface
	commands *CommandService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conf := testConfig()
	logger := &testutil.MockLogger{}
	metrics := &testutil.MockMetrics{}

	h := &harness{
		conf:      conf,
		store:     store.NewMemoryStore(conf),
		player:    &testutil.MockPlayer{},
		voice:     testutil.NewMockVoice(),
		messenger: &testutil.MockMessenger{},
		directory: &testutil.MockDirectory{Stations: testStations},
		cache:     testutil.NewMockCache(),
		events:    &testutil.MockPublisher{},
	}

	matcher := perimeter.NewMatcher(conf)
	graces := perimeter.NewGraces(conf)
	auditor := perimeter.NewAuditor(conf, h.store, h.messenger, logger, metrics, h.events)
	notifier := perimeter.NewNotifier(conf, h.store, h.messenger, logger, metrics)
	gate := perimeter.NewGate(conf, h.store, h.voice, auditor, logger)
	snapshot := perimeter.NewSnapshotEngine(h.store, h.player, notifier, logger)
	h.posture = perimeter.NewPosture(h.store, h.player, snapshot, auditor, notifier, graces, logger, metrics, h.events)
	reassurance := perimeter.NewReassurance(conf, h.store, h.voice, h.player, notifier, logger)
	h.tripwire = perimeter.NewTripwire(h.store, gate, matcher, h.player, h.posture, notifier, reassurance, graces, logger)
	h.stations = NewStationService(conf, h.directory, h.cache, matcher, h.store, logger)
	h.commands = NewCommandService(conf, h.store, gate, h.posture, snapshot, reassurance, h.stations,
		matcher, graces, h.player, h.voice, notifier, logger).(*CommandService)
	return h
}

func (h *harness) inv(command, args string) models.Invocation {
	return models.Invocation{Command: command, Args: args, CallerID: operator, GuildID: guildID, ChannelID: controlID}
}

func (h *harness) fromProtected(command, args string) models.Invocation {
	return models.Invocation{Command: command, Args: args, CallerID: protected, GuildID: guildID, ChannelID: "elsewhere"}
}

// bind runs the real bind command with the operator in V and the player home.
func (h *harness) bind(t *testing.T) {
	t.Helper()
	h.voice.Set(operator, voiceID)
	h.player.SetChannel(voiceID)
	_, err := h.commands.Execute(ctx(), h.inv(models.CmdBind, ""))
	require.NoError(t, err)
}

func (h *harness) run(t *testing.T, command, args string) models.Reply {
	t.Helper()
	reply, err := h.commands.Execute(ctx(), h.inv(command, args))
	require.NoError(t, err)
	require.True(t, reply.OK)
	return reply
}
