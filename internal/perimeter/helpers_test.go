package perimeter

import (
	"perimeterd/internal/models"
	"perimeterd/internal/store"
	"perimeterd/internal/structures"
	"perimeterd/internal/testutil"
	"sync"
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

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	conf      *structures.Config
	store     *store.FileStore
	clock     *fakeClock
	player    *testutil.MockPlayer
	voice     *testutil.MockVoice
	messenger *testutil.MockMessenger
	logger    *testutil.MockLogger
	metrics   *testutil.MockMetrics
	events    *testutil.MockPublisher

	matcher     *Matcher
	graces      *Graces
	auditor     *Auditor
	notifier    *Notifier
	gate        *Gate
	snapshot    *SnapshotEngine
	posture     *Posture
	watchdog    *Watchdog
	reassurance *Reassurance
	tripwire    *Tripwire
}

func testConfig() *structures.Config {
	return &structures.Config{
		Perimeter: structures.PerimeterConfig{
			OperatorIDs:      []string{operator},
			ProtectedUserID:  protected,
			AuditChannelID:   auditID,
			BlockTerms:       []string{"phonk,earrape", "NSFW"},
			AutopanicEnabled: true,
			HardMode:         true,
		},
		Watchdog: structures.WatchdogConfig{
			Interval:    8 * time.Second,
			HomeGrace:   15 * time.Second,
			SummonGrace: 10 * time.Second,
		},
		Reassurance: structures.ReassuranceConfig{
			Enabled:             true,
			Tick:                10 * time.Second,
			InChannelInterval:   300 * time.Second,
			ElsewhereInterval:   900 * time.Second,
			UseDM:               true,
			NotifyExternalStart: true,
			NotifyExternalStop:  true,
		},
		Sleep: structures.SleepConfig{
			Enabled:  true,
			After:    180 * time.Minute,
			Repeat:   45 * time.Minute,
			Timezone: "UTC",
		},
	}
}

func newHarness(t *testing.T, tweak ...func(*structures.Config)) *harness {
	t.Helper()
	conf := testConfig()
	for _, fn := range tweak {
		fn(conf)
	}

	h := &harness{
		conf:      conf,
		store:     store.NewMemoryStore(conf),
		clock:     &fakeClock{t: time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)},
		player:    &testutil.MockPlayer{},
		voice:     testutil.NewMockVoice(),
		messenger: &testutil.MockMessenger{},
		logger:    &testutil.MockLogger{},
		metrics:   &testutil.MockMetrics{},
		events:    &testutil.MockPublisher{},
	}

	h.matcher = NewMatcher(conf)
	h.graces = NewGraces(conf)
	h.graces.now = h.clock.Now
	h.auditor = NewAuditor(conf, h.store, h.messenger, h.logger, h.metrics, h.events).(*Auditor)
	h.auditor.now = h.clock.Now
	h.notifier = NewNotifier(conf, h.store, h.messenger, h.logger, h.metrics).(*Notifier)
	h.gate = NewGate(conf, h.store, h.voice, h.auditor, h.logger).(*Gate)
	h.snapshot = NewSnapshotEngine(h.store, h.player, h.notifier, h.logger).(*SnapshotEngine)
	h.snapshot.now = h.clock.Now
	h.posture = NewPosture(h.store, h.player, h.snapshot, h.auditor, h.notifier, h.graces,
		h.logger, h.metrics, h.events).(*Posture)
	h.posture.now = h.clock.Now
	h.watchdog = NewWatchdog(conf, h.store, h.player, h.matcher, h.posture, h.auditor, h.notifier,
		h.graces, h.logger, h.metrics).(*Watchdog)
	h.reassurance = NewReassurance(conf, h.store, h.voice, h.player, h.notifier, h.logger).(*Reassurance)
	h.reassurance.now = h.clock.Now
	h.tripwire = NewTripwire(h.store, h.gate, h.matcher, h.player, h.posture, h.notifier,
		h.reassurance, h.graces, h.logger).(*Tripwire)
	h.tripwire.now = h.clock.Now
	return h
}

// bind registers G/T/V, unlocks the posture and puts the operator and the
// player in the locked voice channel.
func (h *harness) bind(t *testing.T) {
	t.Helper()
	require.NoError(t, h.store.Update(func(s *models.State) {
		s.Binding = models.PerimeterBinding{
			Bound:            true,
			GuildID:          guildID,
			ControlChannelID: controlID,
			VoiceChannelID:   voiceID,
			OperatorID:       operator,
		}
		s.Posture.PanicLocked = false
	}))
	h.voice.Set(operator, voiceID)
	h.player.SetChannel(voiceID)
}

func (h *harness) playRadio(t *testing.T, name, url string) {
	t.Helper()
	require.NoError(t, h.store.Update(func(s *models.State) {
		s.Media.SetRadio(name, url)
		s.Restore.LastStationName = name
		s.Restore.LastStationURL = url
	}))
}

func (h *harness) invocation(command string) models.Invocation {
	return models.Invocation{Command: command, CallerID: operator, GuildID: guildID, ChannelID: controlID}
}

func (h *harness) playerInvocation(command, content string) models.PlayerInvocation {
	return models.PlayerInvocation{Command: command, Content: content, CallerID: operator, GuildID: guildID, ChannelID: controlID}
}
