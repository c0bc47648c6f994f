package testutil

import (
	"context"
	"perimeterd/internal/models"
	"perimeterd/internal/providers"
	"strings"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// CountType returns how many entries were logged under the given type.
func (m *MockLogger) CountType(t providers.TypeEnum) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.Logs {
		if l.Type == t {
			n++
		}
	}
	return n
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockCompressor implements store.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu            sync.Mutex
	Transitions   []string
	AuditReasons  []string
	Notifications []string
	WatchdogTicks []string
	Persisted     int
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits()                                    {}
func (m *MockMetrics) IncCacheMisses()                                  {}
func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Persisted++
}
func (m *MockMetrics) IncPostureTransitions(transition string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Transitions = append(m.Transitions, transition)
}
func (m *MockMetrics) IncAuditEvents(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AuditReasons = append(m.AuditReasons, reason)
}
func (m *MockMetrics) IncNotifications(target string, delivered bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if delivered {
		m.Notifications = append(m.Notifications, target)
	} else {
		m.Notifications = append(m.Notifications, target+":failed")
	}
}
func (m *MockMetrics) IncWatchdogTicks(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WatchdogTicks = append(m.WatchdogTicks, outcome)
}

func (m *MockMetrics) TransitionCount(transition string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.Transitions {
		if t == transition {
			n++
		}
	}
	return n
}

// MockPublisher implements providers.EventPublisherInterface.
type MockPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
	Err    error
}

type PublishedEvent struct {
	Topic string
	Event any
}

func (m *MockPublisher) Publish(_ context.Context, topic string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PublishedEvent{Topic: topic, Event: event})
	return m.Err
}

func (m *MockPublisher) Close() error { return nil }

func (m *MockPublisher) Count(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.Topic == topic {
			n++
		}
	}
	return n
}

// MockProbe is a fixed TrackProbe.
type MockProbe struct {
	Text    string
	Playing bool
}

func (p MockProbe) CurrentTrackText() string { return p.Text }
func (p MockProbe) IsPlaying() bool          { return p.Playing }

// MockPlayer implements perimeter.Player. Channel is the voice channel the
// player is connected to; Summon moves it there.
type MockPlayer struct {
	mu         sync.Mutex
	Channel    string
	ChannelErr error
	Track      MockProbe
	Calls      []string
	Played     []string
	PlayErr    error
	PlayErrFor map[string]error
	SummonErr  error
	StopErr    error
	DiscErr    error
	OnPlay     func(query string)
}

func (m *MockPlayer) call(c string) {
	m.Calls = append(m.Calls, c)
}

func (m *MockPlayer) Summon(_ context.Context, _ string, voiceChannelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.call("summon")
	if m.SummonErr != nil {
		return m.SummonErr
	}
	m.Channel = voiceChannelID
	return nil
}

func (m *MockPlayer) Play(_ context.Context, _ string, query string) error {
	m.mu.Lock()
	m.call("play")
	err := m.PlayErr
	if e, ok := m.PlayErrFor[query]; ok {
		err = e
	}
	if err == nil {
		m.Played = append(m.Played, query)
		m.Track = MockProbe{Text: query, Playing: true}
	}
	hook := m.OnPlay
	m.mu.Unlock()
	if hook != nil {
		hook(query)
	}
	return err
}

func (m *MockPlayer) Stop(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.call("stop")
	m.Track = MockProbe{}
	return m.StopErr
}

func (m *MockPlayer) Disconnect(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.call("disconnect")
	if m.DiscErr != nil {
		return m.DiscErr
	}
	m.Channel = ""
	m.Track = MockProbe{}
	return nil
}

func (m *MockPlayer) VoiceChannel(_ context.Context, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Channel, m.ChannelErr
}

func (m *MockPlayer) Probe(_ context.Context, _ string) models.TrackProbe {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Track
}

func (m *MockPlayer) CallCount(c string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, call := range m.Calls {
		if call == c {
			n++
		}
	}
	return n
}

func (m *MockPlayer) LastPlayed() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Played) == 0 {
		return ""
	}
	return m.Played[len(m.Played)-1]
}

func (m *MockPlayer) SetChannel(ch string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Channel = ch
}

func (m *MockPlayer) SetTrack(p MockProbe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Track = p
}

// MockVoice implements perimeter.Voice from a user → channel map.
type MockVoice struct {
	mu       sync.Mutex
	Channels map[string]string
	Err      error
}

func NewMockVoice() *MockVoice {
	return &MockVoice{Channels: make(map[string]string)}
}

func (m *MockVoice) UserChannel(_ context.Context, _ string, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.Channels[userID], nil
}

func (m *MockVoice) Set(userID, channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Channels[userID] = channelID
}

// MockMessenger implements perimeter.Messenger and records deliveries.
type MockMessenger struct {
	mu         sync.Mutex
	Direct     []SentMessage
	Channel    []SentMessage
	Activities []string
	DirectErr  error
	ChannelErr map[string]error
}

type SentMessage struct {
	Target  string
	Message models.Message
}

func (m *MockMessenger) SendDirect(_ context.Context, userID string, msg models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DirectErr != nil {
		return m.DirectErr
	}
	m.Direct = append(m.Direct, SentMessage{Target: userID, Message: msg})
	return nil
}

func (m *MockMessenger) SendChannel(_ context.Context, channelID string, msg models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.ChannelErr[channelID]; ok {
		return err
	}
	m.Channel = append(m.Channel, SentMessage{Target: channelID, Message: msg})
	return nil
}

func (m *MockMessenger) SetActivity(_ context.Context, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Activities = append(m.Activities, label)
	return nil
}

func (m *MockMessenger) SentTo(channelID string) []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, s := range m.Channel {
		if s.Target == channelID {
			out = append(out, s.Message)
		}
	}
	return out
}

func (m *MockMessenger) DirectTo(userID string) []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, s := range m.Direct {
		if s.Target == userID {
			out = append(out, s.Message)
		}
	}
	return out
}

// CountTitle counts messages (direct and channel) whose title contains s.
func (m *MockMessenger) CountTitle(s string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, list := range [][]SentMessage{m.Direct, m.Channel} {
		for _, sent := range list {
			if strings.Contains(sent.Message.Title, s) {
				n++
			}
		}
	}
	return n
}

// MockDirectory implements perimeter.StationDirectory.
type MockDirectory struct {
	mu       sync.Mutex
	Stations []models.Station
	Err      error
	Queries  []string
}

func (m *MockDirectory) Search(_ context.Context, query string) ([]models.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, query)
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Station, len(m.Stations))
	copy(out, m.Stations)
	return out, nil
}
