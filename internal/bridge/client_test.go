package bridge

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"perimeterd/internal/models"
	"perimeterd/internal/perimeter"
	"perimeterd/internal/structures"
	"perimeterd/internal/testutil"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ perimeter.Player    = (*Client)(nil)
	_ perimeter.Voice     = (*Client)(nil)
	_ perimeter.Messenger = (*Client)(nil)
)

type recorded struct {
	Method string
	Path   string
	Token  string
	Body   map[string]any
}

type fakeHost struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	replies  map[string]string
}

func (f *fakeHost) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	rec := recorded{Method: r.Method, Path: r.URL.EscapedPath(), Token: r.Header.Get(tokenHeader)}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &rec.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	status := f.status
	reply := f.replies[r.Method+" "+rec.Path]
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("nope"))
		return
	}
	_, _ = w.Write([]byte(reply))
}

func (f *fakeHost) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newClient(t *testing.T, host *fakeHost, flavor string) *Client {
	t.Helper()
	srv := httptest.NewServer(host)
	t.Cleanup(srv.Close)
	return NewClient(&structures.Config{Bridge: structures.BridgeConfig{
		BaseURL:      srv.URL + "/",
		Token:        "secret",
		Timeout:      time.Second,
		PlayerFlavor: flavor,
	}}, &testutil.MockLogger{})
}

func TestClient_PlayerCommands(t *testing.T) {
	host := &fakeHost{}
	c := newClient(t, host, "")
	ctx := context.Background()

	require.NoError(t, c.Summon(ctx, "G", "V"))
	got := host.last()
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/guilds/G/player/summon", got.Path)
	assert.Equal(t, "secret", got.Token)
	assert.Equal(t, "V", got.Body["voice_channel_id"])

	require.NoError(t, c.Play(ctx, "G", "https://jazz.example/s"))
	assert.Equal(t, "https://jazz.example/s", host.last().Body["query"])

	require.NoError(t, c.Stop(ctx, "G"))
	assert.Equal(t, "/guilds/G/player/stop", host.last().Path)
	require.NoError(t, c.Disconnect(ctx, "G"))
	assert.Equal(t, "/guilds/G/player/disconnect", host.last().Path)
}

func TestClient_Messaging(t *testing.T) {
	host := &fakeHost{}
	c := newClient(t, host, "")
	ctx := context.Background()

	msg := models.Message{Title: "Panic Engaged", Body: "locked", Tone: models.ToneDanger}
	require.NoError(t, c.SendChannel(ctx, "T", msg))
	got := host.last()
	assert.Equal(t, "/channels/T/messages", got.Path)
	assert.Equal(t, "Panic Engaged", got.Body["title"])
	assert.Equal(t, "danger", got.Body["tone"])

	require.NoError(t, c.SendDirect(ctx, "dj", msg))
	assert.Equal(t, "/users/dj/messages", host.last().Path)

	require.NoError(t, c.SetActivity(ctx, "📻 Jazz FM"))
	got = host.last()
	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, "📻 Jazz FM", got.Body["activity"])
}

func TestClient_VoiceState(t *testing.T) {
	host := &fakeHost{replies: map[string]string{
		"GET /guilds/G/voice/op": `{"channel_id":"V"}`,
		"GET /guilds/G/player":   `{"voice_channel_id":"V2"}`,
	}}
	c := newClient(t, host, "")
	ctx := context.Background()

	ch, err := c.UserChannel(ctx, "G", "op")
	require.NoError(t, err)
	assert.Equal(t, "V", ch)

	ch, err = c.UserChannel(ctx, "G", "nobody")
	require.NoError(t, err)
	assert.Empty(t, ch)

	ch, err = c.VoiceChannel(ctx, "G")
	require.NoError(t, err)
	assert.Equal(t, "V2", ch)
}

func TestClient_ErrorStatus(t *testing.T) {
	host := &fakeHost{status: http.StatusServiceUnavailable}
	c := newClient(t, host, "")

	err := c.Play(context.Background(), "G", "x")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "503")

	probe := c.Probe(context.Background(), "G")
	assert.False(t, probe.IsPlaying())
	assert.Empty(t, probe.CurrentTrackText())
}

func TestClient_Unreachable(t *testing.T) {
	c := NewClient(&structures.Config{Bridge: structures.BridgeConfig{
		BaseURL: "http://127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
	}}, &testutil.MockLogger{})

	_, err := c.VoiceChannel(context.Background(), "G")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_ProbeUsesFlavor(t *testing.T) {
	host := &fakeHost{replies: map[string]string{
		"GET /guilds/G/player": `{"voice_channel_id":"V","state":{"now_playing":{"title":"Song"},"is_playing":true}}`,
	}}
	c := newClient(t, host, FlavorVoice)

	probe := c.Probe(context.Background(), "G")
	assert.True(t, probe.IsPlaying())
	assert.Equal(t, "Song", probe.CurrentTrackText())
}
