package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"perimeterd/internal/models"
	"perimeterd/internal/providers"
	"perimeterd/internal/structures"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const (
	DefaultTimeout   = 10 * time.Second
	FlavorLavalink   = "lavalink"
	FlavorVoice      = "voiceclient"
	tokenHeader      = "X-Bridge-Token"
	maxResponseBytes = 1 << 20
)

var ErrUnavailable = errors.New("host bridge unavailable")

type playerState struct {
	VoiceChannelID string          `json:"voice_channel_id"`
	State          json.RawMessage `json:"state"`
}

type voiceState struct {
	ChannelID string `json:"channel_id"`
}

// Client talks to the host chat bot over its HTTP bridge. It is the
// player, voice-state and messaging backend at once.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	flavor  string
	client  *http.Client
	logger  providers.Logger
}

func (c *Client) Summon(ctx context.Context, guildID, voiceChannelID string) error {
	return c.do(ctx, http.MethodPost, guildPath(guildID, "player/summon"),
		map[string]string{"voice_channel_id": voiceChannelID}, nil)
}

func (c *Client) Play(ctx context.Context, guildID, query string) error {
	return c.do(ctx, http.MethodPost, guildPath(guildID, "player/play"), map[string]string{"query": query}, nil)
}

func (c *Client) Stop(ctx context.Context, guildID string) error {
	return c.do(ctx, http.MethodPost, guildPath(guildID, "player/stop"), nil, nil)
}

func (c *Client) Disconnect(ctx context.Context, guildID string) error {
	return c.do(ctx, http.MethodPost, guildPath(guildID, "player/disconnect"), nil, nil)
}

func (c *Client) VoiceChannel(ctx context.Context, guildID string) (string, error) {
	var ps playerState
	if err := c.do(ctx, http.MethodGet, guildPath(guildID, "player"), nil, &ps); err != nil {
		return "", err
	}
	return ps.VoiceChannelID, nil
}

// Probe never fails: anything the bridge cannot tell us reads as silence.
func (c *Client) Probe(ctx context.Context, guildID string) models.TrackProbe {
	var ps playerState
	if err := c.do(ctx, http.MethodGet, guildPath(guildID, "player"), nil, &ps); err != nil {
		return models.EmptyProbe{}
	}
	return NewProbe(c.flavor, ps.State)
}

func (c *Client) UserChannel(ctx context.Context, guildID, userID string) (string, error) {
	var vs voiceState
	if err := c.do(ctx, http.MethodGet, guildPath(guildID, "voice/"+url.PathEscape(userID)), nil, &vs); err != nil {
		return "", err
	}
	return vs.ChannelID, nil
}

func (c *Client) SendDirect(ctx context.Context, userID string, msg models.Message) error {
	return c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/messages", msg, nil)
}

func (c *Client) SendChannel(ctx context.Context, channelID string, msg models.Message) error {
	return c.do(ctx, http.MethodPost, "/channels/"+url.PathEscape(channelID)+"/messages", msg, nil)
}

func (c *Client) SetActivity(ctx context.Context, label string) error {
	return c.do(ctx, http.MethodPut, "/presence", map[string]string{"activity": label}, nil)
}

func guildPath(guildID, rest string) string {
	return "/guilds/" + url.PathEscape(guildID) + "/" + rest
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(tokenHeader, c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debugf(providers.TypeApp, "Bridge %s %s failed: %v", method, path, err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrUnavailable, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrUnavailable, method, path, resp.StatusCode,
			strings.TrimSpace(string(data)))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrUnavailable, path, err)
	}
	return nil
}

func NewClient(conf *structures.Config, logger providers.Logger) *Client {
	timeout := conf.Bridge.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	flavor := conf.Bridge.PlayerFlavor
	if flavor == "" {
		flavor = FlavorLavalink
	}
	return &Client{
		baseURL: strings.TrimRight(conf.Bridge.BaseURL, "/"),
		token:   conf.Bridge.Token,
		timeout: timeout,
		flavor:  flavor,
		client:  &http.Client{},
		logger:  logger,
	}
}
