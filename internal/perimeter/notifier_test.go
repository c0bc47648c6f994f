package perimeter

import (
	"context"
	"errors"
	"perimeterd/internal/models"
	"perimeterd/internal/structures"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_ProtectedDirectFirst(t *testing.T) {
	h := newHarness(t)
	h.bind(t)

	ok := h.notifier.SendToProtected(context.Background(), models.Message{Title: "hi"})

	assert.True(t, ok)
	assert.Len(t, h.messenger.DirectTo(protected), 1)
	assert.Equal(t, []string{TargetDirect}, h.metrics.Notifications)
}

func TestNotifier_FallsBackToChannelWithMention(t *testing.T) {
	h := newHarness(t, func(c *structures.Config) { c.Reassurance.FallbackChannelID = "F" })
	h.bind(t)
	h.messenger.DirectErr = errors.New("dms closed")

	ok := h.notifier.SendToProtected(context.Background(), models.Message{Title: "hi"})

	assert.True(t, ok)
	sent := h.messenger.SentTo("F")
	require.Len(t, sent, 1)
	assert.Equal(t, protected, sent[0].Mention)
}

func TestNotifier_FallsBackToControlChannel(t *testing.T) {
	h := newHarness(t, func(c *structures.Config) { c.Reassurance.FallbackChannelID = "F" })
	h.bind(t)
	h.messenger.DirectErr = errors.New("dms closed")
	h.messenger.ChannelErr = map[string]error{"F": errors.New("deleted")}

	assert.True(t, h.notifier.SendToProtected(context.Background(), models.Message{Title: "hi"}))
	assert.Len(t, h.messenger.SentTo(controlID), 1)
}

func TestNotifier_DropsWhenUnreachable(t *testing.T) {
	h := newHarness(t)
	h.bind(t)
	h.messenger.DirectErr = errors.New("dms closed")
	h.messenger.ChannelErr = map[string]error{controlID: errors.New("forbidden")}

	assert.False(t, h.notifier.SendToProtected(context.Background(), models.Message{Title: "hi"}))
}

func TestNotifier_NoProtectedUser(t *testing.T) {
	h := newHarness(t, func(c *structures.Config) { c.Perimeter.ProtectedUserID = "" })
	h.bind(t)

	assert.False(t, h.notifier.SendToProtected(context.Background(), models.Message{Title: "hi"}))
	assert.Empty(t, h.messenger.Direct)
}

func TestNotifier_SkipsDirectWhenDisabled(t *testing.T) {
	h := newHarness(t, func(c *structures.Config) { c.Reassurance.UseDM = false })
	h.bind(t)

	assert.True(t, h.notifier.SendToProtected(context.Background(), models.Message{Title: "hi"}))
	assert.Empty(t, h.messenger.Direct)
	assert.Len(t, h.messenger.SentTo(controlID), 1)
}

func TestNotifier_NotifyControl(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	assert.False(t, h.notifier.NotifyControl(ctx, models.Message{Title: "x"}))

	h.bind(t)
	assert.True(t, h.notifier.NotifyControl(ctx, models.Message{Title: "x"}))

	h.messenger.ChannelErr = map[string]error{controlID: errors.New("forbidden")}
	assert.False(t, h.notifier.NotifyControl(ctx, models.Message{Title: "x"}))
	assert.Equal(t, []string{TargetControl, TargetControl + ":failed"}, h.metrics.Notifications)
}
