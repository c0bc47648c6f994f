package perimeter

import (
	"context"
	"perimeterd/internal/models"
	"perimeterd/internal/providers"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditor_RecordFansOut(t *testing.T) {
	h := newHarness(t)
	h.bind(t)

	ev := h.auditor.Record(context.Background(), models.AuditEvent{
		Reason:    ReasonWrongChannel,
		Detail:    "command search",
		ActorID:   operator,
		GuildID:   guildID,
		ChannelID: "general",
	})

	assert.Len(t, ev.ID, 21)
	assert.Equal(t, h.clock.Now(), ev.At)
	assert.Equal(t, 1, h.logger.CountType(providers.TypeSecurity))
	require.Len(t, h.events.Events, 1)
	assert.Equal(t, ev, h.events.Events[0].Event)

	sent := h.messenger.SentTo(auditID)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "command search")
	assert.Equal(t, ev.ID, sent[0].Footer)
}

func TestAuditor_BindingChannelOverridesConfig(t *testing.T) {
	h := newHarness(t)
	h.bind(t)
	require.NoError(t, h.store.SetBinding(models.PerimeterBinding{Bound: true, GuildID: guildID, AuditChannelID: "bound-audit"}))

	h.auditor.Record(context.Background(), models.AuditEvent{Reason: ReasonWrongGuild})

	assert.Len(t, h.messenger.SentTo("bound-audit"), 1)
	assert.Empty(t, h.messenger.SentTo(auditID))
}

func TestAuditor_NoChannelConfigured(t *testing.T) {
	h := newHarness(t)
	h.conf.Perimeter.AuditChannelID = ""

	h.auditor.Record(context.Background(), models.AuditEvent{Reason: ReasonWrongGuild})

	assert.Empty(t, h.messenger.Channel)
	assert.Equal(t, []string{ReasonWrongGuild}, h.metrics.AuditReasons)
}
