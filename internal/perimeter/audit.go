package perimeter

import (
	"context"
	"fmt"
	"perimeterd/internal/models"
	"perimeterd/internal/providers"
	"perimeterd/internal/store"
	"perimeterd/internal/structures"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Audit reasons double as the metrics label, keep the set small.
const (
	ReasonWrongGuild   = "wrong_guild"
	ReasonWrongChannel = "wrong_channel"
	ReasonWrongVoice   = "wrong_voice_channel"
	ReasonManualPanic  = "manual_panic"
	ReasonAutoPanic    = "auto_panic"
	ReasonBlockedTrack = "blocked_track"
)

type AuditorInterface interface {
	Record(ctx context.Context, event models.AuditEvent) models.AuditEvent
}

// Auditor fans a security event out to the process log, metrics, the event
// bus and the audit channel. Delivery failures are logged and never returned.
type Auditor struct {
	conf      *structures.Config
	store     store.StoreInterface
	messenger Messenger
	logger    providers.Logger
	metrics   providers.MetricsProviderInterface
	events    providers.EventPublisherInterface
	now       func() time.Time
}

func (a *Auditor) Record(ctx context.Context, event models.AuditEvent) models.AuditEvent {
	if event.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			a.logger.Errorf(providers.TypeSecurity, "Failed to generate audit id: %v", err)
		}
		event.ID = id
	}
	if event.At.IsZero() {
		event.At = a.now()
	}

	a.logger.Warnf(providers.TypeSecurity, "[%s] %s %s | actor=%s guild=%s channel=%s",
		event.ID, event.Reason, event.Detail, event.ActorID, event.GuildID, event.ChannelID)
	a.metrics.IncAuditEvents(event.Reason)

	if err := a.events.Publish(ctx, providers.TopicAudit, event); err != nil {
		a.logger.Warnf(providers.TypeSecurity, "Failed to publish audit event %s: %v", event.ID, err)
	}

	channelID := a.store.Binding().AuditChannelID
	if channelID == "" {
		channelID = a.conf.Perimeter.AuditChannelID
	}
	if channelID == "" {
		return event
	}

	msg := models.Message{
		Title:  "Security",
		Body:   auditBody(event),
		Footer: event.ID,
		Tone:   models.ToneWarning,
	}
	if err := a.messenger.SendChannel(ctx, channelID, msg); err != nil {
		a.logger.Warnf(providers.TypeSecurity, "Failed to deliver audit event %s to %s: %v", event.ID, channelID, err)
	}
	return event
}

func auditBody(event models.AuditEvent) string {
	body := event.Reason
	if event.Detail != "" {
		body = fmt.Sprintf("%s: %s", event.Reason, event.Detail)
	}
	if event.ActorID != "" {
		body += fmt.Sprintf("\nactor: <@%s>", event.ActorID)
	}
	if event.ChannelID != "" {
		body += fmt.Sprintf("\nchannel: %s", event.ChannelID)
	}
	return body
}

func NewAuditor(
	conf *structures.Config,
	st store.StoreInterface,
	messenger Messenger,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
	events providers.EventPublisherInterface,
) AuditorInterface {
	return &Auditor{
		conf:      conf,
		store:     st,
		messenger: messenger,
		logger:    logger,
		metrics:   metrics,
		events:    events,
		now:       time.Now,
	}
}
