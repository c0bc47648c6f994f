package perimeter

import (
	"context"
	"perimeterd/internal/models"
	"perimeterd/internal/providers"
	"perimeterd/internal/store"
	"perimeterd/internal/structures"
)

const (
	TargetControl = "control"
	TargetDirect  = "direct"
	TargetChannel = "fallback"
)

// NotifierInterface delivers best-effort messages. Every send reports
// whether it landed; none of them return errors.
type NotifierInterface interface {
	NotifyControl(ctx context.Context, msg models.Message) bool
	SendToProtected(ctx context.Context, msg models.Message) bool
	SetActivity(ctx context.Context, label string)
}

type Notifier struct {
	conf      *structures.Config
	store     store.StoreInterface
	messenger Messenger
	logger    providers.Logger
	metrics   providers.MetricsProviderInterface
}

func (n *Notifier) NotifyControl(ctx context.Context, msg models.Message) bool {
	channelID := n.store.Binding().ControlChannelID
	if channelID == "" {
		return false
	}
	err := n.messenger.SendChannel(ctx, channelID, msg)
	n.metrics.IncNotifications(TargetControl, err == nil)
	if err != nil {
		n.logger.Warnf(providers.TypeApp, "Control notification %q not delivered: %v", msg.Title, err)
		return false
	}
	return true
}

// SendToProtected tries a direct message first (when enabled), then the
// fallback channel, then the control channel with a mention. It drops the
// message when nothing is reachable.
func (n *Notifier) SendToProtected(ctx context.Context, msg models.Message) bool {
	userID := n.store.Protected().UserID
	if userID == "" {
		return false
	}

	if n.conf.Reassurance.UseDM {
		err := n.messenger.SendDirect(ctx, userID, msg)
		n.metrics.IncNotifications(TargetDirect, err == nil)
		if err == nil {
			return true
		}
		n.logger.Debugf(providers.TypeReassure, "Direct message to %s failed, falling back: %v", userID, err)
	}

	msg.Mention = userID
	binding := n.store.Binding()
	fallback := n.conf.Reassurance.FallbackChannelID
	if fallback == "" {
		fallback = binding.FallbackChannelID
	}
	channels := []string{fallback, binding.ControlChannelID}
	for i, channelID := range channels {
		if channelID == "" {
			continue
		}
		if i > 0 && channelID == channels[0] {
			break
		}
		err := n.messenger.SendChannel(ctx, channelID, msg)
		n.metrics.IncNotifications(TargetChannel, err == nil)
		if err == nil {
			return true
		}
		n.logger.Debugf(providers.TypeReassure, "Channel %s unreachable for %s: %v", channelID, userID, err)
	}

	n.logger.Warnf(providers.TypeReassure, "Dropped message %q for %s: no reachable target", msg.Title, userID)
	return false
}

func (n *Notifier) SetActivity(ctx context.Context, label string) {
	if err := n.messenger.SetActivity(ctx, label); err != nil {
		n.logger.Debugf(providers.TypeApp, "Failed to set activity %q: %v", label, err)
	}
}

func NewNotifier(
	conf *structures.Config,
	st store.StoreInterface,
	messenger Messenger,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) NotifierInterface {
	return &Notifier{
		conf:      conf,
		store:     st,
		messenger: messenger,
		logger:    logger,
		metrics:   metrics,
	}
}
