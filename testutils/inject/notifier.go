package inject

import (
	"context"

	"github.com/edgewatch/zonefilter/notify"
)

// Notifier is an injected notifier.
type Notifier struct {
	notify.Notifier
	NameFunc             func() string
	SendNotificationFunc func(ctx context.Context, notification notify.Notification) error
}

// Name calls the injected Name or the real version.
func (n *Notifier) Name() string {
	if n.NameFunc == nil {
		return n.Notifier.Name()
	}
	return n.NameFunc()
}

// SendNotification calls the injected SendNotification or the real version.
func (n *Notifier) SendNotification(ctx context.Context, notification notify.Notification) error {
	if n.SendNotificationFunc == nil {
		return n.Notifier.SendNotification(ctx, notification)
	}
	return n.SendNotificationFunc(ctx, notification)
}
