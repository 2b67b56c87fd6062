package notify

import (
	"context"
	"encoding/json"
	"io"

	"github.com/SherClockHolmes/webpush-go"
	kafkax "github.com/ariefcatur/hackathon-hardware-desk/internal/kafka"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/metrics"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/orders"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/subscriptions"
	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"
)

const defaultTTL = 24 * 60 * 60

// Pusher sends Web Push messages signed with the server's VAPID key pair.
type Pusher struct {
	Subs            *subscriptions.Store
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subscriber is the contact address sent in the VAPID claims, without "mailto:".
	Subscriber string
	TTL        int
	// Client overrides the HTTP client, mainly for tests.
	Client webpush.HTTPClient
}

// Deliver pushes the status change to the order's registered browser.
// Orders without a subscription are skipped. A subscription the push
// service reports as gone (404/410) is removed and not treated as an error.
func (p *Pusher) Deliver(ctx context.Context, orderID string, status orders.Status, note string) error {
	sub, ok := p.Subs.Get(orderID)
	if !ok {
		metrics.Notifications.WithLabelValues("skipped").Inc()
		zlog.Debug().Str("order_id", orderID).Msg("no push subscription")
		return nil
	}

	var ws webpush.Subscription
	if err := json.Unmarshal(sub.Subscription, &ws); err != nil || ws.Endpoint == "" {
		metrics.Notifications.WithLabelValues("failed").Inc()
		if err == nil {
			err = errors.New("missing endpoint")
		}
		return errors.Wrapf(err, "order %s: unusable push subscription", orderID)
	}

	ttl := p.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	resp, err := webpush.SendNotificationWithContext(ctx, kafkax.MustMarshal(NewMessage(orderID, status, note)), &ws, &webpush.Options{
		HTTPClient:      p.Client,
		Subscriber:      p.Subscriber,
		VAPIDPublicKey:  p.VAPIDPublicKey,
		VAPIDPrivateKey: p.VAPIDPrivateKey,
		TTL:             ttl,
	})
	if err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		return errors.Wrapf(err, "order %s: send push", orderID)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == 404 || resp.StatusCode == 410:
		metrics.Notifications.WithLabelValues("gone").Inc()
		zlog.Info().Str("order_id", orderID).Int("status_code", resp.StatusCode).Msg("push subscription expired, removing")
		if err := p.Subs.Delete(ctx, orderID); err != nil {
			zlog.Warn().Err(err).Str("order_id", orderID).Msg("remove expired subscription")
		}
		return nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		metrics.Notifications.WithLabelValues("failed").Inc()
		return errors.Errorf("order %s: push service answered %d", orderID, resp.StatusCode)
	}

	metrics.Notifications.WithLabelValues("sent").Inc()
	zlog.Info().Str("order_id", orderID).Str("status", string(status)).Msg("push sent")
	return nil
}
