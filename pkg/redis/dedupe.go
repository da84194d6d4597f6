package redis

import (
	"context"
	"time"
)

// Deduper drops repeated webhook deliveries of the same provider message.
// Markers expire after the configured TTL, which bounds the dedupe window to
// the provider's retry horizon.
type Deduper struct {
	client    *Client
	keyPrefix string
	ttl       time.Duration
}

// NewDeduper creates a new Deduper
func NewDeduper(client *Client, ttl time.Duration) *Deduper {
	return &Deduper{
		client:    client,
		keyPrefix: "seen:",
		ttl:       ttl,
	}
}

// FirstDelivery marks the (provider, messageID) pair as seen and reports
// whether this delivery is the first one. On Redis failure the error is
// returned and callers should process the message anyway: a duplicate send
// beats a dropped customer message.
func (d *Deduper) FirstDelivery(ctx context.Context, provider, messageID string) (bool, error) {
	key := d.keyPrefix + provider + ":" + messageID
	first, err := d.client.SetNX(ctx, key, 1, d.ttl)
	if err != nil {
		return true, err
	}
	if !first {
		d.client.logger.WithContext(ctx).WithFields(map[string]any{
			"provider":   provider,
			"message_id": messageID,
		}).Info("dropping duplicate webhook delivery")
	}
	return first, nil
}
