// Package events publishes ticket lifecycle events to the realtime layer.
// Frontend socket servers subscribe to the per-company redis channel and fan
// events out to their connected rooms.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Actions carried by TicketEvent.
const (
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionCreate = "create"
)

// TicketEvent is the payload pushed to the per-company channel. Rooms tells
// the socket layer which subscriptions should receive the event.
type TicketEvent struct {
	Action string   `json:"action"`
	Rooms  []string `json:"rooms"`
	Ticket any      `json:"ticket,omitempty"`
	Urgent *bool    `json:"urgent,omitempty"`
}

// Notifier delivers ticket events for one company.
type Notifier interface {
	NotifyTicket(ctx context.Context, companyID int64, event TicketEvent) error
}

// RedisNotifier publishes events over redis pub/sub. Channel names are
// "{prefix}{companyID}-ticket" so socket servers subscribe per tenant.
type RedisNotifier struct {
	client *redis.Client
	prefix string
}

func NewRedisNotifier(client *redis.Client, channelPrefix string) *RedisNotifier {
	return &RedisNotifier{client: client, prefix: channelPrefix}
}

func (n *RedisNotifier) NotifyTicket(ctx context.Context, companyID int64, event TicketEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket event: %w", err)
	}

	channel := fmt.Sprintf("%s%d-ticket", n.prefix, companyID)
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish ticket event: %w", err)
	}

	slog.DebugContext(ctx, "ticket event published",
		"channel", channel, "action", event.Action, "rooms", event.Rooms)
	return nil
}

// NopNotifier drops events. Used by the sweeper binary when realtime delivery
// is disabled and by tests.
type NopNotifier struct{}

func (NopNotifier) NotifyTicket(ctx context.Context, companyID int64, event TicketEvent) error {
	return nil
}
