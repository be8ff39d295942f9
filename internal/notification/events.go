package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/smartalerte/smartalerte/internal/mqtt"
)

// Alert event kinds published to MQTT.
const (
	EventTriggered = "triggered"
	EventResolved  = "resolved"
)

// AlertEvent is the JSON document published for each trigger.
type AlertEvent struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	AlertID        uint      `json:"alert_id"`
	AlertName      string    `json:"alert_name"`
	Severity       string    `json:"severity"`
	ProductID      uint      `json:"product_id"`
	ProductName    string    `json:"product_name"`
	SKU            string    `json:"sku"`
	NotificationID uint      `json:"notification_id"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// MQTTPublisher publishes alert events under <prefix>/<alert_id>/<kind>.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
}

// NewMQTTPublisher creates a publisher on top of an MQTT client. The client is
// connected lazily on first publish.
func NewMQTTPublisher(client mqtt.Client, topicPrefix string) *MQTTPublisher {
	prefix := strings.TrimRight(topicPrefix, "/")
	if prefix == "" {
		prefix = "smartalerte/alerts"
	}
	return &MQTTPublisher{client: client, prefix: prefix}
}

// Topic returns the topic an event is published to.
func (p *MQTTPublisher) Topic(event AlertEvent) string {
	return fmt.Sprintf("%s/%d/%s", p.prefix, event.AlertID, event.Kind)
}

// Publish serialises event and publishes it.
func (p *MQTTPublisher) Publish(ctx context.Context, event AlertEvent) error {
	if !p.client.IsConnected() {
		if err := p.client.Connect(ctx); err != nil {
			return err
		}
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode alert event: %w", err)
	}
	return p.client.Publish(ctx, p.Topic(event), string(payload))
}

// Close disconnects the underlying client.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect()
}
