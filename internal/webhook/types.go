package webhook

import (
	"time"

	"github.com/feral-file/ff-drug-registry/internal/domain"
)

// Delivery headers
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEventID   = "X-Webhook-Event-ID"
	HeaderEventType = "X-Webhook-Event-Type"
	HeaderTimestamp = "X-Webhook-Timestamp"
)

// WebhookEvent represents a webhook event to be delivered to clients
type WebhookEvent struct {
	// EventID is the registration event's ULID; receivers deduplicate on it
	EventID string `json:"event_id"`
	// EventType is always domain.EventTypeDrugRegistered for now
	EventType string `json:"event_type"`
	// Timestamp is when the delivery was generated
	Timestamp time.Time `json:"timestamp"`
	// Data is the sealed registration event
	Data domain.RegistrationEvent `json:"data"`
}

// NewRegistrationEvent wraps a registration event for delivery
func NewRegistrationEvent(ev domain.RegistrationEvent, now time.Time) WebhookEvent {
	return WebhookEvent{
		EventID:   ev.EventID,
		EventType: domain.EventTypeDrugRegistered,
		Timestamp: now.UTC(),
		Data:      ev,
	}
}
