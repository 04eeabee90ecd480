package models

import "time"

// WebhookEventStatus is the processing status of an inbound gateway callback
type WebhookEventStatus string

const (
	WebhookStatusProcessing WebhookEventStatus = "processing"
	WebhookStatusProcessed  WebhookEventStatus = "processed"
	WebhookStatusIgnored    WebhookEventStatus = "ignored"
	WebhookStatusFailed     WebhookEventStatus = "failed"
)

// WebhookEvent is the durable record of a gateway callback, keyed by the
// gateway's event id. Rows are never deleted.
type WebhookEvent struct {
	ID           string             `json:"id" db:"id"`
	EventID      string             `json:"event_id" db:"event_id"`
	EventType    string             `json:"event_type" db:"event_type"`
	ResourceType *string            `json:"resource_type,omitempty" db:"resource_type"`
	ResourceID   *string            `json:"resource_id,omitempty" db:"resource_id"`
	Payload      string             `json:"payload" db:"payload"`
	Headers      JSONB              `json:"headers,omitempty" db:"headers"`
	Signature    string             `json:"-" db:"signature"`
	Livemode     bool               `json:"livemode" db:"livemode"`
	Status       WebhookEventStatus `json:"status" db:"status"`
	RetryCount   int                `json:"retry_count" db:"retry_count"`
	ErrorMessage *string            `json:"error_message,omitempty" db:"error_message"`
	SourceIP     *string            `json:"source_ip,omitempty" db:"source_ip"`
	UserAgent    *string            `json:"user_agent,omitempty" db:"user_agent"`
	ProcessedAt  *time.Time         `json:"processed_at,omitempty" db:"processed_at"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" db:"updated_at"`
}
