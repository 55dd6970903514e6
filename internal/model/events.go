package model

import "time"

// EventType identifies a workflow event.
type EventType string

const (
	EventCustomerCreated       EventType = "customer.created"
	EventCustomerStatusChanged EventType = "customer.status_changed"
	EventAuditCompleted        EventType = "audit.completed"
)

// Event is a workflow notification fanned out to subscribers.
type Event struct {
	Type       EventType      `json:"type"`
	CustomerID string         `json:"customer_id"`
	JobID      string         `json:"job_id,omitempty"`
	Status     CustomerStatus `json:"status,omitempty"`
	Progress   int            `json:"progress,omitempty"`
	Message    string         `json:"message,omitempty"`
	ReportURL  string         `json:"report_url,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
