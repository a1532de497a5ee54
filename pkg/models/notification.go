package models

import "time"

// Notification is an outbound message to the configured recipients
type Notification struct {
	Subject    string   `json:"subject"`
	HTMLBody   string   `json:"html_body"`
	TextBody   string   `json:"text_body"`
	Recipients []string `json:"recipients"`
	Tags       []string `json:"tags,omitempty"`
}

// Delivery failure reasons
const (
	ReasonNoRecipients = "no_recipients"
	ReasonNoTransports = "no_transports"
	ReasonAllFailed    = "all_failed"
)

// DeliveryAttempt records one transport try
type DeliveryAttempt struct {
	Provider string    `json:"provider"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// DeliveryResult is the outcome of a notification dispatch
type DeliveryResult struct {
	Provider string            `json:"provider,omitempty"`
	Success  bool              `json:"success"`
	Reason   string            `json:"reason,omitempty"`
	Error    string            `json:"error,omitempty"`
	Attempts []DeliveryAttempt `json:"attempts,omitempty"`

	// Escalation is the SMS alert sent after every email transport failed
	Escalation *DeliveryAttempt `json:"escalation,omitempty"`
}

// PipelineResult collects the outcome of every stage of a webhook
type PipelineResult struct {
	CustomerID    string          `json:"customer_id"`
	Sync          UpsertResult    `json:"sync"`
	Notify        *DeliveryResult `json:"notify,omitempty"`
	NotifySkipped string          `json:"notify_skipped,omitempty"`
}

// Degraded reports whether any stage failed
func (r PipelineResult) Degraded() bool {
	if !r.Sync.Success {
		return true
	}
	return r.Notify != nil && !r.Notify.Success
}
