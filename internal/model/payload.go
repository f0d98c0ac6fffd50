package model

import "time"

// LeadDescriptor is the lead half of a gateway event. The gateway emits the
// phone under several field names depending on workflow version; PhoneRaw
// collapses them.
type LeadDescriptor struct {
	Phone    string `json:"phone,omitempty"`
	Number   string `json:"number,omitempty"`
	WhatsApp string `json:"whatsapp,omitempty"`
	Name     string `json:"name,omitempty"`
	Status   string `json:"status,omitempty"`
}

// PhoneRaw returns the first populated phone alias.
func (d LeadDescriptor) PhoneRaw() string {
	if d.Phone != "" {
		return d.Phone
	}
	if d.Number != "" {
		return d.Number
	}
	return d.WhatsApp
}

// MessageDescriptor is the message half of a gateway event.
type MessageDescriptor struct {
	Body       string     `json:"body,omitempty"`
	Text       string     `json:"text,omitempty"`
	Direction  string     `json:"direction,omitempty"`
	Type       string     `json:"type,omitempty"`
	ExternalID string     `json:"external_id,omitempty"`
	MediaURL   string     `json:"media_url,omitempty"`
	Instance   string     `json:"instance,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// InboundEventPayload is one tenant-scoped conversational event from the
// automation gateway. Top-level body/text/instance are legacy aliases kept for
// older workflow versions.
type InboundEventPayload struct {
	Lead     LeadDescriptor    `json:"lead"`
	Message  MessageDescriptor `json:"message"`
	Body     string            `json:"body,omitempty"`
	Text     string            `json:"text,omitempty"`
	Instance string            `json:"instance,omitempty"`
}

// BodyRaw returns the first populated body alias.
func (p InboundEventPayload) BodyRaw() string {
	if p.Message.Body != "" {
		return p.Message.Body
	}
	if p.Message.Text != "" {
		return p.Message.Text
	}
	if p.Body != "" {
		return p.Body
	}
	return p.Text
}

// InstanceRaw returns the source-instance label, preferring the message-level
// field.
func (p InboundEventPayload) InstanceRaw() string {
	if p.Message.Instance != "" {
		return p.Message.Instance
	}
	return p.Instance
}

// StatusUpdatePayload is a delivery/read receipt from the gateway.
type StatusUpdatePayload struct {
	ExternalID string     `json:"external_id" validate:"required"`
	Status     string     `json:"status,omitempty"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

// ErrorReportPayload is a failure report from an automation workflow.
type ErrorReportPayload struct {
	Severity     string     `json:"severity,omitempty"`
	Workflow     string     `json:"workflow,omitempty"`
	ExecID       string     `json:"exec_id,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	WorkspaceID  string     `json:"workspace_id,omitempty"`
	LeadID       *string    `json:"lead_id,omitempty"`
	IsRetryable  bool       `json:"is_retryable,omitempty"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
}

// FollowupPayload marks a follow-up as sent for a lead.
type FollowupPayload struct {
	FollowupSentAt *time.Time `json:"followup_sent_at,omitempty"`
	FollowupText   string     `json:"followup_text,omitempty"`
}
