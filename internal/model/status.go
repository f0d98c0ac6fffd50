package model

import "strings"

// LeadStatus is the closed pipeline-stage enumeration for a lead. It is the
// single source of truth for stage semantics; any UI-facing vocabulary is a
// presentation concern mapped outside this service.
type LeadStatus string

const (
	LeadStatusNew        LeadStatus = "new"
	LeadStatusInProgress LeadStatus = "in_progress"
	LeadStatusQualified  LeadStatus = "qualified"
	LeadStatusScheduled  LeadStatus = "scheduled"
	LeadStatusClosed     LeadStatus = "closed"
	LeadStatusLost       LeadStatus = "lost"
)

// AllLeadStatuses lists every valid lead status.
var AllLeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusInProgress,
	LeadStatusQualified,
	LeadStatusScheduled,
	LeadStatusClosed,
	LeadStatusLost,
}

// OpenLeadStatuses are the stages still eligible for automated follow-up.
var OpenLeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusInProgress,
	LeadStatusQualified,
	LeadStatusScheduled,
}

// Valid reports whether s is a member of the enumeration.
func (s LeadStatus) Valid() bool {
	for _, known := range AllLeadStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseLeadStatus coerces a free-form input to a member of the enumeration.
// Unknown or empty inputs coerce to LeadStatusNew; this is the only place that
// policy lives.
func ParseLeadStatus(raw string) LeadStatus {
	s := LeadStatus(strings.ToLower(strings.TrimSpace(raw)))
	if s.Valid() {
		return s
	}
	return LeadStatusNew
}

// MessageStatus tracks outbound delivery state. Transitions are forward-only:
// sent -> delivered -> read, with failed terminal and reachable from any
// non-terminal state. Inbound messages carry no status.
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

var messageStatusRank = map[MessageStatus]int{
	MessageStatusSent:      1,
	MessageStatusDelivered: 2,
	MessageStatusRead:      3,
}

// ParseMessageStatus validates a receipt status from the wire.
func ParseMessageStatus(raw string) (MessageStatus, bool) {
	s := MessageStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case MessageStatusSent, MessageStatusDelivered, MessageStatusRead, MessageStatusFailed:
		return s, true
	}
	return "", false
}

// Terminal reports whether no further transition is allowed from s.
func (s MessageStatus) Terminal() bool {
	return s == MessageStatusRead || s == MessageStatusFailed
}

// AtOrPast reports whether a message currently at s has already reached target,
// meaning a receipt for target must be treated as a no-op rather than a
// regression.
func (s MessageStatus) AtOrPast(target MessageStatus) bool {
	if s == "" {
		return false
	}
	if s.Terminal() {
		// read and failed are terminal; nothing applies after either
		return true
	}
	if target == MessageStatusFailed {
		return false
	}
	return messageStatusRank[s] >= messageStatusRank[target]
}

// Message direction constants, fixed two-value enum on the wire.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// ParseDirection coerces a direction input; anything other than "out" is "in",
// matching the gateway contract.
func ParseDirection(raw string) string {
	if strings.ToLower(strings.TrimSpace(raw)) == DirectionOut {
		return DirectionOut
	}
	return DirectionIn
}
