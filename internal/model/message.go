package model

import (
	"time"

	"gorm.io/datatypes"
)

// Message represents one conversational turn tied to a lead. When the gateway
// supplies an external id, (workspace_id, external_id) is the idempotency key:
// replays of the same event must resolve to the same row.
type Message struct {
	ID             string         `json:"id" gorm:"column:id;primaryKey;type:text"`
	WorkspaceID    string         `json:"workspace_id" gorm:"column:workspace_id;uniqueIndex:idx_messages_workspace_external;type:text" validate:"required"`
	LeadID         string         `json:"lead_id" gorm:"column:lead_id;index;type:text" validate:"required"`
	Direction      string         `json:"direction" gorm:"column:direction;type:text" validate:"required,oneof=in out"`
	Body           string         `json:"body" gorm:"column:body;type:text"`
	MessageType    string         `json:"type,omitempty" gorm:"column:message_type;type:text"`
	ExternalID     *string        `json:"external_id,omitempty" gorm:"column:external_id;uniqueIndex:idx_messages_workspace_external;type:text"`
	Status         MessageStatus  `json:"status,omitempty" gorm:"column:status;type:text"`
	MediaURL       string         `json:"media_url,omitempty" gorm:"column:media_url;type:text"`
	Instance       string         `json:"instance,omitempty" gorm:"column:instance;type:text"`
	EventTimestamp *time.Time     `json:"event_timestamp,omitempty" gorm:"column:event_timestamp"`
	ReadAt         *time.Time     `json:"read_at,omitempty" gorm:"column:read_at"`
	LastEvent      datatypes.JSON `json:"last_event,omitempty" gorm:"type:jsonb;column:last_event"`
	CreatedAt      time.Time      `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Message) TableName() string {
	return "messages"
}

// MessageMandatoryColumns is the reduced column set used by the schema-drift
// fallback insert. Body and direction are immutable after creation, so this set
// never grows status or media fields.
func MessageMandatoryColumns() []string {
	return []string{"id", "workspace_id", "lead_id", "direction", "body", "created_at", "updated_at"}
}

// MessageStatusColumns are the only columns the reconciler may update.
func MessageStatusColumns() []string {
	return []string{"status", "read_at", "last_event", "updated_at"}
}
