package model

import (
	"time"
)

// LeadFollowupTextMax caps the persisted follow-up text snapshot.
const LeadFollowupTextMax = 500

// Lead represents one contact within a workspace. The natural key is
// (workspace_id, phone) with phone already normalized; the surrogate id exists
// for foreign keys and dashboard routing only.
type Lead struct {
	ID             string     `json:"id" gorm:"column:id;primaryKey;type:text"`
	WorkspaceID    string     `json:"workspace_id" gorm:"column:workspace_id;uniqueIndex:idx_leads_workspace_phone;type:text" validate:"required"`
	Phone          string     `json:"phone" gorm:"column:phone;uniqueIndex:idx_leads_workspace_phone;type:text" validate:"required"`
	Name           string     `json:"name,omitempty" gorm:"column:name;type:text"`
	Status         LeadStatus `json:"status" gorm:"column:status;type:text;default:new"`
	Instance       string     `json:"instance,omitempty" gorm:"column:instance;type:text"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty" gorm:"column:last_message_at;index"`
	FollowupSentAt *time.Time `json:"followup_sent_at,omitempty" gorm:"column:followup_sent_at"`
	FollowupText   string     `json:"followup_text,omitempty" gorm:"column:followup_text;type:text"`
	CreatedAt      time.Time  `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Lead) TableName() string {
	return "leads"
}

// LeadActivityColumns are the only columns the ingestion engine may touch on an
// existing lead. Status is owned by the dashboard and stays out of this list.
func LeadActivityColumns() []string {
	return []string{"last_message_at", "name", "instance", "updated_at"}
}
