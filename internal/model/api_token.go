package model

import "time"

// ApiToken is a gateway credential scoped to one workspace. Rows are created
// during onboarding (out of band); this service only ever reads them, filtering
// on token, workspace and the active flag in the same query.
type ApiToken struct {
	Token       string    `json:"token" gorm:"column:token;primaryKey;type:text"`
	WorkspaceID string    `json:"workspace_id" gorm:"column:workspace_id;index;type:text"`
	Label       string    `json:"label,omitempty" gorm:"column:label;type:text"`
	IsActive    bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt   time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (ApiToken) TableName() string {
	return "api_tokens"
}
