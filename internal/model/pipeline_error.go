package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Pipeline error severities. Unknown inputs coerce to WARNING.
const (
	SeverityCritical = "CRITICAL"
	SeverityWarning  = "WARNING"
	SeverityInfo     = "INFO"
)

// Length caps applied before persisting free-text fields.
const (
	PipelineErrorWorkflowMax = 200
	PipelineErrorExecIDMax   = 100
	PipelineErrorMessageMax  = 2000
)

// ParseSeverity coerces a free-form severity to a known value.
func ParseSeverity(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityInfo:
		return SeverityInfo
	default:
		return SeverityWarning
	}
}

// PipelineError records a failure reported by an automation workflow. Writes
// here are best-effort observability; a failed insert never propagates to the
// reporting caller.
type PipelineError struct {
	ID           string         `json:"id" gorm:"column:id;primaryKey;type:text"`
	WorkspaceID  string         `json:"workspace_id" gorm:"column:workspace_id;index;type:text"`
	Severity     string         `json:"severity" gorm:"column:severity;type:text;default:WARNING"`
	Workflow     string         `json:"workflow" gorm:"column:workflow;type:text"`
	ExecID       string         `json:"exec_id,omitempty" gorm:"column:exec_id;type:text"`
	ErrorMessage string         `json:"error_message" gorm:"column:error_message;type:text"`
	LeadID       *string        `json:"lead_id,omitempty" gorm:"column:lead_id;type:text"`
	Retryable    bool           `json:"is_retryable" gorm:"column:is_retryable"`
	Resolved     bool           `json:"resolved" gorm:"column:resolved;index"`
	ResolvedAt   *time.Time     `json:"resolved_at,omitempty" gorm:"column:resolved_at"`
	Details      datatypes.JSON `json:"details,omitempty" gorm:"type:jsonb;column:details"`
	CreatedAt    time.Time      `json:"created_at,omitempty" gorm:"column:created_at;index"`
}

// TableName specifies the table name for GORM.
func (PipelineError) TableName() string {
	return "pipeline_errors"
}
