// Package usecase holds the engine's business rules: event ingestion,
// delivery-status reconciliation, stale-lead scanning and pipeline error
// intake. Transport and persistence stay out; everything here works against
// the storage interfaces.
package usecase

import (
	"net/http"
	"time"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/apperrors"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/config"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/storage"
)

// storeFailure maps a repository error to its transport shape. Store trouble
// that survived the retry policy stays retryable and answers 503 so the
// gateway redelivers; everything else is fatal and answers 500.
func storeFailure(code string, err error) error {
	if apperrors.IsDatabaseError(err) {
		return apperrors.NewAPI(code, http.StatusServiceUnavailable,
			apperrors.NewRetryable(err, "store operation failed"))
	}
	return apperrors.NewAPI(code, http.StatusInternalServerError,
		apperrors.NewFatal(err, "store operation failed"))
}

// Service wires the repositories and the error sink behind the engine's
// operations.
type Service struct {
	leads    storage.LeadRepo
	messages storage.MessageRepo
	reports  storage.PipelineErrorRepo
	sink     *ErrorSink

	staleDefaultMinutes int
	staleDefaultLimit   int
	staleMaxLimit       int
}

// NewService constructs the engine service. sink may be nil in tests; Report
// then persists synchronously.
func NewService(
	leads storage.LeadRepo,
	messages storage.MessageRepo,
	reports storage.PipelineErrorRepo,
	sink *ErrorSink,
	cfg *config.Config,
) *Service {
	s := &Service{
		leads:               leads,
		messages:            messages,
		reports:             reports,
		sink:                sink,
		staleDefaultMinutes: cfg.Stale.DefaultMinutes,
		staleDefaultLimit:   cfg.Stale.DefaultLimit,
		staleMaxLimit:       cfg.Stale.MaxLimit,
	}
	if s.staleDefaultMinutes <= 0 {
		s.staleDefaultMinutes = 60
	}
	if s.staleDefaultLimit <= 0 {
		s.staleDefaultLimit = 30
	}
	if s.staleMaxLimit <= 0 {
		s.staleMaxLimit = 100
	}
	return s
}


// IngestResult reports what one inbound event did to the store.
type IngestResult struct {
	Lead        *model.Lead    `json:"lead"`
	Message     *model.Message `json:"message"`
	LeadCreated bool           `json:"lead_created"`
	Duplicate   bool           `json:"duplicate"`
	Reduced     bool           `json:"reduced,omitempty"`
}

// Receipt outcomes. Out-of-order and unknown-message receipts resolve
// successfully with a non-applied outcome instead of erroring, so gateway
// retries stay quiet.
const (
	ReceiptApplied         = "updated"
	ReceiptAlreadyApplied  = "already_applied"
	ReceiptMessageNotFound = "message_not_found"
)

// ReceiptResult reports how a delivery receipt was handled.
type ReceiptResult struct {
	Outcome string         `json:"result"`
	Message *model.Message `json:"message,omitempty"`
}

// StaleLeadView is one stale-scan hit enriched for the follow-up scheduler.
type StaleLeadView struct {
	model.Lead
	PhoneDisplay string `json:"phone_display"`
}

// StaleScanResult pairs the scan hits with the effective window the query
// actually ran with, so the transport echoes the real threshold.
type StaleScanResult struct {
	Leads        []StaleLeadView
	StaleMinutes int
	Threshold    time.Time
}
