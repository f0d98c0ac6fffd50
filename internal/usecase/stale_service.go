package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/apperrors"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/tenant"
	"gitlab.com/zapfunil/api/crm-inbound-engine/pkg/phone"
	"gitlab.com/zapfunil/api/crm-inbound-engine/pkg/utils"
)

// StaleQuery carries the raw scan parameters as the scheduler sent them.
// Zero values mean "use the configured default".
type StaleQuery struct {
	StatusCSV string
	Minutes   int
	Limit     int
}

// FindStaleLeads returns leads in the requested statuses that have had neither
// inbound activity nor a follow-up within the threshold window. A lead already
// followed up inside the window is not stale even when the contact stays
// silent, which is what stops repeated follow-ups to the same lead.
func (s *Service) FindStaleLeads(ctx context.Context, query StaleQuery) (*StaleScanResult, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, apperrors.NewAPI(apperrors.CodeInternal, http.StatusInternalServerError, err)
	}

	statuses, err := parseStatusFilter(query.StatusCSV)
	if err != nil {
		return nil, err
	}

	minutes := query.Minutes
	if minutes <= 0 {
		minutes = s.staleDefaultMinutes
	}
	limit := query.Limit
	if limit <= 0 {
		limit = s.staleDefaultLimit
	}
	if limit > s.staleMaxLimit {
		limit = s.staleMaxLimit
	}
	threshold := time.Now().UTC().Add(-time.Duration(minutes) * time.Minute)

	leads, err := s.leads.FindStale(ctx, statuses, threshold, limit)
	if err != nil {
		return nil, storeFailure(apperrors.CodeStaleLeadsFetch, err)
	}

	views := make([]StaleLeadView, 0, len(leads))
	for _, lead := range leads {
		views = append(views, StaleLeadView{
			Lead:         lead,
			PhoneDisplay: phone.Display(lead.Phone),
		})
	}
	return &StaleScanResult{
		Leads:        views,
		StaleMinutes: minutes,
		Threshold:    threshold,
	}, nil
}

// parseStatusFilter narrows a comma-separated status list to known stages.
// Unknown tokens are dropped; the request only fails when nothing valid
// remains. Empty input falls back to the open stages.
func parseStatusFilter(csv string) ([]model.LeadStatus, error) {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return model.OpenLeadStatuses, nil
	}

	var statuses []model.LeadStatus
	for _, token := range strings.Split(csv, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		status := model.LeadStatus(strings.ToLower(token))
		if status.Valid() {
			statuses = append(statuses, status)
		}
	}
	if len(statuses) == 0 {
		return nil, apperrors.NewAPI(apperrors.CodeInvalidStatusFilter, http.StatusBadRequest,
			fmt.Errorf("%w: no valid status in %q", apperrors.ErrValidation, csv))
	}
	return statuses, nil
}

// MarkFollowupSent records that the scheduler sent a follow-up to a lead. The
// text snapshot is capped; the timestamp defaults to now.
func (s *Service) MarkFollowupSent(ctx context.Context, leadID string, payload *model.FollowupPayload) (*model.Lead, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, apperrors.NewAPI(apperrors.CodeInternal, http.StatusInternalServerError, err)
	}

	leadID = strings.TrimSpace(leadID)
	if leadID == "" {
		return nil, apperrors.NewAPI(apperrors.CodeMissingLeadID, http.StatusBadRequest,
			apperrors.ErrValidation)
	}

	sentAt := time.Now().UTC()
	if payload.FollowupSentAt != nil {
		sentAt = payload.FollowupSentAt.UTC()
	}
	text := utils.TruncateString(payload.FollowupText, model.LeadFollowupTextMax)

	if err := s.leads.MarkFollowupSent(ctx, leadID, sentAt, text); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewAPI(apperrors.CodeLeadNotFound, http.StatusNotFound, err)
		}
		return nil, storeFailure(apperrors.CodeFollowupUpdate, err)
	}

	lead, err := s.leads.FindByID(ctx, leadID)
	if err != nil {
		return nil, storeFailure(apperrors.CodeFollowupUpdate, err)
	}
	return lead, nil
}
