package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/apperrors"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/observer"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/tenant"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/validator"
	"gitlab.com/zapfunil/api/crm-inbound-engine/pkg/logger"
	"gitlab.com/zapfunil/api/crm-inbound-engine/pkg/phone"
	"gitlab.com/zapfunil/api/crm-inbound-engine/pkg/utils"
)

// IngestEvent processes one conversational event: find-or-create the lead by
// normalized phone, insert the message idempotently on external id, and bump
// the lead's activity marker only when a fresh row landed. Replays resolve
// with Duplicate=true and never write twice.
func (s *Service) IngestEvent(ctx context.Context, payload *model.InboundEventPayload) (*IngestResult, error) {
	start := time.Now()
	workspaceID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, apperrors.NewAPI(apperrors.CodeInternal, http.StatusInternalServerError, err)
	}
	observer.IncEventsReceived("inbound", workspaceID)

	result, err := s.ingestEvent(ctx, workspaceID, payload)
	if err != nil {
		observer.IncEventsFailed("inbound", workspaceID)
		return nil, err
	}

	if result.Duplicate {
		observer.IncDuplicateEvents("inbound", workspaceID)
	} else {
		observer.IncEventsProcessed("inbound", workspaceID)
	}
	observer.ObserveEventProcessingDuration("inbound", workspaceID, time.Since(start))
	return result, nil
}

func (s *Service) ingestEvent(ctx context.Context, workspaceID string, payload *model.InboundEventPayload) (*IngestResult, error) {
	log := logger.FromContext(ctx)

	phoneKey := phone.Normalize(payload.Lead.PhoneRaw())
	if phoneKey == "" {
		return nil, apperrors.NewAPI(apperrors.CodeMissingLeadPhone, http.StatusBadRequest,
			apperrors.ErrValidation)
	}
	body := payload.BodyRaw()
	if body == "" {
		return nil, apperrors.NewAPI(apperrors.CodeMissingMessageBody, http.StatusBadRequest,
			apperrors.ErrValidation)
	}
	instance := payload.InstanceRaw()

	lead, created, err := s.findOrCreateLead(ctx, workspaceID, phoneKey, payload.Lead, instance)
	if err != nil {
		return nil, err
	}
	if lead.ID == "" {
		return nil, apperrors.NewAPI(apperrors.CodeLeadIDMissing, http.StatusInternalServerError,
			fmt.Errorf("lead row for phone %s has no id", phoneKey))
	}

	// Idempotency gate: a replayed external id means the event already landed.
	var externalID *string
	if payload.Message.ExternalID != "" {
		id := payload.Message.ExternalID
		externalID = &id
		existing, findErr := s.messages.FindByExternalID(ctx, id)
		if findErr == nil {
			log.Info("Duplicate event skipped",
				zap.String("external_id", id),
				zap.String("message_id", existing.ID),
			)
			return &IngestResult{Lead: lead, Message: existing, LeadCreated: created, Duplicate: true}, nil
		}
		if !errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, storeFailure(apperrors.CodeMessageLookupFailed, findErr)
		}
	}

	direction := model.ParseDirection(payload.Message.Direction)
	msg := &model.Message{
		ID:             uuid.NewString(),
		WorkspaceID:    workspaceID,
		ExternalID:     externalID,
		LeadID:         lead.ID,
		Direction:      direction,
		Body:           body,
		MessageType:    messageType(payload.Message.Type),
		MediaURL:       payload.Message.MediaURL,
		Instance:       instance,
		EventTimestamp: payload.Message.Timestamp,
		LastEvent:      datatypes.JSON(utils.MustMarshalJSON(payload)),
	}
	if direction == model.DirectionOut {
		msg.Status = model.MessageStatusSent
	}

	if err := validator.Validate(msg); err != nil {
		return nil, apperrors.NewAPI(apperrors.CodeMessageInsert, http.StatusInternalServerError,
			fmt.Errorf("%w: %w", apperrors.ErrValidation, err))
	}

	reduced, err := s.messages.Insert(ctx, msg)
	if err != nil {
		// Unique-index race on external id; another delivery of the same
		// event won. Treat exactly like the lookup-path duplicate.
		if errors.Is(err, apperrors.ErrDuplicate) && externalID != nil {
			existing, findErr := s.messages.FindByExternalID(ctx, *externalID)
			if findErr == nil {
				return &IngestResult{Lead: lead, Message: existing, LeadCreated: created, Duplicate: true}, nil
			}
		}
		return nil, storeFailure(apperrors.CodeMessageInsert, err)
	}
	if reduced {
		log.Warn("Message persisted with mandatory columns only", zap.String("message_id", msg.ID))
	}

	activityAt := time.Now().UTC()
	if msg.EventTimestamp != nil {
		activityAt = msg.EventTimestamp.UTC()
	}
	if err := s.leads.UpdateActivity(ctx, lead.ID, activityAt, payload.Lead.Name, instance); err != nil {
		// The message is durable; a failed activity bump degrades ordering in
		// the dashboard but must not fail the event.
		log.Warn("Lead activity update failed after message insert",
			zap.String("lead_id", lead.ID),
			zap.Error(err),
		)
	}

	return &IngestResult{Lead: lead, Message: msg, LeadCreated: created, Reduced: reduced}, nil
}

// findOrCreateLead resolves the lead for a normalized phone key, creating it
// when absent. A concurrent create losing the unique-index race falls back to
// re-reading the winner's row, so both deliveries converge on one lead.
func (s *Service) findOrCreateLead(ctx context.Context, workspaceID, phoneKey string, desc model.LeadDescriptor, instance string) (*model.Lead, bool, error) {
	lead, err := s.leads.FindByPhone(ctx, phoneKey)
	if err == nil {
		return lead, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, storeFailure(apperrors.CodeLeadLookupFailed, err)
	}

	fresh := &model.Lead{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Phone:       phoneKey,
		Name:        desc.Name,
		Status:      model.ParseLeadStatus(desc.Status),
		Instance:    instance,
	}
	createErr := s.leads.Create(ctx, fresh)
	if createErr == nil {
		return fresh, true, nil
	}
	if errors.Is(createErr, apperrors.ErrDuplicate) {
		winner, findErr := s.leads.FindByPhone(ctx, phoneKey)
		if findErr == nil {
			return winner, false, nil
		}
		return nil, false, storeFailure(apperrors.CodeLeadLookupFailed, findErr)
	}
	return nil, false, storeFailure(apperrors.CodeLeadInsertFailed, createErr)
}

func messageType(raw string) string {
	if raw == "" {
		return "text"
	}
	return raw
}
