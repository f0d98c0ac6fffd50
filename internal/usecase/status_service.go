package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/apperrors"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/observer"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/tenant"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/validator"
	"gitlab.com/zapfunil/api/crm-inbound-engine/pkg/logger"
	"gitlab.com/zapfunil/api/crm-inbound-engine/pkg/utils"
)

// ApplyStatusReceipt reconciles one delivery receipt against the stored
// message. Transitions only ever move forward (sent -> delivered -> read,
// failed terminal); receipts arriving late, twice or out of order resolve as
// already_applied, and receipts for unknown messages as message_not_found.
// Neither is an error: provider retries must stay idempotent.
func (s *Service) ApplyStatusReceipt(ctx context.Context, payload *model.StatusUpdatePayload) (*ReceiptResult, error) {
	workspaceID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, apperrors.NewAPI(apperrors.CodeInternal, http.StatusInternalServerError, err)
	}
	observer.IncEventsReceived("status", workspaceID)

	result, err := s.applyStatusReceipt(ctx, payload)
	if err != nil {
		observer.IncEventsFailed("status", workspaceID)
		return nil, err
	}
	observer.IncEventsProcessed("status", workspaceID)
	return result, nil
}

func (s *Service) applyStatusReceipt(ctx context.Context, payload *model.StatusUpdatePayload) (*ReceiptResult, error) {
	log := logger.FromContext(ctx)

	if err := validator.Validate(payload); err != nil {
		return nil, apperrors.NewAPI(apperrors.CodeMissingExternalID, http.StatusBadRequest,
			fmt.Errorf("%w: %w", apperrors.ErrValidation, err))
	}
	// Receipts with an absent or unrecognized status count as read receipts,
	// the same default the sync workflow applies on its side.
	target, ok := model.ParseMessageStatus(payload.Status)
	if !ok {
		target = model.MessageStatusRead
	}

	msg, err := s.messages.FindByExternalID(ctx, payload.ExternalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Receipts can outrun their message event; acknowledging keeps
			// the provider from retrying forever.
			log.Info("Receipt for unknown message acknowledged",
				zap.String("external_id", payload.ExternalID),
			)
			return &ReceiptResult{Outcome: ReceiptMessageNotFound}, nil
		}
		return nil, storeFailure(apperrors.CodeMessageLookupFailed, err)
	}

	if msg.Status.AtOrPast(target) {
		return &ReceiptResult{Outcome: ReceiptAlreadyApplied, Message: msg}, nil
	}

	readAt := msg.ReadAt
	if target == model.MessageStatusRead {
		if payload.ReadAt != nil {
			readAt = payload.ReadAt
		} else {
			now := time.Now().UTC()
			readAt = &now
		}
	}
	lastEvent := datatypes.JSON(utils.MustMarshalJSON(payload))

	if err := s.messages.UpdateStatus(ctx, msg.ID, target, readAt, lastEvent); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &ReceiptResult{Outcome: ReceiptMessageNotFound}, nil
		}
		return nil, storeFailure(apperrors.CodeMessageStatusUpdate, err)
	}

	msg.Status = target
	msg.ReadAt = readAt
	msg.LastEvent = lastEvent
	return &ReceiptResult{Outcome: ReceiptApplied, Message: msg}, nil
}
