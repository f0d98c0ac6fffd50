package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/apperrors"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/tenant"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/usecase"
	"gitlab.com/zapfunil/api/crm-inbound-engine/pkg/utils"
)

// Handler exposes the engine operations over HTTP.
type Handler struct {
	svc     *usecase.Service
	version string
}

// NewHandler builds the HTTP handler set.
func NewHandler(svc *usecase.Service, version string) *Handler {
	return &Handler{svc: svc, version: version}
}

type inboundResponse struct {
	WorkspaceID string `json:"workspace_id"`
	LeadID      string `json:"lead_id"`
	MessageID   string `json:"message_id"`
	LeadCreated bool   `json:"lead_created"`
	Duplicate   bool   `json:"duplicate"`
	Reduced     bool   `json:"reduced,omitempty"`
}

// PostInbound ingests one conversational event. Fresh inserts answer 201,
// replayed events 200 with duplicate set.
func (h *Handler) PostInbound(c echo.Context) error {
	var payload model.InboundEventPayload
	if err := c.Bind(&payload); err != nil {
		return respondError(c, apperrors.NewAPI(apperrors.CodeInvalidJSON, http.StatusBadRequest, err))
	}

	result, err := h.svc.IngestEvent(c.Request().Context(), &payload)
	if err != nil {
		return respondError(c, err)
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	return respondOK(c, status, inboundResponse{
		WorkspaceID: result.Lead.WorkspaceID,
		LeadID:      result.Lead.ID,
		MessageID:   result.Message.ID,
		LeadCreated: result.LeadCreated,
		Duplicate:   result.Duplicate,
		Reduced:     result.Reduced,
	})
}

// GetInbound is a version ping for gateway wiring checks.
func (h *Handler) GetInbound(c echo.Context) error {
	return respondOK(c, http.StatusOK, echo.Map{
		"service": "crm-inbound-engine",
		"version": h.version,
		"time":    utils.FormatISO8601(time.Now().UTC()),
	})
}

type receiptResponse struct {
	Updated   bool   `json:"updated"`
	Reason    string `json:"reason,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Status    string `json:"status,omitempty"`
}

// PatchMessageStatus applies one delivery receipt.
func (h *Handler) PatchMessageStatus(c echo.Context) error {
	var payload model.StatusUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return respondError(c, apperrors.NewAPI(apperrors.CodeInvalidJSON, http.StatusBadRequest, err))
	}

	result, err := h.svc.ApplyStatusReceipt(c.Request().Context(), &payload)
	if err != nil {
		return respondError(c, err)
	}

	resp := receiptResponse{Updated: result.Outcome == usecase.ReceiptApplied}
	if !resp.Updated {
		resp.Reason = result.Outcome
	}
	if result.Message != nil {
		resp.MessageID = result.Message.ID
		resp.Status = string(result.Message.Status)
	}
	return respondOK(c, http.StatusOK, resp)
}

type staleLeadsResponse struct {
	Leads        []usecase.StaleLeadView `json:"leads"`
	Count        int                     `json:"count"`
	StaleMinutes int                     `json:"stale_minutes"`
	Threshold    string                  `json:"threshold"`
}

// GetStaleLeads lists leads eligible for follow-up.
func (h *Handler) GetStaleLeads(c echo.Context) error {
	query := usecase.StaleQuery{
		StatusCSV: c.QueryParam("status"),
		Minutes:   intQueryParam(c, "stale_minutes"),
		Limit:     intQueryParam(c, "limit"),
	}

	result, err := h.svc.FindStaleLeads(c.Request().Context(), query)
	if err != nil {
		return respondError(c, err)
	}

	return respondOK(c, http.StatusOK, staleLeadsResponse{
		Leads:        result.Leads,
		Count:        len(result.Leads),
		StaleMinutes: result.StaleMinutes,
		Threshold:    utils.FormatISO8601(result.Threshold),
	})
}

// PatchLeadFollowup records a follow-up send against a lead.
func (h *Handler) PatchLeadFollowup(c echo.Context) error {
	var payload model.FollowupPayload
	if err := c.Bind(&payload); err != nil {
		return respondError(c, apperrors.NewAPI(apperrors.CodeInvalidJSON, http.StatusBadRequest, err))
	}

	lead, err := h.svc.MarkFollowupSent(c.Request().Context(), c.Param("id"), &payload)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, echo.Map{"lead": lead})
}

// PostSystemError accepts a workflow failure report. Always acknowledges; the
// sink degrades to logging when persistence is unavailable.
func (h *Handler) PostSystemError(c echo.Context) error {
	var payload model.ErrorReportPayload
	if err := c.Bind(&payload); err != nil {
		return respondError(c, apperrors.NewAPI(apperrors.CodeInvalidJSON, http.StatusBadRequest, err))
	}

	report, err := h.svc.ReportError(c.Request().Context(), &payload)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusCreated, echo.Map{
		"logged":   true,
		"id":       report.ID,
		"severity": report.Severity,
	})
}

// GetSystemErrors lists recent error reports.
func (h *Handler) GetSystemErrors(c echo.Context) error {
	var resolved *bool
	if raw := strings.TrimSpace(c.QueryParam("resolved")); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			resolved = &v
		}
	}

	reports, err := h.svc.ListErrors(c.Request().Context(), c.QueryParam("severity"), resolved, intQueryParam(c, "limit"))
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, echo.Map{
		"errors": reports,
		"count":  len(reports),
	})
}

// PatchSystemErrorResolve marks an error report as handled.
func (h *Handler) PatchSystemErrorResolve(c echo.Context) error {
	id := c.Param("id")
	if err := h.svc.ResolveError(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, echo.Map{"resolved": true, "id": id})
}

// GetWhoami echoes the authenticated workspace, for gateway credential checks.
func (h *Handler) GetWhoami(c echo.Context) error {
	workspaceID, err := tenant.FromContext(c.Request().Context())
	if err != nil {
		return respondError(c, apperrors.NewAPI(apperrors.CodeInternal, http.StatusInternalServerError, err))
	}
	return respondOK(c, http.StatusOK, echo.Map{"workspace_id": workspaceID})
}

// intQueryParam parses a numeric query parameter leniently; absent or
// malformed values fall back to the configured defaults downstream.
func intQueryParam(c echo.Context, name string) int {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
