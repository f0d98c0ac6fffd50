// Package auth resolves API credentials to a workspace identity. Every
// tenant-facing request passes through here before any row is touched.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/apperrors"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/storage"
	"gitlab.com/zapfunil/api/crm-inbound-engine/pkg/logger"
)

// Header names carrying the credential pair.
const (
	HeaderAPIToken    = "x-api-token"
	HeaderWorkspaceID = "workspace_id"
)

// Identity is the result of a successful credential check.
type Identity struct {
	WorkspaceID string
	TokenLabel  string
}

// Resolver checks a token/workspace pair against the credential store.
type Resolver struct {
	tokens storage.TokenRepo
}

// NewResolver builds a Resolver backed by the given credential repository.
func NewResolver(tokens storage.TokenRepo) *Resolver {
	return &Resolver{tokens: tokens}
}

// Resolve validates the pair and returns the workspace identity. Failures are
// typed so the transport can answer with the right status:
//   - missing token or workspace: 401 with MISSING_X_API_TOKEN / MISSING_WORKSPACE_ID
//   - unknown, inactive or cross-workspace pair: 403 with a single opaque code
//   - credential store unreachable: 503, never a silent allow
//
// Which of the three rejection reasons applied is never revealed to the
// caller; only logs distinguish them.
func (r *Resolver) Resolve(ctx context.Context, token, workspaceID string) (*Identity, error) {
	token = strings.TrimSpace(token)
	workspaceID = strings.TrimSpace(workspaceID)

	if token == "" {
		return nil, apperrors.NewAPI(apperrors.CodeMissingAPIToken, http.StatusUnauthorized,
			apperrors.ErrUnauthorized)
	}
	if workspaceID == "" {
		return nil, apperrors.NewAPI(apperrors.CodeMissingWorkspaceID, http.StatusUnauthorized,
			apperrors.ErrUnauthorized)
	}

	cred, err := r.tokens.FindActive(ctx, token, workspaceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.FromContext(ctx).Warn("Credential rejected",
				zap.String("workspace_id", workspaceID),
			)
			return nil, apperrors.NewAPI(apperrors.CodeInvalidCredential, http.StatusForbidden,
				apperrors.ErrUnauthorized)
		}
		logger.FromContext(ctx).Error("Credential store unavailable", zap.Error(err))
		return nil, apperrors.NewAPI(apperrors.CodeAuthQueryFailed, http.StatusServiceUnavailable, err)
	}

	return &Identity{WorkspaceID: cred.WorkspaceID, TokenLabel: cred.Label}, nil
}

// FirstHeaderValue collapses a multi-valued header to its first entry, the
// same way the upstream gateway does.
func FirstHeaderValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
