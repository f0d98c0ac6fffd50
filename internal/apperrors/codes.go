package apperrors

// Stable machine-readable error codes surfaced in failure envelopes. The
// automation gateway branches on these, so they are part of the wire contract
// and must not be renamed.
const (
	CodeMissingAPIToken    = "MISSING_X_API_TOKEN"
	CodeMissingWorkspaceID = "MISSING_WORKSPACE_ID"
	CodeInvalidCredential  = "INVALID_TOKEN_OR_WORKSPACE"
	CodeAuthQueryFailed    = "AUTH_QUERY_FAILED"

	CodeMissingLeadPhone   = "MISSING_LEAD_PHONE"
	CodeMissingMessageBody = "MISSING_MESSAGE_BODY"
	CodeLeadLookupFailed   = "LEAD_LOOKUP_FAILED"
	CodeLeadInsertFailed   = "LEAD_INSERT_FAILED"
	CodeLeadIDMissing      = "LEAD_ID_MISSING"
	CodeMessageInsert      = "MESSAGE_INSERT_FAILED"

	CodeMissingExternalID   = "MISSING_EXTERNAL_ID"
	CodeMessageLookupFailed = "MESSAGE_LOOKUP_FAILED"
	CodeMessageStatusUpdate = "MESSAGE_STATUS_UPDATE_FAILED"

	CodeInvalidStatusFilter = "INVALID_STATUS_FILTER"
	CodeStaleLeadsFetch     = "STALE_LEADS_FETCH_FAILED"

	CodeMissingLeadID       = "MISSING_LEAD_ID"
	CodeLeadNotFound        = "LEAD_NOT_FOUND_OR_UNAUTHORIZED"
	CodeFollowupUpdate      = "FOLLOWUP_UPDATE_FAILED"
	CodePipelineErrorsFetch = "SYSTEM_ERRORS_FETCH_FAILED"
	CodeErrorResolveFailed  = "ERROR_RESOLVE_FAILED"
	CodeErrorNotFound       = "ERROR_NOT_FOUND"

	CodeInvalidJSON      = "INVALID_JSON"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeRouteNotFound    = "ROUTE_NOT_FOUND"
	CodeInternal         = "INTERNAL_ERROR"
)
