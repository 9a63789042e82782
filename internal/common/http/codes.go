package http

const (
	CodeUnknown              = "UNKNOWN"
	CodeMethodNotAllowed     = "METHOD_NOT_ALLOWED"
	CodeInvalidJSON          = "INVALID_JSON"
	CodeNotFound             = "NOT_FOUND"
	CodeRequestTooLarge      = "REQUEST_TOO_LARGE"
	CodeRateLimited          = "RATE_LIMITED"
	CodeMissingRefreshToken  = "MISSING_REFRESH_TOKEN"
	CodeMissingAuthorization = "MISSING_AUTHORIZATION"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeServiceUnavailable   = "SERVICE_UNAVAILABLE"
)
