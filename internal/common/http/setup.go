package http

import (
	"net/http"

	"github.com/AlibekovAA/jwt-auth-api/internal/common/constants"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/httpmetrics"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/logger"
)

func BuildBaseHandler(appName string, log *logger.Logger, handler http.Handler) http.Handler {
	metrics := httpmetrics.New(appName)
	recovery := RecoveryMiddleware(log)
	traceID := TraceIDMiddleware
	maxRequestSize := MaxRequestSizeMiddleware(constants.DefaultMaxRequestSize)
	securityHeaders := SecurityHeadersMiddleware
	csp := ContentSecurityPolicyMiddleware("")

	return securityHeaders(csp(traceID(recovery(maxRequestSize(metrics.Wrap(handler))))))
}
