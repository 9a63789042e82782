package http

import (
	"errors"
	"net/http"
	"strconv"

	commonerrors "github.com/AlibekovAA/jwt-auth-api/internal/common/errors"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/httpmetrics"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/logger"
	"github.com/AlibekovAA/jwt-auth-api/internal/observability/metrics"
)

type ErrorHandler struct {
	log *logger.Logger
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{log: log}
}

// HandleError writes the envelope for err. Domain errors keep their own status
// and code; anything else is logged and reported as a 500 without details.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	if domainErr, ok := commonerrors.AsDomainError(err); ok {
		h.handleDomainError(w, r, domainErr)
		return
	}

	ctx := r.Context()
	h.log.WithFields(ctx, logger.Fields{
		"error":  err.Error(),
		"action": "unhandled_error",
	}).Errorf("unhandled error: %v", err)

	metrics.HTTPErrorsTotal.WithLabelValues(
		strconv.Itoa(http.StatusInternalServerError),
		httpmetrics.NormalizePath(r.URL.Path),
		r.Method,
	).Inc()

	WriteRequestError(w, r, http.StatusInternalServerError, CodeUnknown, "internal server error")
}

func (h *ErrorHandler) handleDomainError(w http.ResponseWriter, r *http.Request, err commonerrors.DomainError) {
	ctx := r.Context()
	status := err.HTTPStatus()

	if h.log.ShouldLog(logger.DEBUG) {
		h.log.WithFields(ctx, logger.Fields{
			"error_code": err.Code(),
			"category":   string(err.Category()),
			"status":     status,
			"action":     "domain_error",
		}).Debugf("domain error: %s", err.Error())
	}
	if status >= http.StatusInternalServerError {
		h.log.WithFields(ctx, logger.Fields{
			"error_code": err.Code(),
			"action":     "domain_error",
		}).Errorf("server side domain error: %v", err)
	}

	metrics.DomainErrorsTotal.WithLabelValues(
		string(err.Category()),
		err.Code(),
		strconv.Itoa(status),
	).Inc()

	metrics.HTTPErrorsTotal.WithLabelValues(
		strconv.Itoa(status),
		httpmetrics.NormalizePath(r.URL.Path),
		r.Method,
	).Inc()

	if errors.Is(err, commonerrors.ErrCircuitOpen) {
		WriteRequestError(w, r, status, CodeServiceUnavailable, commonerrors.ErrServiceUnavailable.Message())
		return
	}
	WriteRequestError(w, r, status, err.Code(), err.Message())
}
