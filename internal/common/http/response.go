package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"
)

type ErrorEnvelope struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	TraceID string         `json:"trace_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteErrorEnvelope(w http.ResponseWriter, status int, code, message string, details map[string]any, traceID string) {
	env := ErrorEnvelope{Code: code, Message: message}
	if len(details) > 0 {
		env.Details = details
	}
	if traceID != "" {
		env.TraceID = traceID
	}
	WriteJSON(w, status, env)
}

// WriteRequestError answers with an envelope carrying the trace id of r.
func WriteRequestError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteErrorEnvelope(w, status, code, message, nil, TraceIDFromContext(r.Context()))
}

// NotFoundHandler answers routes nothing else matched.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteRequestError(w, r, http.StatusNotFound, CodeNotFound, "not found")
}

func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// GetClientIP returns the address used as the rate-limit key. Proxy headers
// are honoured only when trustProxyHeaders is set, since any client can send them.
func GetClientIP(r *http.Request, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			if idx := strings.Index(fwd, ","); idx != -1 {
				fwd = fwd[:idx]
			}
			if ip := strings.TrimSpace(fwd); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func RequireMethod(method string) func(http.HandlerFunc) http.HandlerFunc {
	return RequireMethods(method)
}

func RequireMethods(methods ...string) func(http.HandlerFunc) http.HandlerFunc {
	allow := strings.Join(methods, ", ")
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			for _, m := range methods {
				if r.Method == m {
					next(w, r)
					return
				}
			}
			w.Header().Set("Allow", allow)
			WriteRequestError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
		}
	}
}

func WithTimeout(timeout time.Duration) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if timeout <= 0 {
				next(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next(w, r.WithContext(ctx))
		}
	}
}
