package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/AlibekovAA/jwt-auth-api/internal/common/constants"
)

const (
	DefaultMaxRequestSize = constants.DefaultMaxRequestSize
)

var ErrRequestTooLarge = errors.New("request body too large")

type maxBytesReader struct {
	reader io.ReadCloser
	limit  int64
	read   int64
}

func (r *maxBytesReader) Read(p []byte) (n int, err error) {
	if r.read >= r.limit {
		return 0, ErrRequestTooLarge
	}
	if remaining := r.limit - r.read + 1; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err = r.reader.Read(p)
	r.read += int64(n)
	if r.read > r.limit {
		return n, ErrRequestTooLarge
	}
	return n, err
}

func (r *maxBytesReader) Close() error {
	return r.reader.Close()
}

func MaxRequestSizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				WriteRequestError(w, r, http.StatusRequestEntityTooLarge, CodeRequestTooLarge, "request body too large")
				return
			}

			if r.Body != nil {
				r.Body = &maxBytesReader{
					reader: r.Body,
					limit:  maxBytes,
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
