package middleware

import (
	"net/http"

	"github.com/atendo/booking-core/internal/httputil"
)

// RequestSizeLimit caps the request body at maxBytes. A request that
// declares a larger Content-Length is rejected up front with 413;
// bodies without a declared length are capped by MaxBytesReader, which
// the handler sees as a decode error. Confirmation and scheduling
// payloads are tiny, so the cap can be aggressive.
func RequestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				httputil.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
