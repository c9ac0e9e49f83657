package idempotency

import (
	"context"
	"log/slog"
	"net/http"
)

const HeaderKey = "Idempotency-Key"

// Claims is the slice of Store the middleware needs.
type Claims interface {
	RequestKey(userID, key string) string
	Seen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

// Middleware rejects a repeated Idempotency-Key from the same user with 409,
// so client retries of checkout cannot create two orders. Requests without
// the header pass through untouched. Any non-2xx response releases the claim:
// a rejected request did not take effect, so the client may retry with the
// same key once the underlying problem is resolved.
func Middleware(log *slog.Logger, store Claims, userID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			claim := store.RequestKey(userID(r), key)
			seen, err := store.Seen(r.Context(), claim)
			if err != nil {
				log.Error("idempotency check failed", "err", err)
				http.Error(w, "idempotency store unavailable", http.StatusServiceUnavailable)
				return
			}
			if seen {
				http.Error(w, "duplicate request", http.StatusConflict)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status < 200 || rec.status >= 300 {
				if err := store.Forget(r.Context(), claim); err != nil {
					log.Error("idempotency release failed", "key", claim, "err", err)
				}
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
