// Package middleware holds HTTP middleware shared by the service APIs.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// IdempotencyHeader carries the client supplied request key.
const IdempotencyHeader = "Idempotency-Key"

const processing = "PROCESSING"

// IdempotencyOptions tunes the middleware.
type IdempotencyOptions struct {
	// LockTTL bounds how long an in-flight request holds its key. It must
	// exceed the longest time the wrapped handler can run, or a repeat can
	// slip past an unfinished request.
	LockTTL time.Duration
	// ResultTTL is how long a completed response is replayed.
	ResultTTL time.Duration
	Logger    *slog.Logger
}

type storedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// Idempotency replays the stored response of a completed write request
// that carries the same Idempotency-Key, and rejects a repeat that arrives
// while the first is still in flight. Responses with a 5xx status are not
// stored so the client can retry. When Redis is unavailable requests pass
// through unprotected.
func Idempotency(rdb redis.Cmdable, opts IdempotencyOptions) func(http.Handler) http.Handler {
	if opts.LockTTL <= 0 {
		opts.LockTTL = time.Minute
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(IdempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			idemKey := fmt.Sprintf("idempotency:%s %s:%s", r.Method, r.URL.Path, key)
			ctx := r.Context()

			val, err := rdb.Get(ctx, idemKey).Result()
			switch {
			case err == nil:
				replay(w, val)
				return
			case !errors.Is(err, redis.Nil):
				logger.Warn("idempotency lookup failed", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			acquired, err := rdb.SetNX(ctx, idemKey, processing, opts.LockTTL).Result()
			if err != nil {
				logger.Warn("idempotency lock failed", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				conflict(w)
				return
			}

			var body bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)
			next.ServeHTTP(ww, r)

			// The client may be gone by now; the key is settled regardless.
			finishCtx := context.WithoutCancel(ctx)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				if err := rdb.Del(finishCtx, idemKey).Err(); err != nil {
					logger.Warn("idempotency release failed", slog.String("error", err.Error()))
				}
				return
			}

			raw, _ := json.Marshal(storedResponse{Status: status, Body: body.String()})
			if err := rdb.Set(finishCtx, idemKey, raw, opts.ResultTTL).Err(); err != nil {
				logger.Warn("idempotency store failed", slog.String("error", err.Error()))
			}
		})
	}
}

func replay(w http.ResponseWriter, val string) {
	if val == processing {
		conflict(w)
		return
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(val), &stored); err != nil {
		conflict(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Idempotency-Hit", "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write([]byte(stored.Body))
}

func conflict(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	_, _ = w.Write([]byte(`{"detail":"request with this Idempotency-Key is already in progress"}`))
}
