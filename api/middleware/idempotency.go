package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// IdempotencyHeader carries the client-chosen replay key.
const IdempotencyHeader = "Idempotency-Key"

// ReplayStore reserves and records responses per replay scope. *redis.Client satisfies it.
type ReplayStore interface {
	ClaimReplay(ctx context.Context, scope string, ttl time.Duration) (string, error)
	CompleteReplay(ctx context.Context, scope, payload string, ttl time.Duration) error
	AbandonReplay(ctx context.Context, scope string) error
}

// order placement endpoints, keyed "METHOD pattern"
var idempotentRoutes = map[string]struct{}{
	http.MethodPost + " /orders/cod":    {},
	http.MethodPost + " /orders/stripe": {},
}

type replayRecord struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

// Idempotency makes order placement safe to retry. The first request carrying an
// Idempotency-Key claims it; repeats get the recorded response, or 409 while
// the first is still running. Requests without the header pass through, and
// 5xx outcomes release the key so the client may retry.
func Idempotency(store ReplayStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || ttl <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" || !idempotentRoute(r.Method, routePattern(r)) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			requestHash := digest(body)
			scope := replayScope(r, clientKey)

			stored, err := store.ClaimReplay(ctx, scope, ttl)
			switch {
			case errors.Is(err, pkgredis.ErrReplayInFlight):
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "a request with this idempotency key is still in progress"))
				return
			case err != nil:
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			case stored != "":
				replay(ctx, logg, w, stored, requestHash)
				return
			}

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			// detached so a client hang-up still settles the key
			settleCtx := context.WithoutCancel(ctx)
			status := statusOf(ww)
			if status >= http.StatusInternalServerError {
				if err := store.AbandonReplay(settleCtx, scope); err != nil && logg != nil {
					logg.Error(settleCtx, "release idempotency key", err)
				}
				return
			}

			payload, err := json.Marshal(replayRecord{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
				RequestHash: requestHash,
			})
			if err == nil {
				err = store.CompleteReplay(settleCtx, scope, string(payload), ttl)
			}
			if err != nil && logg != nil {
				logg.Error(settleCtx, "record idempotent response", err)
			}
		})
	}
}

func replay(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, stored, requestHash string) {
	var rec replayRecord
	if err := json.Unmarshal([]byte(stored), &rec); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if rec.RequestHash != requestHash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

// replayScope binds the client key to the caller and endpoint.
func replayScope(r *http.Request, clientKey string) string {
	return digest([]byte(UserIDFromContext(r.Context()) + "\n" + r.Method + "\n" + r.URL.Path + "\n" + clientKey))
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func idempotentRoute(method, pattern string) bool {
	_, ok := idempotentRoutes[method+" "+pattern]
	return ok
}
