package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	tracing "restaurantcore/pkg/otel"
)

type ctxKey int

const userKey ctxKey = 1

// UserFrom returns the authenticated user in ctx.
func UserFrom(ctx context.Context) string {
	u, _ := ctx.Value(userKey).(string)
	return u
}

func withUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// statusRecorder keeps the status and, when buffering, the body.
type statusRecorder struct {
	http.ResponseWriter
	status int
	buf    *bytes.Buffer
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	if r.buf != nil {
		r.buf.Write(b)
	}
	return r.ResponseWriter.Write(b)
}

// traceMiddleware continues the caller's trace and carries the tracer.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx = tracing.InjectTracing(ctx, s.tracer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		s.log.Info(r.Context(), "http request",
			"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

// authMiddleware ensures a valid session exists.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil {
			fail(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, err := s.kv.Get(r.Context(), sessionKey(c.Value))
		if err != nil || user == "" {
			fail(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

const (
	idempotencyHeader  = "Idempotency-Key"
	idempotencyPending = "pending"
)

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// idempotent replays the stored response of a repeated POST carrying the
// same Idempotency-Key for the same user. Server errors release the key so
// the client may retry.
func (s *Server) idempotent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		k := r.Header.Get(idempotencyHeader)
		if k == "" {
			next(w, r)
			return
		}
		ctx := r.Context()
		key := "idem:" + UserFrom(ctx) + ":" + r.URL.Path + ":" + k

		claimed, err := s.kv.SetNX(ctx, key, idempotencyPending, s.idemTTL)
		if err != nil {
			s.log.Error(ctx, "claim idempotency key", "error", err)
			fail(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !claimed {
			s.replay(w, r, key)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, buf: &bytes.Buffer{}}
		next(rec, r)
		if rec.status >= http.StatusInternalServerError {
			if err := s.kv.Del(ctx, key); err != nil {
				s.log.Warn(ctx, "release idempotency key", "error", err)
			}
			return
		}
		body := bytes.TrimSpace(rec.buf.Bytes())
		if len(body) == 0 {
			body = []byte("null")
		}
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		raw, err := json.Marshal(storedResponse{Status: status, Body: body})
		if err != nil {
			s.log.Warn(ctx, "encode idempotent response", "error", err)
			if err := s.kv.Del(ctx, key); err != nil {
				s.log.Warn(ctx, "release idempotency key", "error", err)
			}
			return
		}
		if err := s.kv.Set(ctx, key, string(raw), s.idemTTL); err != nil {
			s.log.Warn(ctx, "store idempotent response", "error", err)
		}
	}
}

func (s *Server) replay(w http.ResponseWriter, r *http.Request, key string) {
	ctx, span := tracing.AddSpan(r.Context(), "idempotency.replay", attribute.String("key", key))
	defer span.End()

	v, err := s.kv.Get(ctx, key)
	if err != nil || v == idempotencyPending {
		fail(w, http.StatusConflict, "request with this idempotency key is in progress")
		return
	}
	var sr storedResponse
	if err := json.Unmarshal([]byte(v), &sr); err != nil {
		s.log.Error(ctx, "decode idempotent response", "error", err)
		fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotent-Replay", "true")
	if sr.Status == 0 {
		sr.Status = http.StatusOK
	}
	w.WriteHeader(sr.Status)
	w.Write(sr.Body)
}
