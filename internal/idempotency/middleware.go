package idempotency

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/MikeMC777/tienda-commerce/internal/apperr"
	"github.com/MikeMC777/tienda-commerce/internal/httpx"
)

const (
	HeaderKey    = "Idempotency-Key"
	HeaderReplay = "Idempotent-Replayed"
	maxKeyLength = 200
	maxBodyBytes = 1 << 20
)

var (
	ErrKeyTooLong = apperr.InvalidArgument("Idempotency-Key is too long")
	ErrKeyBusy    = apperr.New(apperr.KindConflict, "idempotency_in_flight", "a request with this Idempotency-Key is still being processed")
	ErrKeyReused  = apperr.New(apperr.KindPreconditionFailed, "idempotency_key_reused", "Idempotency-Key was already used with a different request body")
)

// Scope names the caller a key belongs to. An empty scope means the caller
// cannot be told apart from others and the request is served without replay.
type Scope func(c *gin.Context, body []byte) string

type recorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *recorder) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// Middleware replays the first response seen for a key. The key is scoped by
// scope, normally the caller identity, and by route; a replay also requires
// the same request body. Requests without the header pass through. Server
// errors release the key so the client can retry.
func Middleware(store Store, ttl time.Duration, scope Scope, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderKey))
		if raw == "" {
			c.Next()
			return
		}
		if len(raw) > maxKeyLength {
			httpx.Abort(c, ErrKeyTooLong)
			return
		}
		body, err := readBody(c)
		if err != nil {
			httpx.Abort(c, apperr.InvalidArgument("request body could not be read"))
			return
		}
		owner := scope(c, body)
		if owner == "" {
			c.Next()
			return
		}
		key := c.Request.Method + " " + c.FullPath() + "|" + owner + "|" + raw
		fp := Fingerprint(body)

		rec, err := store.Reserve(c.Request.Context(), key, ttl)
		switch {
		case errors.Is(err, ErrInFlight):
			httpx.Abort(c, ErrKeyBusy)
			return
		case err != nil:
			// The store is an optimisation; serve the request without it.
			logger.Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		case rec != nil && rec.Fingerprint != fp:
			httpx.Abort(c, ErrKeyReused)
			return
		case rec != nil:
			c.Header(HeaderReplay, "true")
			c.Data(rec.Status, rec.ContentType, rec.Body)
			c.Abort()
			return
		}

		w := &recorder{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		// The request context may already be past its deadline.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 2*time.Second)
		defer cancel()
		if w.Status() >= http.StatusInternalServerError {
			if err := store.Release(ctx, key); err != nil {
				logger.Warn("idempotency release failed", zap.Error(err))
			}
			return
		}
		if err := store.Complete(ctx, key, Record{
			Status:      w.Status(),
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
			Fingerprint: fp,
		}, ttl); err != nil {
			logger.Warn("idempotency complete failed", zap.Error(err))
		}
	}
}

// readBody buffers the request body and puts it back for the handler.
func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	b, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(b), c.Request.Body))
	return b, nil
}

// Fingerprint identifies a request body.
func Fingerprint(body []byte) string {
	sum := blake2b.Sum256(body)
	return hex.EncodeToString(sum[:])
}
