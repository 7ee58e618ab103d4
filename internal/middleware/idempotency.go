package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"employee-forwarder/internal/shared/apperror"
	"employee-forwarder/internal/shared/contextutil"
	"employee-forwarder/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	IdempotencyKeyHeader = contextutil.IdempotencyKeyHeader

	idempotencyLockTTL   = 30 * time.Second
	idempotencyResultTTL = 24 * time.Hour
)

// IdempotentResponse is what gets stored for a completed request.
type IdempotentResponse struct {
	Status   int    `json:"status"`
	Body     string `json:"body"`
	Location string `json:"location,omitempty"`
}

func IdempotencyCacheKey(path, key string) string {
	return "idemp:" + path + ":" + key
}

type bodyCaptureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCaptureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of a POST carrying an
// Idempotency-Key that already completed, and rejects a duplicate that arrives
// while the first one is still running. Only 2xx responses are stored.
func Idempotency(rdb *redis.Client) gin.HandlerFunc {
	log := zap.L().Named("middleware.idempotency")

	return func(c *gin.Context) {
		idempKey := c.GetHeader(IdempotencyKeyHeader)
		if idempKey == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := IdempotencyCacheKey(c.FullPath(), idempKey)
		lockKey := cacheKey + ":lock"

		if val, err := rdb.Get(ctx, cacheKey).Result(); err == nil {
			var cached IdempotentResponse
			if json.Unmarshal([]byte(val), &cached) == nil {
				if cached.Location != "" {
					c.Header("Location", cached.Location)
				}
				c.Header("Idempotent-Replayed", "true")
				c.Data(cached.Status, "application/json; charset=utf-8", []byte(cached.Body))
				c.Abort()
				return
			}
		} else if err != redis.Nil {
			log.Warn("idempotency lookup failed", zap.String("key", cacheKey), zap.Error(err))
		}

		isNew, err := rdb.SetNX(ctx, lockKey, "locked", idempotencyLockTTL).Result()
		if err != nil {
			log.Warn("idempotency lock failed", zap.String("key", lockKey), zap.Error(err))
			c.Next()
			return
		}
		if !isNew {
			response.Error(c, http.StatusConflict, apperror.CodeConflict, "A request with this Idempotency-Key is still being processed", nil)
			return
		}

		capture := bodyCaptureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = capture

		c.Next()

		status := capture.Status()
		if status >= 200 && status < 300 {
			data, err := json.Marshal(IdempotentResponse{
				Status:   status,
				Body:     capture.body.String(),
				Location: capture.Header().Get("Location"),
			})
			if err == nil {
				if err := rdb.Set(ctx, cacheKey, data, idempotencyResultTTL).Err(); err != nil {
					log.Warn("idempotency store failed", zap.String("key", cacheKey), zap.Error(err))
				}
			}
		}

		if err := rdb.Del(ctx, lockKey).Err(); err != nil {
			log.Warn("idempotency unlock failed", zap.String("key", lockKey), zap.Error(err))
		}
	}
}
