package forwarder

import (
	"errors"

	forwardererrors "employee-forwarder/internal/forwarder/errors"
	"employee-forwarder/internal/shared/apperror"
	"employee-forwarder/internal/shared/contextutil"
	"employee-forwarder/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("forwarder.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("forwarder.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) List(mode Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := h.service.List(c.Request.Context(), mode)
		h.write(c, mode, resp, err)
	}
}

func (h *Handler) GetByID(mode Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := h.service.GetByID(c.Request.Context(), c.Param("id"), mode)
		h.write(c, mode, resp, err)
	}
}

func (h *Handler) Create(mode Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EmployeeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.writeError(c, apperror.MapBindError(err))
			return
		}

		ctx := c.Request.Context()
		if key := c.GetHeader(contextutil.IdempotencyKeyHeader); key != "" {
			ctx = contextutil.WithIdempotencyKey(ctx, key)
		}

		resp, err := h.service.Create(ctx, req, mode)
		h.write(c, mode, resp, err)
	}
}

func (h *Handler) Update(mode Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EmployeeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.writeError(c, apperror.MapBindError(err))
			return
		}

		resp, err := h.service.Update(c.Request.Context(), c.Param("id"), req, mode)
		h.write(c, mode, resp, err)
	}
}

func (h *Handler) Delete(mode Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := h.service.Delete(c.Request.Context(), c.Param("id"), mode)
		h.write(c, mode, resp, err)
	}
}

func (h *Handler) write(c *gin.Context, mode Mode, resp Response, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}

	switch mode {
	case ModeLocation:
		c.Header("Location", resp.Location)
		c.Status(resp.StatusCode)
		c.Writer.WriteHeaderNow()
	case ModeExchange:
		writeRaw(c, resp.StatusCode, resp.ContentType, resp.Body)
	default:
		response.Success(c, resp.StatusCode, resp.Data)
	}
}

// writeError relays store responses untouched. Anything else is a local
// failure and is answered with a generic 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		h.logger.Warn("upstream rejected forwarded request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", upstream.StatusCode),
		)
		writeRaw(c, upstream.StatusCode, upstream.ContentType, upstream.Body)
		c.Abort()
		return
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		h.logger.Error("forwarded request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		err = forwardererrors.ErrUpstreamFailed
	}

	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func writeRaw(c *gin.Context, status int, contentType string, body []byte) {
	if contentType != "" {
		c.Header("Content-Type", contentType)
	}
	c.Status(status)
	if len(body) == 0 {
		c.Writer.WriteHeaderNow()
		return
	}
	_, _ = c.Writer.Write(body)
}
