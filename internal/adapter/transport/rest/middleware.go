package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dayanaadylkhanova/powgate/internal/entity"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderSolution  = "X-Altcha"
	FieldSolution   = "altcha"

	ctxRequestID = "request_id"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func logFrom(c *gin.Context, base *slog.Logger) *slog.Logger {
	if id := c.GetString(ctxRequestID); id != "" {
		return base.With("request_id", id)
	}
	return base
}

func AccessLog(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logFrom(c, log).Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"remote", c.ClientIP(),
		)
	}
}

func Recovery(log *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		logFrom(c, log).Error("panic recovered", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	})
}

// RequireSolution lets the request through only with a valid solution in the
// X-Altcha header or the "altcha" body field. Rejections carry no reason.
func RequireSolution(v Verifier, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := logFrom(c, log)

		payload := c.GetHeader(HeaderSolution)
		if payload == "" {
			payload = solutionField(c)
		}
		sol, err := entity.DecodePayload(payload)
		if err != nil {
			l.Debug("bad solution", "err", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgMalformed})
			return
		}
		if err := v.Verify(sol); err != nil {
			l.Debug("pow failed", "reason", err.Error())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": msgRejected})
			return
		}
		c.Next()
	}
}

func solutionField(c *gin.Context) string {
	if isJSON(c) {
		var body struct {
			Altcha string `json:"altcha"`
		}
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
			return ""
		}
		return body.Altcha
	}
	return c.PostForm(FieldSolution)
}
