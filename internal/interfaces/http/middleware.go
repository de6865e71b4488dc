package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

const (
	// HeaderUserID carries the caller's identity, set by the authenticating proxy
	HeaderUserID = "X-User-ID"
	// HeaderRequestID correlates a request across logs
	HeaderRequestID = "X-Request-ID"

	ctxKeyUser      = "user"
	ctxKeyRequestID = "request_id"
)

// requestIDMiddleware keeps an incoming request ID or issues a new one
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(ctxKeyRequestID),
		)
	}
}

// metricsMiddleware reports each request by route template
func metricsMiddleware(record func(method, route string, status int, duration time.Duration)) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		record(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// recoveryMiddleware turns panics into a 500 envelope
func recoveryMiddleware(logger Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic in HTTP handler",
			"panic", recovered,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(ctxKeyRequestID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "internal server error",
		})
	})
}

// identityMiddleware resolves the X-User-ID header to a user
func identityMiddleware(directory service.DirectoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderUserID)
		id, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing or invalid " + HeaderUserID + " header",
			})
			return
		}

		user, err := directory.GetUser(c.Request.Context(), id)
		if errors.Is(err, entity.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "unknown user",
			})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
				Success: false,
				Error:   "internal server error",
			})
			return
		}

		c.Set(ctxKeyUser, user)
		c.Next()
	}
}

// requireAdmin rejects callers without the Admin role
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, Response{
				Success: false,
				Error:   "admin role required",
			})
			return
		}
		c.Next()
	}
}

// currentUser returns the caller set by identityMiddleware
func currentUser(c *gin.Context) *entity.User {
	return c.MustGet(ctxKeyUser).(*entity.User)
}
