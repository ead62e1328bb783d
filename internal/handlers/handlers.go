package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cristianadrielbraun/qrnode/internal/logging"
	"github.com/cristianadrielbraun/qrnode/internal/node"
)

// Handler serves the host-facing node API over HTTP.
type Handler struct {
	exec *node.Executor
}

// New returns a new Handler that runs nodes through exec.
func New(exec *node.Executor) *Handler { return &Handler{exec: exec} }

// Routes registers every endpoint on r.
func (h *Handler) Routes(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.GET("/object_info", h.ObjectInfo)
		api.GET("/object_info/:name", h.NodeInfo)
		api.POST("/prompt", h.Prompt)
		api.GET("/qr", h.QRCodeHandler)
		api.GET("/qr/mask", h.QRMaskHandler)
	}
}

// NewRouter builds a gin engine with request logging and panic recovery.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger())
	r.Use(gin.Recovery())
	h.Routes(r)
	return r
}

// RequestLogger logs one line per request through the process logger.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		status := c.Writer.Status()
		fields := logging.Fields{
			"request_id":    requestID,
			"method":        c.Request.Method,
			"path":          c.Request.URL.Path,
			"status":        status,
			"latency_ms":    time.Since(start).Milliseconds(),
			"ip":            c.ClientIP(),
			"response_size": c.Writer.Size(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		switch {
		case status >= 500:
			logging.Error(fields, "Server error")
		case status >= 400:
			logging.Warn(fields, "Client error")
		default:
			logging.Info(fields, "Success")
		}
	}
}
