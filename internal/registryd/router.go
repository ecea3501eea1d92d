// Package registryd is a development stand-in for the remote registration
// service: a small JSON API implementing register and getdata.
package registryd

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vbonduro/productreg/internal/domain"
	"github.com/vbonduro/productreg/internal/store"
)

// New wires the Gin engine with the registry routes and middlewares.
func New(records store.Records, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "registryd")

	gin.SetMode(gin.ReleaseMode)

	h := &handler{records: records, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(slogMiddleware(logger))

	r.POST("/register", h.register)
	r.GET("/getdata", h.getData)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

type handler struct {
	records store.Records
	logger  *slog.Logger
}

func (h *handler) register(c *gin.Context) {
	var rec domain.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		h.logger.Warn("invalid register payload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.records.Create(c.Request.Context(), rec); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "serial number already registered"})
			return
		}
		h.logger.Error("failed to store record", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register product"})
		return
	}

	h.logger.Info("product registered", "serial_number", rec.SNumber)
	c.JSON(http.StatusCreated, gin.H{"message": "Product registered", "data": rec})
}

func (h *handler) getData(c *gin.Context) {
	records, err := h.records.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list records", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load records"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func slogMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP())
	}
}
