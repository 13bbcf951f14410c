package handler

import (
	"errors"
	"strconv"
	"time"

	"validationlake/internal/infrastructure/logger"
	"validationlake/internal/service"
	"validationlake/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler holds every route's dependencies.
type Handler struct {
	records   *service.RecordService
	dashboard *service.DashboardService
	appName   string
	version   string
	now       func() time.Time
	loc       *time.Location
	log       logrus.FieldLogger
}

type Options struct {
	AppName  string
	Version  string
	Location *time.Location
	Now      func() time.Time
}

func NewHandler(records *service.RecordService, dashboard *service.DashboardService, opts Options, log logrus.FieldLogger) *Handler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handler{
		records:   records,
		dashboard: dashboard,
		appName:   opts.AppName,
		version:   opts.Version,
		now:       opts.Now,
		loc:       opts.Location,
		log:       logger.Component(log, "handler"),
	}
}

// fail maps service errors onto the response envelope.
func (h *Handler) fail(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationError(c, "validation error", verr.Errors)
	case errors.Is(err, service.ErrRecordNotFound):
		response.NotFound(c, "record not found")
	default:
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		response.ServerError(c, "internal server error")
	}
}

// ============================================================
// Service endpoints
// ============================================================

// Root GET /
func (h *Handler) Root(c *gin.Context) {
	response.Success(c, gin.H{
		"message": "Hello from " + h.appName,
		"version": h.version,
	})
}

// Health GET /health
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// ============================================================
// Records
// ============================================================

// CreateRecord POST /items/
func (h *Handler) CreateRecord(c *gin.Context) {
	var req service.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, service.DecodeError(err))
		return
	}

	rec, err := h.records.Create(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, rec)
}

// GetRecord GET /items/:id
func (h *Handler) GetRecord(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.fail(c, &service.ValidationError{Errors: []service.FieldError{{Field: "id", Reason: "must be an integer"}}})
		return
	}

	rec, err := h.records.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, rec)
}

// ListRecords GET /items/?skip=0&limit=100
func (h *Handler) ListRecords(c *gin.Context) {
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		response.ParamError(c, err.Error())
		return
	}
	limit, err := queryInt(c, "limit", service.DefaultListLimit)
	if err != nil {
		response.ParamError(c, err.Error())
		return
	}

	recs, err := h.records.List(c.Request.Context(), skip, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, recs)
}
