package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/pumpschedule/internal/domain/flowrate"
	"github.com/mamadbah2/pumpschedule/internal/domain/models"
	"github.com/mamadbah2/pumpschedule/internal/service/export"
	"github.com/mamadbah2/pumpschedule/internal/service/scheduling"
)

const (
	dateLayout    = "2006-01-02"
	retryAfterSec = "5"
)

// naive timestamps are read in the service timezone.
var localLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}

// EntryService describes the schedule operations the HTTP layer can perform.
type EntryService interface {
	Create(ctx context.Context, in models.EntryInput) (models.ScheduleEntry, error)
	Update(ctx context.Context, id string, in models.EntryInput) (models.ScheduleEntry, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (models.ScheduleEntry, error)
	ListForDate(ctx context.Context, date time.Time) ([]models.ScheduleEntry, error)
	SuggestStart(ctx context.Context, company, product string, date time.Time) (time.Time, error)
	Location() *time.Location
}

// RateTable exposes the active flow rate table.
type RateTable interface {
	Table() *flowrate.Table
}

// EntryHandler serves the schedule entry API.
type EntryHandler struct {
	svc    EntryService
	rates  RateTable
	logger *zap.Logger
}

// NewEntryHandler constructs the HTTP handler adapter.
func NewEntryHandler(svc EntryService, rates RateTable, logger *zap.Logger) *EntryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntryHandler{svc: svc, rates: rates, logger: logger}
}

type entryRequest struct {
	Company string  `json:"company"`
	Product string  `json:"product"`
	Quota   float64 `json:"quota"`
	Start   string  `json:"start"`
	End     *string `json:"end"`
}

// Create schedules a new pumping.
func (h *EntryHandler) Create(c *gin.Context) {
	in, ok := h.bindInput(c)
	if !ok {
		return
	}

	entry, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "create entry", err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// Update replaces an entry and re-derives its end and duration.
func (h *EntryHandler) Update(c *gin.Context) {
	in, ok := h.bindInput(c)
	if !ok {
		return
	}

	entry, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, "update entry", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Delete removes an entry.
func (h *EntryHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "delete entry", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Get returns one entry.
func (h *EntryHandler) Get(c *gin.Context) {
	entry, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get entry", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// List returns the entries starting on ?date= (today when omitted).
func (h *EntryHandler) List(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}

	entries, err := h.svc.ListForDate(c.Request.Context(), date)
	if err != nil {
		h.fail(c, "list entries", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// SuggestStart proposes a start time for ?company=&product= on ?date=.
func (h *EntryHandler) SuggestStart(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}

	company, product := c.Query("company"), c.Query("product")
	if strings.TrimSpace(company) == "" || strings.TrimSpace(product) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company and product are required"})
		return
	}

	start, err := h.svc.SuggestStart(c.Request.Context(), company, product, date)
	if err != nil {
		h.fail(c, "suggest start", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"start": start})
}

// Timeline returns the chart bars of ?date=.
func (h *EntryHandler) Timeline(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}

	entries, err := h.svc.ListForDate(c.Request.Context(), date)
	if err != nil {
		h.fail(c, "timeline", err)
		return
	}
	c.JSON(http.StatusOK, scheduling.Timeline(entries, h.svc.Location()))
}

// ExportXLSX streams the schedule of ?date= as a workbook.
func (h *EntryHandler) ExportXLSX(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}

	entries, err := h.svc.ListForDate(c.Request.Context(), date)
	if err != nil {
		h.fail(c, "export entries", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, date, scheduling.Timeline(entries, h.svc.Location())); err != nil {
		h.logger.Error("failed to render workbook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render workbook"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(date)))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// FlowRates returns the active rate table.
func (h *EntryHandler) FlowRates(c *gin.Context) {
	c.JSON(http.StatusOK, h.rates.Table().Spec())
}

func (h *EntryHandler) bindInput(c *gin.Context) (models.EntryInput, bool) {
	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid entry payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return models.EntryInput{}, false
	}

	in := models.EntryInput{Company: req.Company, Product: req.Product, Quota: req.Quota}

	if strings.TrimSpace(req.Start) != "" {
		start, err := h.parseTimestamp(req.Start)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start: " + err.Error()})
			return models.EntryInput{}, false
		}
		in.Start = start
	}

	if req.End != nil && strings.TrimSpace(*req.End) != "" {
		end, err := h.parseTimestamp(*req.End)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end: " + err.Error()})
			return models.EntryInput{}, false
		}
		in.End = &end
	}

	return in, true
}

func (h *EntryHandler) parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, h.svc.Location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not RFC3339 or YYYY-MM-DDTHH:MM", value)
}

func (h *EntryHandler) dateParam(c *gin.Context) (time.Time, bool) {
	loc := h.svc.Location()
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		return time.Now().In(loc), true
	}

	date, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return date, true
}

func (h *EntryHandler) fail(c *gin.Context, op string, err error) {
	var vErr *models.ValidationError

	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &vErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "field": vErr.Field})
	case models.IsValidation(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrStoreUnavailable):
		h.logger.Error(op+" failed", zap.Error(err))
		c.Header("Retry-After", retryAfterSec)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "schedule store unavailable, retry later"})
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
