package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agro-operations/internal/middleware"
	"github.com/iliyamo/agro-operations/internal/model"
	"github.com/iliyamo/agro-operations/internal/service"
)

// LogEntryStore is the persistence port of the log entry endpoints.
// *repository.LogEntryRepo satisfies it.
type LogEntryStore interface {
	List(ctx context.Context) ([]*model.LogEntry, error)
	GetByID(ctx context.Context, id uint64) (*model.LogEntry, error)
	Create(ctx context.Context, e *model.LogEntry) (*model.LogEntry, error)
	Update(ctx context.Context, id uint64, e *model.LogEntry) (*model.LogEntry, error)
	Delete(ctx context.Context, id uint64) error
}

// LogEntryHandler serves /api/registros.
type LogEntryHandler struct {
	Entries LogEntryStore
	now     func() time.Time
}

func NewLogEntryHandler(entries LogEntryStore) *LogEntryHandler {
	if entries == nil {
		panic("nil store passed to NewLogEntryHandler")
	}
	return &LogEntryHandler{Entries: entries, now: time.Now}
}

const msgEntryNotFound = "log entry not found"

type logEntryReq struct {
	Type        string   `json:"type" validate:"required,oneof=crop livestock maintenance production sale other"`
	Category    string   `json:"category" validate:"required,max=100"`
	Description string   `json:"description" validate:"required,min=5"`
	Date        string   `json:"date"`
	Quantity    *float64 `json:"quantity" validate:"omitempty,gte=0"`
	Unit        *string  `json:"unit" validate:"omitempty,oneof=kg tonnes liters units meters hectares other"`
	Cost        *float64 `json:"cost" validate:"omitempty,gte=0"`
	Income      *float64 `json:"income" validate:"omitempty,gte=0"`
	Notes       *string  `json:"notes"`
	CropID      *uint64  `json:"cropId" validate:"omitempty,gt=0"`
	AnimalID    *uint64  `json:"livestockId" validate:"omitempty,gt=0"`
}

// parseWhen accepts an RFC 3339 timestamp or a bare YYYY-MM-DD date.  An
// empty value means now.
func parseWhen(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(model.DateLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, service.Validation("validation failed",
		service.FieldError{Field: "date", Message: "must be a date (YYYY-MM-DD) or an RFC 3339 timestamp"})
}

// applyTo overlays the request on e.  An omitted date keeps the stored one,
// or becomes now for a new entry; omitted optional fields keep their stored
// values.
func (h *LogEntryHandler) applyTo(r logEntryReq, e *model.LogEntry) error {
	if strings.TrimSpace(r.Date) != "" || e.Date.IsZero() {
		when, err := parseWhen(r.Date, h.now())
		if err != nil {
			return err
		}
		e.Date = when
	}
	e.Type = r.Type
	e.Category = strings.TrimSpace(r.Category)
	e.Description = r.Description
	if r.Quantity != nil {
		e.Quantity = r.Quantity
	}
	if r.Unit != nil {
		e.Unit = r.Unit
	}
	if r.Cost != nil {
		e.Cost = r.Cost
	}
	if r.Income != nil {
		e.Income = r.Income
	}
	if r.Notes != nil {
		e.Notes = r.Notes
	}
	if r.CropID != nil {
		e.CropID = r.CropID
	}
	if r.AnimalID != nil {
		e.AnimalID = r.AnimalID
	}
	return nil
}

// List handles GET /api/registros.
func (h *LogEntryHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Entries.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, entries, len(entries))
}

// Get handles GET /api/registros/:id.
func (h *LogEntryHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Entries.GetByID(ctx, id)
	if err != nil {
		return recordError(c, err, msgEntryNotFound)
	}
	return respond(c, http.StatusOK, "", e)
}

// Create handles POST /api/registros.  The caller is recorded as author.
func (h *LogEntryHandler) Create(c echo.Context) error {
	var req logEntryReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	e := &model.LogEntry{}
	if err := h.applyTo(req, e); err != nil {
		return respondError(c, err)
	}
	e.RecordedByID = middleware.CurrentUserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	created, err := h.Entries.Create(ctx, e)
	if err != nil {
		return recordError(c, err, msgEntryNotFound)
	}
	return respond(c, http.StatusCreated, "log entry created successfully", created)
}

// Update handles PUT /api/registros/:id.  Required fields are replaced;
// the date and the optional fields keep their stored values when omitted.
// The author is kept.
func (h *LogEntryHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req logEntryReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Entries.GetByID(ctx, id)
	if err != nil {
		return recordError(c, err, msgEntryNotFound)
	}
	if err := h.applyTo(req, e); err != nil {
		return respondError(c, err)
	}

	updated, err := h.Entries.Update(ctx, id, e)
	if err != nil {
		return recordError(c, err, msgEntryNotFound)
	}
	return respond(c, http.StatusOK, "log entry updated successfully", updated)
}

// Delete handles DELETE /api/registros/:id.
func (h *LogEntryHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Entries.Delete(ctx, id); err != nil {
		return recordError(c, err, msgEntryNotFound)
	}
	return respond(c, http.StatusOK, "log entry deleted successfully", nil)
}
