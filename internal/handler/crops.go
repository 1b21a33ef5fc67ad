package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agro-operations/internal/middleware"
	"github.com/iliyamo/agro-operations/internal/model"
)

// CropStore is the persistence port of the crop endpoints.
// *repository.CropRepo satisfies it.
type CropStore interface {
	List(ctx context.Context) ([]*model.Crop, error)
	GetByID(ctx context.Context, id uint64) (*model.Crop, error)
	Create(ctx context.Context, c *model.Crop) (*model.Crop, error)
	Update(ctx context.Context, id uint64, c *model.Crop) (*model.Crop, error)
	Delete(ctx context.Context, id uint64) error
}

// CropHandler serves /api/cultivos.
type CropHandler struct {
	Crops CropStore
}

func NewCropHandler(crops CropStore) *CropHandler {
	if crops == nil {
		panic("nil store passed to NewCropHandler")
	}
	return &CropHandler{Crops: crops}
}

const msgCropNotFound = "crop not found"

type cropReq struct {
	Name                 string      `json:"name" validate:"required,max=100"`
	Type                 string      `json:"type" validate:"required,oneof=vegetable fruit cereal greens legume other"`
	Area                 *float64    `json:"area" validate:"required,gte=0"`
	Unit                 string      `json:"unit" validate:"omitempty,oneof=meters hectares"`
	Location             string      `json:"location" validate:"required,max=200"`
	PlantingDate         model.Date  `json:"plantingDate" validate:"required"`
	EstimatedHarvestDate *model.Date `json:"estimatedHarvestDate"`
	Status               string      `json:"status" validate:"omitempty,oneof=sowing growing flowering harvest completed"`
	Yield                *float64    `json:"yield" validate:"omitempty,gte=0"`
	Notes                *string     `json:"notes"`
}

// toModel builds a new crop; omitted unit and status take the column
// defaults.
func (r cropReq) toModel() *model.Crop {
	c := &model.Crop{Unit: model.DefaultCropUnit, Status: model.DefaultCropStatus}
	r.applyTo(c)
	return c
}

// applyTo overlays the request on c.  Optional fields that were not sent
// keep the value c already holds.
func (r cropReq) applyTo(c *model.Crop) {
	c.Name = r.Name
	c.Type = r.Type
	c.Area = *r.Area
	c.Location = r.Location
	c.PlantingDate = r.PlantingDate
	if r.Unit != "" {
		c.Unit = r.Unit
	}
	if r.Status != "" {
		c.Status = r.Status
	}
	if r.EstimatedHarvestDate != nil {
		c.EstimatedHarvestDate = r.EstimatedHarvestDate
	}
	if r.Yield != nil {
		c.Yield = r.Yield
	}
	if r.Notes != nil {
		c.Notes = r.Notes
	}
}

// List handles GET /api/cultivos.
func (h *CropHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	crops, err := h.Crops.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, crops, len(crops))
}

// Get handles GET /api/cultivos/:id.
func (h *CropHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	crop, err := h.Crops.GetByID(ctx, id)
	if err != nil {
		return recordError(c, err, msgCropNotFound)
	}
	return respond(c, http.StatusOK, "", crop)
}

// Create handles POST /api/cultivos.  The caller becomes the responsible user.
func (h *CropHandler) Create(c echo.Context) error {
	var req cropReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	crop := req.toModel()
	crop.ResponsibleID = middleware.CurrentUserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	created, err := h.Crops.Create(ctx, crop)
	if err != nil {
		return recordError(c, err, msgCropNotFound)
	}
	return respond(c, http.StatusCreated, "crop created successfully", created)
}

// Update handles PUT /api/cultivos/:id.  Required fields are replaced;
// omitted optional fields keep their stored values.
func (h *CropHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req cropReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	crop, err := h.Crops.GetByID(ctx, id)
	if err != nil {
		return recordError(c, err, msgCropNotFound)
	}
	req.applyTo(crop)

	updated, err := h.Crops.Update(ctx, id, crop)
	if err != nil {
		return recordError(c, err, msgCropNotFound)
	}
	return respond(c, http.StatusOK, "crop updated successfully", updated)
}

// Delete handles DELETE /api/cultivos/:id.
func (h *CropHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Crops.Delete(ctx, id); err != nil {
		return recordError(c, err, msgCropNotFound)
	}
	return respond(c, http.StatusOK, "crop deleted successfully", nil)
}
