package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agro-operations/internal/middleware"
	"github.com/iliyamo/agro-operations/internal/model"
	"github.com/iliyamo/agro-operations/internal/repository"
)

// LivestockStore is the persistence port of the livestock endpoints.
// *repository.LivestockRepo satisfies it.
type LivestockStore interface {
	List(ctx context.Context) ([]*model.Animal, error)
	GetByID(ctx context.Context, id uint64) (*model.Animal, error)
	Create(ctx context.Context, a *model.Animal) (*model.Animal, error)
	Update(ctx context.Context, id uint64, a *model.Animal) (*model.Animal, error)
	Delete(ctx context.Context, id uint64) error
}

// LivestockHandler serves /api/ganado.
type LivestockHandler struct {
	Animals LivestockStore
}

func NewLivestockHandler(animals LivestockStore) *LivestockHandler {
	if animals == nil {
		panic("nil store passed to NewLivestockHandler")
	}
	return &LivestockHandler{Animals: animals}
}

const (
	msgAnimalNotFound = "animal not found"
	msgTagTaken       = "an animal with that tag already exists"
)

type animalReq struct {
	Tag           string     `json:"tag" validate:"required,max=50"`
	Type          string     `json:"type" validate:"required,oneof=bovine porcine ovine caprine poultry other"`
	Breed         string     `json:"breed" validate:"required,max=100"`
	BirthDate     model.Date `json:"birthDate" validate:"required"`
	Sex           string     `json:"sex" validate:"required,oneof=male female"`
	InitialWeight *float64   `json:"initialWeight" validate:"omitempty,gte=0"`
	CurrentWeight *float64   `json:"currentWeight" validate:"omitempty,gte=0"`
	HealthStatus  string     `json:"healthStatus" validate:"omitempty,oneof=excellent good fair sick"`
	Notes         *string    `json:"notes"`
	Active        *bool      `json:"active"`
}

// toModel builds a new animal, active and in the default health status
// unless the request says otherwise.
func (r animalReq) toModel() *model.Animal {
	a := &model.Animal{HealthStatus: model.DefaultHealthStatus, Active: true}
	r.applyTo(a)
	return a
}

// applyTo overlays the request on a.  Optional fields that were not sent
// keep the value a already holds.
func (r animalReq) applyTo(a *model.Animal) {
	a.Tag = r.Tag
	a.Type = r.Type
	a.Breed = r.Breed
	a.BirthDate = r.BirthDate
	a.Sex = r.Sex
	if r.InitialWeight != nil {
		a.InitialWeight = r.InitialWeight
	}
	if r.CurrentWeight != nil {
		a.CurrentWeight = r.CurrentWeight
	}
	if r.HealthStatus != "" {
		a.HealthStatus = r.HealthStatus
	}
	if r.Notes != nil {
		a.Notes = r.Notes
	}
	if r.Active != nil {
		a.Active = *r.Active
	}
}

func (h *LivestockHandler) storeError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return fail(c, http.StatusBadRequest, msgTagTaken)
	}
	return recordError(c, err, msgAnimalNotFound)
}

// List handles GET /api/ganado.
func (h *LivestockHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	animals, err := h.Animals.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, animals, len(animals))
}

// Get handles GET /api/ganado/:id.
func (h *LivestockHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Animals.GetByID(ctx, id)
	if err != nil {
		return h.storeError(c, err)
	}
	return respond(c, http.StatusOK, "", a)
}

// Create handles POST /api/ganado.
func (h *LivestockHandler) Create(c echo.Context) error {
	var req animalReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	a := req.toModel()
	a.ResponsibleID = middleware.CurrentUserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	created, err := h.Animals.Create(ctx, a)
	if err != nil {
		return h.storeError(c, err)
	}
	return respond(c, http.StatusCreated, "animal created successfully", created)
}

// Update handles PUT /api/ganado/:id.  Required fields are replaced;
// omitted optional fields keep their stored values.
func (h *LivestockHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req animalReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Animals.GetByID(ctx, id)
	if err != nil {
		return h.storeError(c, err)
	}
	req.applyTo(a)

	updated, err := h.Animals.Update(ctx, id, a)
	if err != nil {
		return h.storeError(c, err)
	}
	return respond(c, http.StatusOK, "animal updated successfully", updated)
}

// Delete handles DELETE /api/ganado/:id.
func (h *LivestockHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Animals.Delete(ctx, id); err != nil {
		return h.storeError(c, err)
	}
	return respond(c, http.StatusOK, "animal deleted successfully", nil)
}
