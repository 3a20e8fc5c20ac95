package schedule

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/pkg/pagination"
	"github.com/medbook/medbook/pkg/respond"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "staff", "doctor", "reception"))
	readGroup.GET("/schedules", h.List)
	readGroup.GET("/schedules/:id", h.Get)
	readGroup.GET("/schedules/:id/slots", h.ListSlots)
	readGroup.GET("/slots/:id", h.GetSlot)
	readGroup.GET("/slots/:id/capacity", h.GetCapacity)

	writeGroup := api.Group("", auth.RequireRole("admin", "staff"))
	writeGroup.POST("/schedules", h.Publish)
	writeGroup.PUT("/schedules/:id", h.Update)
	writeGroup.DELETE("/schedules/:id", h.Delete)
	writeGroup.PATCH("/schedules/:id/status", h.SetStatus)
	writeGroup.POST("/schedules/:id/slots", h.Materialize)
	writeGroup.DELETE("/slots/:id", h.DeleteSlot)
	writeGroup.PATCH("/slots/:id/capacity", h.SetCapacity)
	writeGroup.PATCH("/slots/:id/status", h.SetSlotStatus)
}

type scheduleRequest struct {
	DoctorID    uuid.UUID `json:"doctor_id" validate:"required"`
	SpecialtyID uuid.UUID `json:"specialty_id" validate:"required"`
	Date        string    `json:"date" validate:"required,datetime=2006-01-02"`
	Notes       *string   `json:"notes,omitempty"`
}

func (req *scheduleRequest) toModel() (*Schedule, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, apperr.Validation("invalid date: %s", req.Date)
	}
	return &Schedule{
		DoctorID:    req.DoctorID,
		SpecialtyID: req.SpecialtyID,
		Date:        date,
		Notes:       req.Notes,
	}, nil
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type capacityRequest struct {
	CapacityRemaining *int `json:"capacity_remaining" validate:"required,min=0"`
}

type materializeRequest struct {
	TemplateIDs []uuid.UUID `json:"template_ids" validate:"required,min=1"`
}

// -- Schedule --

func (h *Handler) Publish(c echo.Context) error {
	var req scheduleRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, apperr.Validation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, err)
	}
	sched, err := req.toModel()
	if err != nil {
		return respond.Error(c, err)
	}
	if staffID, parseErr := uuid.Parse(auth.StaffIDFromContext(c.Request().Context())); parseErr == nil {
		sched.StaffID = staffID
	}
	if err := h.svc.Publish(c.Request().Context(), sched); err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusCreated, sched)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, apperr.Validation("invalid id"))
	}
	sched, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, sched)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	var doctorID uuid.UUID
	if raw := c.QueryParam("doctor_id"); raw != "" {
		var err error
		doctorID, err = uuid.Parse(raw)
		if err != nil {
			return respond.Error(c, apperr.Validation("invalid doctor_id"))
		}
	}
	items, total, err := h.svc.List(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, apperr.Validation("invalid id"))
	}
	var req scheduleRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, apperr.Validation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, err)
	}
	sched, err := req.toModel()
	if err != nil {
		return respond.Error(c, err)
	}
	sched.ID = id
	if err := h.svc.Update(c.Request().Context(), sched); err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, sched)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, apperr.Validation("invalid id"))
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return respond.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, apperr.Validation("invalid id"))
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, apperr.Validation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, err)
	}
	if err := h.svc.SetStatus(c.Request().Context(), id, req.Status); err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, map[string]string{"id": id.String(), "status": req.Status})
}

// -- Slots --

func (h *Handler) Materialize(c echo.Context) error {
	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, apperr.Validation("invalid id"))
	}
	var req materializeRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, apperr.Validation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, err)
	}
	result, err := h.svc.Materialize(c.Request().Context(), scheduleID, req.TemplateIDs)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusCreated, result)
}

func (h *Handler) ListSlots(c echo.Context) error {
	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, apperr.Validation("invalid id"))
	}
	items, err := h.svc.ListSlots(c.Request().Context(), scheduleID)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, items)
}

func (h *Handler) GetSlot(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, apperr.Validation("invalid id"))
	}
	sl, err := h.svc.GetSlot(c.Request().Context(), id)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, sl)
}

func (h *Handler) DeleteSlot(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, apperr.Validation("invalid id"))
	}
	if err := h.svc.DeleteSlot(c.Request().Context(), id); err != nil {
		return respond.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetCapacity(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, apperr.Validation("invalid id"))
	}
	var req capacityRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, apperr.Validation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, err)
	}
	sl, err := h.svc.SetCapacity(c.Request().Context(), id, *req.CapacityRemaining)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, sl)
}

func (h *Handler) SetSlotStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, apperr.Validation("invalid id"))
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, apperr.Validation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, err)
	}
	if err := h.svc.SetSlotStatus(c.Request().Context(), id, req.Status); err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, map[string]string{"id": id.String(), "status": req.Status})
}

// GetCapacity serves the advisory pre-flight read.
func (h *Handler) GetCapacity(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, apperr.Validation("invalid id"))
	}
	remaining, err := h.svc.GetCapacity(c.Request().Context(), id)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, map[string]interface{}{
		"slot_id":            id,
		"capacity_remaining": remaining,
	})
}
