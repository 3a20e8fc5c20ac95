package availability

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
	readGroup.GET("/availability-templates", h.List)
	readGroup.GET("/availability-templates/:id", h.Get)

	writeGroup := api.Group("", auth.RequireRole("admin", "staff"))
	writeGroup.POST("/availability-templates", h.Create)
	writeGroup.PUT("/availability-templates/:id", h.Update)
	writeGroup.DELETE("/availability-templates/:id", h.Delete)
}

type templateRequest struct {
	DoctorID  uuid.UUID `json:"doctor_id" validate:"required"`
	DayID     int       `json:"day_id" validate:"required,min=1,max=7"`
	ShiftID   uuid.UUID `json:"shift_id" validate:"required"`
	Date      string    `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string    `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string    `json:"end_time" validate:"required,datetime=15:04"`
	SeatCount int       `json:"seat_count" validate:"required,min=1"`
}

func (req *templateRequest) toModel() (*Template, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, apperr.Validation("invalid date: %s", req.Date)
	}
	return &Template{
		DoctorID:  req.DoctorID,
		DayID:     req.DayID,
		ShiftID:   req.ShiftID,
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		SeatCount: req.SeatCount,
	}, nil
}

func (h *Handler) Create(c echo.Context) error {
	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, apperr.Validation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, err)
	}
	t, err := req.toModel()
	if err != nil {
		return respond.Error(c, err)
	}
	if err := h.svc.Create(c.Request().Context(), t); err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusCreated, t)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Error(c, apperr.Validation("invalid id"))
	}
	t, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, t)
}

func (h *Handler) List(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("doctor_id"))
	if err != nil {
		return respond.Error(c, apperr.Validation("doctor_id query parameter is required"))
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByDoctor(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
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
	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, apperr.Validation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, err)
	}
	t, err := req.toModel()
	if err != nil {
		return respond.Error(c, err)
	}
	t.ID = id
	if err := h.svc.Update(c.Request().Context(), t); err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, t)
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
