package appointment

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
	readGroup.GET("/appointment-statuses", h.ListStatuses)
	readGroup.GET("/appointment-statuses/:id", h.GetStatus)
	readGroup.GET("/appointment-headers", h.ListHeaders)
	readGroup.GET("/appointment-headers/:id", h.GetHeader)
	readGroup.GET("/appointment-headers/:id/details", h.ListDetails)
	readGroup.GET("/appointment-details/:id", h.GetDetail)

	writeGroup := api.Group("", auth.RequireRole("admin", "staff"))
	writeGroup.POST("/appointment-statuses", h.CreateStatus)
	writeGroup.PUT("/appointment-statuses/:id", h.UpdateStatus)
	writeGroup.DELETE("/appointment-statuses/:id", h.DeleteStatus)
	writeGroup.POST("/appointment-headers", h.CreateHeader)
	writeGroup.PUT("/appointment-headers/:id", h.UpdateHeader)
	writeGroup.DELETE("/appointment-headers/:id", h.DeleteHeader)
	writeGroup.PATCH("/appointment-headers/:id/status", h.SetHeaderStatus)
	writeGroup.POST("/appointment-details", h.CreateDetail)
	writeGroup.PUT("/appointment-details/:id", h.UpdateDetail)
	writeGroup.DELETE("/appointment-details/:id", h.DeleteDetail)
}

type statusDefinitionRequest struct {
	Label            string `json:"label" validate:"required"`
	OccupiesCapacity bool   `json:"occupies_capacity"`
}

type headerRequest struct {
	PatientID  uuid.UUID `json:"patient_id" validate:"required"`
	ScheduleID uuid.UUID `json:"schedule_id" validate:"required"`
	Notes      *string   `json:"notes,omitempty"`
}

type headerStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type detailRequest struct {
	HeaderID uuid.UUID `json:"header_id" validate:"required"`
	SlotID   uuid.UUID `json:"slot_id" validate:"required"`
	Date     string    `json:"date" validate:"required,datetime=2006-01-02"`
	Time     string    `json:"time" validate:"required,datetime=15:04"`
	Reason   *string   `json:"reason,omitempty"`
	StatusID uuid.UUID `json:"status_id" validate:"required"`
}

func (req *detailRequest) toModel() (*Detail, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, apperr.Validation("invalid date: %s", req.Date)
	}
	slotID := req.SlotID
	return &Detail{
		HeaderID: req.HeaderID,
		SlotID:   &slotID,
		Date:     date,
		Time:     req.Time,
		Reason:   req.Reason,
		StatusID: req.StatusID,
	}, nil
}

func paramID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid id: %s", c.Param("id"))
	}
	return id, nil
}

// -- Status Policy --

func (h *Handler) CreateStatus(c echo.Context) error {
	var req statusDefinitionRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, apperr.Validation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, err)
	}
	def := &StatusDefinition{Label: req.Label, OccupiesCapacity: req.OccupiesCapacity}
	if err := h.svc.CreateStatus(c.Request().Context(), def); err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusCreated, def)
}

func (h *Handler) GetStatus(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond.Error(c, err)
	}
	def, err := h.svc.GetStatus(c.Request().Context(), id)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, def)
}

func (h *Handler) ListStatuses(c echo.Context) error {
	defs, err := h.svc.ListStatuses(c.Request().Context())
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, defs)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond.Error(c, err)
	}
	var req statusDefinitionRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, apperr.Validation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, err)
	}
	def := &StatusDefinition{ID: id, Label: req.Label, OccupiesCapacity: req.OccupiesCapacity}
	if err := h.svc.UpdateStatus(c.Request().Context(), def); err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, def)
}

func (h *Handler) DeleteStatus(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond.Error(c, err)
	}
	if err := h.svc.DeleteStatus(c.Request().Context(), id); err != nil {
		return respond.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Headers --

func (h *Handler) CreateHeader(c echo.Context) error {
	var req headerRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, apperr.Validation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, err)
	}
	hdr := &Header{PatientID: req.PatientID, ScheduleID: &req.ScheduleID, Notes: req.Notes}
	if staffID, err := uuid.Parse(auth.StaffIDFromContext(c.Request().Context())); err == nil {
		hdr.StaffID = staffID
	}
	if err := h.svc.CreateHeader(c.Request().Context(), hdr); err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusCreated, hdr)
}

func (h *Handler) GetHeader(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond.Error(c, err)
	}
	hdr, err := h.svc.GetHeader(c.Request().Context(), id)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, hdr)
}

func (h *Handler) ListHeaders(c echo.Context) error {
	params := pagination.FromContext(c)
	items, total, err := h.svc.ListHeaders(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) UpdateHeader(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond.Error(c, err)
	}
	var req headerRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, apperr.Validation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, err)
	}
	hdr := &Header{ID: id, PatientID: req.PatientID, ScheduleID: &req.ScheduleID, Notes: req.Notes}
	if err := h.svc.UpdateHeader(c.Request().Context(), hdr); err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, hdr)
}

func (h *Handler) SetHeaderStatus(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond.Error(c, err)
	}
	var req headerStatusRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, apperr.Validation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, err)
	}
	if err := h.svc.SetHeaderStatus(c.Request().Context(), id, req.Status); err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, map[string]string{"id": id.String(), "status": req.Status})
}

func (h *Handler) DeleteHeader(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond.Error(c, err)
	}
	if err := h.svc.DeleteHeader(c.Request().Context(), id); err != nil {
		return respond.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListDetails(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond.Error(c, err)
	}
	details, err := h.svc.ListDetailsByHeader(c.Request().Context(), id)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, details)
}

// -- Details --

func (h *Handler) CreateDetail(c echo.Context) error {
	var req detailRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, apperr.Validation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, err)
	}
	d, err := req.toModel()
	if err != nil {
		return respond.Error(c, err)
	}
	if err := h.svc.CreateDetail(c.Request().Context(), d); err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusCreated, d)
}

func (h *Handler) GetDetail(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond.Error(c, err)
	}
	d, err := h.svc.GetDetail(c.Request().Context(), id)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, d)
}

func (h *Handler) UpdateDetail(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond.Error(c, err)
	}
	var req detailRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, apperr.Validation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respond.Error(c, err)
	}
	d, err := req.toModel()
	if err != nil {
		return respond.Error(c, err)
	}
	d.ID = id
	if err := h.svc.UpdateDetail(c.Request().Context(), d); err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, d)
}

func (h *Handler) DeleteDetail(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return respond.Error(c, err)
	}
	if err := h.svc.DeleteDetail(c.Request().Context(), id); err != nil {
		return respond.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
