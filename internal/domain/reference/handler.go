package reference

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/pkg/pagination"
	"github.com/medbook/medbook/pkg/respond"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "staff", "doctor", "reception"))
	readGroup.GET("/doctors", h.ListDoctors)
	readGroup.GET("/patients", h.ListPatients)
	readGroup.GET("/specialties", h.ListSpecialties)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.repo.ListDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.repo.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListSpecialties(c echo.Context) error {
	items, err := h.repo.ListSpecialties(c.Request().Context())
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.OK(c, http.StatusOK, items)
}
