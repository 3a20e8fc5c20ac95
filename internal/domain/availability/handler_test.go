package availability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/platform/middleware"
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = middleware.NewValidator()
	return e
}

func TestHandlerCreate(t *testing.T) {
	svc, _, doctorID := newTestService()
	h := NewHandler(svc)
	e := newTestEcho()

	body := `{"doctor_id":"` + doctorID.String() + `","day_id":1,"shift_id":"` + uuid.New().String() + `",
		"date":"2026-09-14","start_time":"09:00","end_time":"12:00","seat_count":4}`
	req := httptest.NewRequest(http.MethodPost, "/availability-templates", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool     `json:"success"`
		Data    Template `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success envelope")
	}
	if resp.Data.SeatCount != 4 {
		t.Errorf("expected seat_count 4, got %d", resp.Data.SeatCount)
	}
}

func TestHandlerCreate_ValidationErrors(t *testing.T) {
	svc, _, doctorID := newTestService()
	h := NewHandler(svc)
	e := newTestEcho()

	tests := []struct {
		name string
		body string
	}{
		{"zero seats", `{"doctor_id":"` + doctorID.String() + `","day_id":1,"shift_id":"` + uuid.New().String() + `","date":"2026-09-14","start_time":"09:00","end_time":"12:00","seat_count":0}`},
		{"bad time format", `{"doctor_id":"` + doctorID.String() + `","day_id":1,"shift_id":"` + uuid.New().String() + `","date":"2026-09-14","start_time":"9am","end_time":"12:00","seat_count":4}`},
		{"bad date format", `{"doctor_id":"` + doctorID.String() + `","day_id":1,"shift_id":"` + uuid.New().String() + `","date":"14/09/2026","start_time":"09:00","end_time":"12:00","seat_count":4}`},
		{"missing fields", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/availability-templates", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := h.Create(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandlerCreate_OverlapConflict(t *testing.T) {
	svc, _, doctorID := newTestService()
	h := NewHandler(svc)
	e := newTestEcho()

	mk := func() (*httptest.ResponseRecorder, echo.Context) {
		body := `{"doctor_id":"` + doctorID.String() + `","day_id":1,"shift_id":"` + uuid.New().String() + `",
			"date":"2026-09-14","start_time":"09:00","end_time":"12:00","seat_count":4}`
		req := httptest.NewRequest(http.MethodPost, "/availability-templates", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		return rec, e.NewContext(req, rec)
	}

	rec, c := mk()
	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec, c = mk()
	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Error.Code != "Conflict" {
		t.Errorf("expected error code Conflict, got %s", resp.Error.Code)
	}
}

func TestHandlerGet_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := newTestEcho()

	req := httptest.NewRequest(http.MethodGet, "/availability-templates/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandlerDelete(t *testing.T) {
	svc, _, doctorID := newTestService()
	h := NewHandler(svc)
	e := newTestEcho()

	tpl := validTemplate(doctorID)
	if err := svc.Create(context.Background(), tpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/availability-templates/"+tpl.ID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(tpl.ID.String())

	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}
