package appointment

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

func postJSON(e *echo.Echo, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandlerCreateHeader(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	e := newTestEcho()

	body := `{"patient_id":"` + env.patientID.String() + `","schedule_id":"` + env.scheduleID.String() + `"}`
	c, rec := postJSON(e, "/appointment-headers", body)

	if err := h.CreateHeader(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool   `json:"success"`
		Data    Header `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.Status != HeaderActive {
		t.Errorf("expected status Active, got %s", resp.Data.Status)
	}
}

func TestHandlerListHeaders(t *testing.T) {
	env := newTestEnv()
	for i := 0; i < 3; i++ {
		env.newHeader(t)
	}
	h := NewHandler(env.svc)
	e := newTestEcho()

	req := httptest.NewRequest(http.MethodGet, "/appointment-headers?limit=2&offset=0", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListHeaders(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Data    []Header `json:"data"`
			Total   int      `json:"total"`
			Limit   int      `json:"limit"`
			Offset  int      `json:"offset"`
			HasMore bool     `json:"has_more"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.Total != 3 {
		t.Errorf("expected total 3, got %d", resp.Data.Total)
	}
	if resp.Data.Limit != 2 || resp.Data.Offset != 0 {
		t.Errorf("expected limit 2 offset 0, got %d/%d", resp.Data.Limit, resp.Data.Offset)
	}
	if !resp.Data.HasMore {
		t.Error("expected has_more with 3 headers and limit 2")
	}
}

func TestHandlerCreateHeader_Validation(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	e := newTestEcho()

	c, rec := postJSON(e, "/appointment-headers", `{}`)
	if err := h.CreateHeader(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandlerCreateDetail(t *testing.T) {
	env := newTestEnv()
	hdr := env.newHeader(t)
	slotID := env.ledger.addSlot(2)
	h := NewHandler(env.svc)
	e := newTestEcho()

	body := `{"header_id":"` + hdr.ID.String() + `","slot_id":"` + slotID.String() + `",
		"date":"2026-09-14","time":"09:30","status_id":"` + env.confirmed.String() + `"}`
	c, rec := postJSON(e, "/appointment-details", body)

	if err := h.CreateDetail(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := env.ledger.remaining(slotID); got != 1 {
		t.Errorf("expected remaining 1, got %d", got)
	}
}

func TestHandlerCreateDetail_NoCapacity(t *testing.T) {
	env := newTestEnv()
	hdr := env.newHeader(t)
	slotID := env.ledger.addSlot(1)
	h := NewHandler(env.svc)
	e := newTestEcho()

	first := env.newDetail(hdr.ID, slotID, env.confirmed)
	if err := env.svc.CreateDetail(context.Background(), first); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	body := `{"header_id":"` + hdr.ID.String() + `","slot_id":"` + slotID.String() + `",
		"date":"2026-09-14","time":"10:00","status_id":"` + env.confirmed.String() + `"}`
	c, rec := postJSON(e, "/appointment-details", body)

	if err := h.CreateDetail(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
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
	if resp.Error.Code != "NoCapacity" {
		t.Errorf("expected error code NoCapacity, got %s", resp.Error.Code)
	}
}

func TestHandlerCreateDetail_Validation(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	e := newTestEcho()

	tests := []struct {
		name string
		body string
	}{
		{"missing fields", `{}`},
		{"bad time", `{"header_id":"` + uuid.New().String() + `","slot_id":"` + uuid.New().String() + `","date":"2026-09-14","time":"half past nine","status_id":"` + env.confirmed.String() + `"}`},
		{"bad date", `{"header_id":"` + uuid.New().String() + `","slot_id":"` + uuid.New().String() + `","date":"tomorrow","time":"09:30","status_id":"` + env.confirmed.String() + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := postJSON(e, "/appointment-details", tt.body)
			if err := h.CreateDetail(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandlerDeleteDetail(t *testing.T) {
	env := newTestEnv()
	hdr := env.newHeader(t)
	slotID := env.ledger.addSlot(2)
	h := NewHandler(env.svc)
	e := newTestEcho()

	d := env.newDetail(hdr.ID, slotID, env.confirmed)
	if err := env.svc.CreateDetail(context.Background(), d); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/appointment-details/"+d.ID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())

	if err := h.DeleteDetail(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if got := env.ledger.remaining(slotID); got != 2 {
		t.Errorf("expected released unit, remaining %d", got)
	}
}

func TestHandlerListStatuses(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	e := newTestEcho()

	req := httptest.NewRequest(http.MethodGet, "/appointment-statuses", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListStatuses(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data []StatusDefinition `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Errorf("expected 2 seeded statuses, got %d", len(resp.Data))
	}
}
