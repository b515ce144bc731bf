package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/quotecraft/quotecraft/internal/models"
)

func createService(t *testing.T, h *ServiceHandler, body string) models.Service {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/services", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create service: expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var svc models.Service
	if err := json.Unmarshal(w.Body.Bytes(), &svc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return svc
}

func TestServiceListFiltersInactive(t *testing.T) {
	conn := setupTestDB(t)
	h := NewServiceHandler(conn)
	createService(t, h, `{"name":"Consultoria","base_price":150,"category":"consultoria"}`)
	inactive := createService(t, h, `{"name":"Descontinuado","base_price":50}`)

	w := httptest.NewRecorder()
	h.Toggle(w, httptest.NewRequest(http.MethodPost, "/services/toggle?id="+strconv.Itoa(int(inactive.ID)), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("toggle: expected 200 got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/services", nil))
	var resp struct {
		Items []models.Service `json:"items"`
		Total int              `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if resp.Total != 1 || resp.Items[0].Name != "Consultoria" {
		t.Fatalf("default listing should hide inactive entries: %+v", resp)
	}

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/services?all=1", nil))
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("?all=1 should include inactive entries, got %d", resp.Total)
	}
}

func TestServiceValidation(t *testing.T) {
	conn := setupTestDB(t)
	h := NewServiceHandler(conn)

	for _, body := range []string{
		`{"name":"","base_price":10}`,
		`{"name":"Consultoria","base_price":-1}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/services", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.Create(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400 got %d", body, w.Code)
		}
	}
}

func TestServiceUpdateAndDelete(t *testing.T) {
	conn := setupTestDB(t)
	h := NewServiceHandler(conn)
	svc := createService(t, h, `{"name":"Consultoria","base_price":150}`)

	req := httptest.NewRequest(http.MethodPost, "/services/update?id="+strconv.Itoa(int(svc.ID)),
		strings.NewReader(`{"name":"Consultoria Premium","base_price":200}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Update(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var updated models.Service
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Name != "Consultoria Premium" || updated.BasePrice != 200 {
		t.Fatalf("update not applied: %+v", updated)
	}

	w = httptest.NewRecorder()
	h.Delete(w, httptest.NewRequest(http.MethodPost, "/services/delete?id="+strconv.Itoa(int(svc.ID)), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200 got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.Delete(w, httptest.NewRequest(http.MethodPost, "/services/delete?id="+strconv.Itoa(int(svc.ID)), nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404 got %d", w.Code)
	}
}
