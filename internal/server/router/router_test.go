package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mamadbah2/pumpschedule/internal/domain/flowrate"
	"github.com/mamadbah2/pumpschedule/internal/domain/models"
	"github.com/mamadbah2/pumpschedule/internal/metrics"
	"github.com/mamadbah2/pumpschedule/internal/repository/memory"
	"github.com/mamadbah2/pumpschedule/internal/server/handlers"
	"github.com/mamadbah2/pumpschedule/internal/service/scheduling"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	m := metrics.New()
	svc := scheduling.NewService(memory.NewEntryRepository(), flowrate.Default(), scheduling.Options{Location: time.UTC, Metrics: m}, nil)
	rates, err := flowrate.NewSource("", nil)
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	return New(handlers.NewEntryHandler(svc, rates, nil), m.Handler(), nil)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestEntryLifecycleOverHTTP(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/v1/entries", `{"company":"POO","product":"S10","quota":1800,"start":"2024-10-01T06:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	var created models.ScheduleEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.Duration != "01:30" || created.FlowRate != 1200 {
		t.Fatalf("unexpected entry %+v", created)
	}
	if want := time.Date(2024, 10, 1, 7, 30, 0, 0, time.UTC); !created.End.Equal(want) {
		t.Errorf("end = %v, want %v", created.End, want)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/entries?date=2024-10-01", "")
	var listed []models.ScheduleEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil || len(listed) != 1 {
		t.Fatalf("list = %s (%v)", rec.Body.String(), err)
	}

	rec = do(t, h, http.MethodPut, "/api/v1/entries/"+created.ID, `{"company":"ABC","product":"S10","quota":1800,"start":"2024-10-01T06:00:00Z"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"duration":"03:00"`) {
		t.Fatalf("update status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/v1/entries/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/timeline?date=2024-10-01", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ABC (06:00 - 09:00)") {
		t.Fatalf("timeline = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/v1/suggest-start?company=ABC&product=S10&date=2024-10-02", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "2024-10-02T06:15:00Z") {
		t.Fatalf("suggest = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodDelete, "/api/v1/entries/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/v1/entries/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	h := newTestServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed json", http.MethodPost, "/api/v1/entries", `{"company":`, http.StatusBadRequest},
		{"bad timestamp", http.MethodPost, "/api/v1/entries", `{"company":"A","product":"GAS","quota":1,"start":"tomorrow"}`, http.StatusBadRequest},
		{"unknown product", http.MethodPost, "/api/v1/entries", `{"company":"A","product":"XYZ","quota":1,"start":"2024-10-01T06:00"}`, http.StatusUnprocessableEntity},
		{"missing start", http.MethodPost, "/api/v1/entries", `{"company":"A","product":"GAS","quota":1}`, http.StatusUnprocessableEntity},
		{"end before start", http.MethodPost, "/api/v1/entries", `{"company":"A","product":"GAS","quota":1,"start":"2024-10-01T06:00","end":"2024-10-01T05:00"}`, http.StatusUnprocessableEntity},
		{"update unknown", http.MethodPut, "/api/v1/entries/nope", `{"company":"A","product":"GAS","quota":1,"start":"2024-10-01T06:00"}`, http.StatusNotFound},
		{"delete unknown", http.MethodDelete, "/api/v1/entries/nope", "", http.StatusNotFound},
		{"bad date", http.MethodGet, "/api/v1/entries?date=01/10/2024", "", http.StatusBadRequest},
		{"suggest without product", http.MethodGet, "/api/v1/suggest-start?company=A", "", http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d (body=%s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestAuxiliaryRoutes(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/flow-rates", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"QAV":240`) {
		t.Errorf("flow-rates = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/v1/entries/export.xlsx?date=2024-10-01", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get("Content-Disposition"), "bombeios_20241001.xlsx") {
		t.Errorf("export = %d %v", rec.Code, rec.Header())
	}

	do(t, h, http.MethodPost, "/api/v1/entries", `{"company":"A","product":"XYZ","quota":1,"start":"2024-10-01T06:00"}`)
	rec = do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `pumpschedule_operations_total{op="create",result="invalid"} 1`) {
		t.Errorf("metrics missing operation counter: %s", rec.Body.String())
	}
}
