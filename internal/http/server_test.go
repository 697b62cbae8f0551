package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tanklog/internal/backend"
	"tanklog/internal/services"
	"tanklog/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	repo := storage.NewMemoryRepository()
	b := &backend.Backend{
		Repo:     repo,
		Fillups:  services.NewFillupService(repo, nil),
		Vehicles: services.NewVehicleService(repo),
		Imports:  services.NewImportService(repo, nil, 1000),
		Stats:    services.NewStatsService(repo),
	}

	srv := NewServer(":0", b, nil)
	ts := httptest.NewServer(srv.Server.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return srv, ts
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func createVehicle(t *testing.T, ts *httptest.Server, body string) vehicleResponse {
	t.Helper()
	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/vehicles", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create vehicle status = %d, body %s", resp.StatusCode, raw)
	}
	var v vehicleResponse
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode vehicle: %v", err)
	}
	return v
}

func TestCreateAndGetVehicle(t *testing.T) {
	_, ts := newTestServer(t)

	v := createVehicle(t, ts, `{"name":"Kangoo","mode":"odometer","initial_odometer":42000}`)
	if v.ID == 0 || v.Name != "Kangoo" || v.Mode != "odometer" || v.InitialOdometer != 42000 {
		t.Fatalf("unexpected vehicle: %+v", v)
	}

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/api/vehicles/1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get vehicle status = %d", resp.StatusCode)
	}
	var got vehicleResponse
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "Kangoo" {
		t.Errorf("name = %q, want Kangoo", got.Name)
	}
}

func TestCreateVehicleInvalidMode(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/vehicles", `{"name":"X","mode":"miles"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestRenameVehicleRejectsModeChange(t *testing.T) {
	_, ts := newTestServer(t)
	createVehicle(t, ts, `{"name":"Kangoo","mode":"odometer"}`)

	// Mode is immutable; the unknown field must be rejected outright.
	resp, _ := doJSON(t, http.MethodPatch, ts.URL+"/api/vehicles/1", `{"name":"New","mode":"distance"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	resp, raw := doJSON(t, http.MethodPatch, ts.URL+"/api/vehicles/1", `{"name":"Berlingo"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rename status = %d, body %s", resp.StatusCode, raw)
	}
	var v vehicleResponse
	_ = json.Unmarshal(raw, &v)
	if v.Name != "Berlingo" || v.Mode != "odometer" {
		t.Errorf("renamed vehicle = %+v", v)
	}
}

func TestCreateFillupDerivesAgainstPredecessor(t *testing.T) {
	_, ts := newTestServer(t)
	createVehicle(t, ts, `{"name":"Kangoo","mode":"odometer","initial_odometer":1000}`)

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/vehicles/1/fillups",
		`{"date":"2025-06-01","fuel_amount":"40","total_price":"70","odometer":"1500"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first fillup status = %d, body %s", resp.StatusCode, raw)
	}

	resp, raw = doJSON(t, http.MethodPost, ts.URL+"/api/vehicles/1/fillups",
		`{"date":"2025-06-10","fuel_amount":"50","total_price":"90","odometer":"2000"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("second fillup status = %d, body %s", resp.StatusCode, raw)
	}

	var out fillupWithWarnings
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Fillup.DistanceTraveled == nil || *out.Fillup.DistanceTraveled != 500 {
		t.Errorf("distance traveled = %v, want 500", out.Fillup.DistanceTraveled)
	}
	if out.Fillup.Consumption == nil || *out.Fillup.Consumption != 10 {
		t.Errorf("consumption = %v, want 10", out.Fillup.Consumption)
	}
}

func TestCreateFillupValidationErrors(t *testing.T) {
	_, ts := newTestServer(t)
	createVehicle(t, ts, `{"name":"Kangoo","mode":"odometer"}`)

	// Both the date and the amount are invalid; the response must list every
	// failing field at once.
	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/vehicles/1/fillups",
		`{"date":"junk","fuel_amount":"-1","total_price":"70","odometer":"1000"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}

	var payload struct {
		Error  string `json:"error"`
		Fields []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Fields) < 2 {
		t.Errorf("fields = %v, want at least date and fuel_amount", payload.Fields)
	}
}

func TestDeleteFillup(t *testing.T) {
	_, ts := newTestServer(t)
	createVehicle(t, ts, `{"name":"Kangoo","mode":"distance"}`)

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/vehicles/1/fillups",
		`{"date":"2025-06-01","fuel_amount":"40","total_price":"70","distance":"500"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", resp.StatusCode, raw)
	}
	var out fillupWithWarnings
	_ = json.Unmarshal(raw, &out)

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/fillups/1", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/fillups/1", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestImportCSV(t *testing.T) {
	_, ts := newTestServer(t)
	createVehicle(t, ts, `{"name":"Kangoo","mode":"distance"}`)

	csv := "date,fuel_amount,total_price,distance\n" +
		"2025-06-01,40,70,500\n" +
		"2025-06-10,45,80,520\n"
	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/vehicles/1/import", csv)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("import status = %d, body %s", resp.StatusCode, raw)
	}

	var out importResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Imported || len(out.Fillups) != 2 {
		t.Fatalf("unexpected import response: %+v", out)
	}
}

func TestImportCSVAllOrNothing(t *testing.T) {
	_, ts := newTestServer(t)
	createVehicle(t, ts, `{"name":"Kangoo","mode":"distance"}`)

	csv := "date,fuel_amount,total_price,distance\n" +
		"2025-06-01,40,70,500\n" +
		"2025-06-10,not-a-number,80,520\n"
	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/vehicles/1/import", csv)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("import status = %d, want 422", resp.StatusCode)
	}

	var out importResponse
	_ = json.Unmarshal(raw, &out)
	if out.Imported || len(out.Errors) == 0 {
		t.Fatalf("unexpected import response: %+v", out)
	}
	if out.Errors[0].Row != 2 {
		t.Errorf("error row = %d, want 2 (1-based data rows)", out.Errors[0].Row)
	}

	// Nothing may have been persisted.
	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/api/vehicles/1/fillups", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var fillups []fillupResponse
	_ = json.Unmarshal(raw, &fillups)
	if len(fillups) != 0 {
		t.Errorf("fillups after failed import = %d, want 0", len(fillups))
	}
}

func TestVehicleReportClassifiesFillups(t *testing.T) {
	_, ts := newTestServer(t)
	createVehicle(t, ts, `{"name":"Kangoo","mode":"distance"}`)

	for _, body := range []string{
		`{"date":"2025-06-01","fuel_amount":"8","total_price":"14","distance":"100"}`,
		`{"date":"2025-06-10","fuel_amount":"12","total_price":"21","distance":"100"}`,
	} {
		resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/vehicles/1/fillups", body)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create status = %d, body %s", resp.StatusCode, raw)
		}
	}

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/api/vehicles/1/report", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("report status = %d", resp.StatusCode)
	}

	var report struct {
		Stats   statsResponse `json:"stats"`
		Fillups []struct {
			Consumption *float64 `json:"consumption"`
			Level       string   `json:"level"`
		} `json:"fillups"`
	}
	if err := json.Unmarshal(raw, &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(report.Fillups) != 2 {
		t.Fatalf("fillups = %d, want 2", len(report.Fillups))
	}
	if report.Fillups[0].Level != "extremely_low" {
		t.Errorf("first level = %q, want extremely_low", report.Fillups[0].Level)
	}
	if report.Fillups[1].Level != "extremely_high" {
		t.Errorf("second level = %q, want extremely_high", report.Fillups[1].Level)
	}
}

func TestReportCacheInvalidatedOnCreate(t *testing.T) {
	_, ts := newTestServer(t)
	createVehicle(t, ts, `{"name":"Kangoo","mode":"distance"}`)

	readCount := func() int {
		resp, raw := doJSON(t, http.MethodGet, ts.URL+"/api/vehicles/1/report", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("report status = %d", resp.StatusCode)
		}
		var report struct {
			Fillups []json.RawMessage `json:"fillups"`
		}
		_ = json.Unmarshal(raw, &report)
		return len(report.Fillups)
	}

	if n := readCount(); n != 0 {
		t.Fatalf("initial report fillups = %d, want 0", n)
	}

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/vehicles/1/fillups",
		`{"date":"2025-06-01","fuel_amount":"40","total_price":"70","distance":"500"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}

	// The cached empty report must have been dropped by the mutation.
	if n := readCount(); n != 1 {
		t.Fatalf("report fillups after create = %d, want 1", n)
	}
}

func TestHealthEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, _ := doJSON(t, http.MethodGet, ts.URL+path, "")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestUnknownVehicleRoutes(t *testing.T) {
	_, ts := newTestServer(t)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/vehicles/9", ""},
		{http.MethodGet, "/api/vehicles/9/fillups", ""},
		{http.MethodGet, "/api/vehicles/9/stats", ""},
		{http.MethodGet, "/api/vehicles/9/report", ""},
		{http.MethodPost, "/api/vehicles/9/fillups", `{"date":"2025-06-01","fuel_amount":"40","total_price":"70","distance":"500"}`},
	} {
		resp, _ := doJSON(t, tc.method, ts.URL+tc.path, tc.body)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want 404", tc.method, tc.path, resp.StatusCode)
		}
	}
}
