package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/crowdship/internal/config"
	"github.com/example/crowdship/internal/marketplace"
	"github.com/example/crowdship/internal/models"
)

func newTestServer(t *testing.T, cfg config.ServerConfig) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, logger)
}

func doJSON(t *testing.T, s *Server, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if out != nil {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return rec
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{})

	body := models.Request{
		ItemName:          "headphones",
		Description:       "noise cancelling",
		Budget:            25,
		Urgency:           models.UrgencyHigh,
		Quantity:          2,
		RequesterID:       "req-1",
		RequesterName:     "Rita",
		RequesterLocation: "Colombo",
	}
	var created marketplace.Result[string]
	rec := doJSON(t, s, http.MethodPost, "/api/v1/requests", body, &created)
	if rec.Code != http.StatusCreated || !created.Success || created.Data == "" {
		t.Fatalf("create: code=%d envelope=%+v", rec.Code, created)
	}

	var avail marketplace.Result[[]models.Request]
	rec = doJSON(t, s, http.MethodGet, "/api/v1/requests/available", nil, &avail)
	if rec.Code != http.StatusOK || !avail.Success {
		t.Fatalf("available: code=%d envelope=%+v", rec.Code, avail)
	}
	if len(avail.Data) != 1 || avail.Data[0].ID != created.Data {
		t.Fatalf("expected the new request first, got %+v", avail.Data)
	}
	if avail.Data[0].Status != models.RequestPending {
		t.Fatalf("create should default to pending, got %s", avail.Data[0].Status)
	}

	var transitioned marketplace.Result[struct{}]
	rec = doJSON(t, s, http.MethodPost, "/api/v1/requests/"+created.Data+"/status",
		map[string]string{"status": "accepted", "traveler_id": "trav1", "traveler_name": "Asha"}, &transitioned)
	if rec.Code != http.StatusOK || !transitioned.Success {
		t.Fatalf("transition: code=%d envelope=%+v", rec.Code, transitioned)
	}

	doJSON(t, s, http.MethodGet, "/api/v1/requests/available", nil, &avail)
	if len(avail.Data) != 0 {
		t.Fatalf("accepted request still available: %+v", avail.Data)
	}

	var mine marketplace.Result[[]models.Request]
	doJSON(t, s, http.MethodGet, "/api/v1/travelers/trav1/requests", nil, &mine)
	if !mine.Success || len(mine.Data) != 1 || mine.Data[0].TravelerName != "Asha" {
		t.Fatalf("traveler listing wrong: %+v", mine)
	}
}

func TestTravelerEndpoints(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{})

	var miss marketplace.Result[*models.Traveler]
	rec := doJSON(t, s, http.MethodGet, "/api/v1/travelers/by-user/nobody", nil, &miss)
	if rec.Code != http.StatusOK || !miss.Success || miss.Data != nil {
		t.Fatalf("miss should be empty success: code=%d envelope=%+v", rec.Code, miss)
	}

	body := models.Traveler{
		Name:           "Asha",
		Email:          "asha@example.com",
		Phone:          "+94 77 123 4567",
		TravelDate:     "2026-09-15",
		DepartureCity:  "Dubai",
		ArrivalAirport: "CMB",
		PassportNumber: "N1234567",
		MaxItems:       3,
		ServiceFee:     15,
		UserID:         "user-1",
	}
	var created marketplace.Result[string]
	rec = doJSON(t, s, http.MethodPost, "/api/v1/travelers", body, &created)
	if rec.Code != http.StatusCreated || !created.Success {
		t.Fatalf("create traveler: code=%d envelope=%+v", rec.Code, created)
	}

	var patched marketplace.Result[struct{}]
	rec = doJSON(t, s, http.MethodPatch, "/api/v1/travelers/"+created.Data,
		map[string]any{"service_fee": 20}, &patched)
	if rec.Code != http.StatusOK || !patched.Success {
		t.Fatalf("patch traveler: code=%d envelope=%+v", rec.Code, patched)
	}

	var found marketplace.Result[*models.Traveler]
	doJSON(t, s, http.MethodGet, "/api/v1/travelers/by-user/user-1", nil, &found)
	if !found.Success || found.Data == nil {
		t.Fatalf("lookup after create failed: %+v", found)
	}
	if found.Data.ServiceFee != 20 || found.Data.Name != "Asha" {
		t.Fatalf("patch touched wrong fields: %+v", found.Data)
	}

	var active marketplace.Result[[]models.Traveler]
	doJSON(t, s, http.MethodGet, "/api/v1/travelers/active", nil, &active)
	if !active.Success || len(active.Data) != 1 {
		t.Fatalf("active listing wrong: %+v", active)
	}
}

func TestStatsWithoutRedisConfigured(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{})

	var res marketplace.Result[map[string]int64]
	rec := doJSON(t, s, http.MethodGet, "/api/v1/stats", nil, &res)
	if rec.Code != http.StatusServiceUnavailable || res.Success {
		t.Fatalf("expected 503 failure envelope, got code=%d envelope=%+v", rec.Code, res)
	}
}
