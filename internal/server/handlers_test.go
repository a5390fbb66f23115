package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parking-ledger/internal/config"
	"parking-ledger/internal/parking"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	telemetry, err := parking.NewTelemetryProvider()
	if err != nil {
		t.Fatalf("Failed to initialize telemetry: %v", err)
	}
	t.Cleanup(func() {
		if err := telemetry.Shutdown(context.Background()); err != nil {
			t.Errorf("Failed to shutdown telemetry: %v", err)
		}
	})

	cfg := &config.Config{
		Port:            "0",
		Env:             "development",
		TokenSecret:     "test-secret",
		FeePolicy:       "flat",
		BaseRate:        3,
		ReservationHold: 4 * time.Hour,
	}
	return NewRouter(NewHandler(cfg, telemetry, nil))
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var parsed map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("Failed to parse response %q: %v", rec.Body.String(), err)
	}
	return rec, parsed
}

func dataField(t *testing.T, parsed map[string]any) map[string]any {
	t.Helper()
	data, ok := parsed["data"].(map[string]any)
	if !ok {
		t.Fatalf("Expected data object in response, got %v", parsed)
	}
	return data
}

func createFacility(t *testing.T, router http.Handler) string {
	t.Helper()
	rec, parsed := doJSON(t, router, http.MethodPost, "/api/facility", "", CreateFacilityRequest{Admin: "admin"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	token, _ := dataField(t, parsed)["admin_token"].(string)
	if token == "" {
		t.Fatal("Expected admin token in response")
	}
	return token
}

func issueToken(t *testing.T, router http.Handler, identity string) string {
	t.Helper()
	rec, parsed := doJSON(t, router, http.MethodPost, "/api/tokens", "", map[string]string{"identity": identity})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	token, _ := dataField(t, parsed)["token"].(string)
	return token
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)

	rec, parsed := doJSON(t, router, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if parsed["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", parsed["status"])
	}
}

func TestFacilityLifecycle(t *testing.T) {
	router := newTestRouter(t)

	adminToken := createFacility(t, router)

	// Double initialization is rejected.
	rec, _ := doJSON(t, router, http.MethodPost, "/api/facility", "", CreateFacilityRequest{Admin: "admin"})
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 on second init, got %d", rec.Code)
	}

	// Admin provisions a slot.
	rec, parsed := doJSON(t, router, http.MethodPost, "/api/facility/slots", adminToken, CreateSlotRequest{Owner: "owner-a"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if n := dataField(t, parsed)["slot_number"].(float64); n != 1 {
		t.Errorf("Expected slot number 1, got %v", n)
	}

	// A plain user token cannot provision slots.
	userToken := issueToken(t, router, "alice")
	rec, _ = doJSON(t, router, http.MethodPost, "/api/facility/slots", userToken, CreateSlotRequest{})
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for non-admin, got %d", rec.Code)
	}

	// No token at all.
	rec, _ = doJSON(t, router, http.MethodPost, "/api/facility/slots", "", CreateSlotRequest{})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}
}

func TestOccupancyFlow(t *testing.T) {
	router := newTestRouter(t)

	adminToken := createFacility(t, router)
	doJSON(t, router, http.MethodPost, "/api/facility/slots", adminToken, CreateSlotRequest{})

	aliceToken := issueToken(t, router, "alice")
	doJSON(t, router, http.MethodPost, "/api/wallets", "", CreateWalletRequest{Owner: "alice", Balance: 100})

	rec, _ := doJSON(t, router, http.MethodPost, "/api/facility/slots/1/reserve", aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 on reserve, got %d: %s", rec.Code, rec.Body.String())
	}

	// Another user cannot take the reserved slot.
	bobToken := issueToken(t, router, "bob")
	rec, _ = doJSON(t, router, http.MethodPost, "/api/facility/slots/1/reserve", bobToken, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 on double reserve, got %d", rec.Code)
	}

	rec, _ = doJSON(t, router, http.MethodPost, "/api/facility/slots/1/enter", aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 on enter, got %d: %s", rec.Code, rec.Body.String())
	}

	// Sub-hour occupancy bills zero.
	rec, parsed := doJSON(t, router, http.MethodPost, "/api/facility/slots/1/exit", aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 on exit, got %d: %s", rec.Code, rec.Body.String())
	}
	if amount := dataField(t, parsed)["amount"].(float64); amount != 0 {
		t.Errorf("Expected zero fee for sub-hour stay, got %v", amount)
	}

	// Second exit on the now-vacant slot is rejected.
	rec, _ = doJSON(t, router, http.MethodPost, "/api/facility/slots/1/exit", aliceToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 on double exit, got %d", rec.Code)
	}

	// Records are admin-only.
	rec, _ = doJSON(t, router, http.MethodGet, "/api/facility/records", aliceToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for user records access, got %d", rec.Code)
	}
	rec, _ = doJSON(t, router, http.MethodGet, "/api/facility/records", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for admin records access, got %d", rec.Code)
	}
}

func TestWalletEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec, parsed := doJSON(t, router, http.MethodPost, "/api/wallets", "", CreateWalletRequest{Owner: "alice", Balance: 50})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if balance := dataField(t, parsed)["balance"].(float64); balance != 50 {
		t.Errorf("Expected balance 50, got %v", balance)
	}

	// Funding again tops up.
	doJSON(t, router, http.MethodPost, "/api/wallets", "", CreateWalletRequest{Owner: "alice", Balance: 25})
	rec, parsed = doJSON(t, router, http.MethodGet, "/api/wallets/alice", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if balance := dataField(t, parsed)["balance"].(float64); balance != 75 {
		t.Errorf("Expected balance 75, got %v", balance)
	}

	rec, _ = doJSON(t, router, http.MethodGet, "/api/wallets/nobody", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestFacilityNotInitialized(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/api/facility", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 before initialization, got %d", rec.Code)
	}
}
