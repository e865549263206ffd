package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/crowdship/internal/config"
	"github.com/example/crowdship/internal/marketplace"
	"github.com/example/crowdship/internal/models"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, sub, name, email string) string {
	t.Helper()
	claims := &Claims{
		Name:  name,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func doAuthedJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{JWTSecret: testSecret})

	var res marketplace.Result[[]models.Request]
	rec := doJSON(t, s, http.MethodGet, "/api/v1/requests/available", nil, &res)
	if rec.Code != http.StatusUnauthorized || res.Success {
		t.Fatalf("expected 401 failure, got code=%d envelope=%+v", rec.Code, res)
	}
}

func TestAuthMiddlewareFillsIdentityFromClaims(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{JWTSecret: testSecret})
	token := signedToken(t, "auth0|user-9", "Rita", "rita@example.com")

	req := models.Request{
		ItemName:          "coffee",
		Description:       "single origin",
		Budget:            30,
		Urgency:           models.UrgencyNormal,
		Quantity:          1,
		RequesterLocation: "Colombo",
	}
	rec := doAuthedJSON(t, s, http.MethodPost, "/api/v1/requests", token, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create with token failed: %d %s", rec.Code, rec.Body.String())
	}

	list := s.Svc.ListRequestsForRequester(context.Background(), "auth0|user-9")
	if !list.Success || len(list.Data) != 1 {
		t.Fatalf("request not attributed to token subject: %+v", list)
	}
	if list.Data[0].RequesterName != "Rita" {
		t.Fatalf("requester name not filled from claims: %+v", list.Data[0])
	}
}

func TestAuthMiddlewareRejectsWrongKey(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{JWTSecret: "other-secret"})
	token := signedToken(t, "auth0|user-9", "Rita", "rita@example.com")

	rec := doAuthedJSON(t, s, http.MethodGet, "/api/v1/requests/available", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong key, got %d", rec.Code)
	}
}
