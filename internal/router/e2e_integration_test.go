//go:build integration

package router_test

// End-to-end integration tests against real Postgres + Redis via
// testcontainers. Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tillpos/internal/config"
	"tillpos/internal/infra"
	"tillpos/internal/model"
	"tillpos/internal/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server          *httptest.Server
	db              *gorm.DB
	adminToken      string
	supervisorToken string
	supervisorID    string
}

func seedOperator(t *testing.T, db *gorm.DB, username, password, role string) *model.Operator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	require.NoError(t, err)
	op := &model.Operator{
		Username:     username,
		Name:         "E2E " + role,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	require.NoError(t, db.Create(op).Error)
	return op
}

func login(t *testing.T, srv *httptest.Server, username, password string) string {
	t.Helper()
	resp := do(t, srv, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": username, "password": password}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, resp, &body)
	require.NotEmpty(t, body.AccessToken)
	return body.AccessToken
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("tillpos_test"),
		tcPostgres.WithUsername("tillpos"),
		tcPostgres.WithPassword("tillpos"),
		testcontainers.WithWaitStrategy(
			tcPostgres.BasicWaitStrategies()...,
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:               8000,
		Env:                "test",
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		Currency:           "ARS",
		InFlightTTLSeconds: 30,
		BackofficeURL:      "http://localhost:9999", // never called in tests
		WorkerPoolSize:     1,
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	srv := httptest.NewServer(router.New(cfg, db, rdb, cb))
	t.Cleanup(srv.Close)

	seedOperator(t, db, "admin", "admin-pass-e2e", model.RoleAdmin)
	supervisor := seedOperator(t, db, "floor-super", "super-pass-e2e", model.RoleSupervisor)

	return &testEnv{
		server:          srv,
		db:              db,
		adminToken:      login(t, srv, "admin", "admin-pass-e2e"),
		supervisorToken: login(t, srv, "floor-super", "super-pass-e2e"),
		supervisorID:    supervisor.ID.String(),
	}
}

// ── Tests ────────────────────────────────────────────────────────────────────

// Full till cycle: open → sale → balance → close, figures reconcile to zero.
func TestE2E_FullTillCycle(t *testing.T) {
	env := setupTestEnv(t)

	openResp := do(t, env.server, "POST", "/v1/register/open",
		jsonBody(t, map[string]any{"initial_amount": "100.00"}), env.adminToken)
	require.Equal(t, http.StatusCreated, openResp.StatusCode)
	var reg struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeJSON(t, openResp, &reg)
	assert.Equal(t, "open", reg.Status)

	// Opening a second register must hit the exclusivity constraint.
	dupResp := do(t, env.server, "POST", "/v1/register/open",
		jsonBody(t, map[string]any{"initial_amount": "50.00"}), env.adminToken)
	require.Equal(t, http.StatusConflict, dupResp.StatusCode)
	dupResp.Body.Close()

	saleResp := do(t, env.server, "POST", "/v1/entries/sale",
		jsonBody(t, map[string]any{
			"reference_id": "order-e2e-1",
			"amount":       "50.00",
			"method":       "cash",
		}), env.adminToken)
	require.Equal(t, http.StatusCreated, saleResp.StatusCode)
	var sale struct {
		ID string `json:"id"`
	}
	decodeJSON(t, saleResp, &sale)

	balResp := do(t, env.server, "GET", "/v1/register/balance", nil, env.adminToken)
	require.Equal(t, http.StatusOK, balResp.StatusCode)
	var bal struct {
		Cash  string `json:"cash"`
		Total string `json:"total"`
	}
	decodeJSON(t, balResp, &bal)
	assert.Equal(t, "150", bal.Cash)
	assert.Equal(t, "150", bal.Total)

	closeResp := do(t, env.server, "POST", "/v1/register/close",
		jsonBody(t, map[string]any{
			"counted_cash":   "150.00",
			"next_day_float": "100.00",
		}), env.adminToken)
	require.Equal(t, http.StatusOK, closeResp.StatusCode)
	var closed struct {
		Status     string `json:"status"`
		Expected   string `json:"expected_amount"`
		Final      string `json:"final_amount"`
		Difference string `json:"difference_amount"`
	}
	decodeJSON(t, closeResp, &closed)
	assert.Equal(t, "closed", closed.Status)
	assert.Equal(t, "150", closed.Expected)
	assert.Equal(t, "0", closed.Difference)
}

// Duplicate sale references are answered with the original entry.
func TestE2E_SaleIdempotency(t *testing.T) {
	env := setupTestEnv(t)

	openResp := do(t, env.server, "POST", "/v1/register/open",
		jsonBody(t, map[string]any{"initial_amount": "100.00"}), env.adminToken)
	require.Equal(t, http.StatusCreated, openResp.StatusCode)
	openResp.Body.Close()

	sale := map[string]any{
		"reference_id": "order-dup",
		"amount":       "30.00",
		"method":       "cash",
	}
	first := do(t, env.server, "POST", "/v1/entries/sale", jsonBody(t, sale), env.adminToken)
	require.Equal(t, http.StatusCreated, first.StatusCode)
	var a struct {
		ID string `json:"id"`
	}
	decodeJSON(t, first, &a)

	second := do(t, env.server, "POST", "/v1/entries/sale", jsonBody(t, sale), env.adminToken)
	require.Equal(t, http.StatusCreated, second.StatusCode)
	var b struct {
		ID string `json:"id"`
	}
	decodeJSON(t, second, &b)
	assert.Equal(t, a.ID, b.ID)

	balResp := do(t, env.server, "GET", "/v1/register/balance", nil, env.adminToken)
	require.Equal(t, http.StatusOK, balResp.StatusCode)
	var bal struct {
		Cash string `json:"cash"`
	}
	decodeJSON(t, balResp, &bal)
	assert.Equal(t, "130", bal.Cash)
}

// Supervisor-authorized cancellation nets the sale out with a refund entry.
func TestE2E_CancelSale(t *testing.T) {
	env := setupTestEnv(t)

	openResp := do(t, env.server, "POST", "/v1/register/open",
		jsonBody(t, map[string]any{"initial_amount": "100.00"}), env.adminToken)
	require.Equal(t, http.StatusCreated, openResp.StatusCode)
	openResp.Body.Close()

	saleResp := do(t, env.server, "POST", "/v1/entries/sale",
		jsonBody(t, map[string]any{
			"reference_id": "order-cancel",
			"amount":       "40.00",
			"method":       "cash",
		}), env.adminToken)
	require.Equal(t, http.StatusCreated, saleResp.StatusCode)
	var sale struct {
		ID string `json:"id"`
	}
	decodeJSON(t, saleResp, &sale)

	cancelResp := do(t, env.server, "POST", fmt.Sprintf("/v1/entries/%s/cancel", sale.ID),
		jsonBody(t, map[string]any{
			"reason":        "customer returned goods",
			"supervisor_id": env.supervisorID,
		}), env.adminToken)
	require.Equal(t, http.StatusCreated, cancelResp.StatusCode)
	var refund struct {
		Operation   string `json:"operation"`
		ReferenceID string `json:"reference_id"`
	}
	decodeJSON(t, cancelResp, &refund)
	assert.Equal(t, "refund", refund.Operation)
	assert.Equal(t, sale.ID, refund.ReferenceID)

	// Cancelling twice must be rejected.
	again := do(t, env.server, "POST", fmt.Sprintf("/v1/entries/%s/cancel", sale.ID),
		jsonBody(t, map[string]any{
			"reason":        "customer returned goods",
			"supervisor_id": env.supervisorID,
		}), env.adminToken)
	require.Equal(t, http.StatusConflict, again.StatusCode)
	again.Body.Close()

	balResp := do(t, env.server, "GET", "/v1/register/balance", nil, env.adminToken)
	require.Equal(t, http.StatusOK, balResp.StatusCode)
	var bal struct {
		Cash string `json:"cash"`
	}
	decodeJSON(t, balResp, &bal)
	assert.Equal(t, "100", bal.Cash)
}

// Reconciliation: amendment revises counted figures, retroactive entry
// shifts expected.
func TestE2E_Reconciliation(t *testing.T) {
	env := setupTestEnv(t)

	openResp := do(t, env.server, "POST", "/v1/register/open",
		jsonBody(t, map[string]any{"initial_amount": "100.00"}), env.adminToken)
	require.Equal(t, http.StatusCreated, openResp.StatusCode)
	var reg struct {
		ID       string `json:"id"`
		OpenedAt string `json:"opened_at"`
	}
	decodeJSON(t, openResp, &reg)

	saleResp := do(t, env.server, "POST", "/v1/entries/sale",
		jsonBody(t, map[string]any{
			"reference_id": "order-recon",
			"amount":       "50.00",
			"method":       "cash",
		}), env.adminToken)
	require.Equal(t, http.StatusCreated, saleResp.StatusCode)
	saleResp.Body.Close()

	closeResp := do(t, env.server, "POST", "/v1/register/close",
		jsonBody(t, map[string]any{
			"counted_cash":   "150.00",
			"next_day_float": "100.00",
		}), env.adminToken)
	require.Equal(t, http.StatusOK, closeResp.StatusCode)
	closeResp.Body.Close()

	// Amendments need supervisor rank.
	amendForbidden := do(t, env.server, "PATCH", "/v1/register/"+reg.ID,
		jsonBody(t, map[string]any{
			"counted_cash":   "148.00",
			"next_day_float": "100.00",
		}), "")
	require.Equal(t, http.StatusUnauthorized, amendForbidden.StatusCode)
	amendForbidden.Body.Close()

	amendResp := do(t, env.server, "PATCH", "/v1/register/"+reg.ID,
		jsonBody(t, map[string]any{
			"counted_cash":   "148.00",
			"next_day_float": "100.00",
		}), env.supervisorToken)
	require.Equal(t, http.StatusOK, amendResp.StatusCode)
	var amended struct {
		Expected   string `json:"expected_amount"`
		Difference string `json:"difference_amount"`
	}
	decodeJSON(t, amendResp, &amended)
	assert.Equal(t, "150", amended.Expected)
	assert.Equal(t, "-2", amended.Difference)

	// Backfill a missed 2.00 deposit from during the session.
	openedAt, err := time.Parse(time.RFC3339, reg.OpenedAt)
	require.NoError(t, err)
	retroResp := do(t, env.server, "POST", "/v1/register/"+reg.ID+"/entries/retroactive",
		jsonBody(t, map[string]any{
			"operation":   "deposit",
			"method":      "cash",
			"amount":      "2.00",
			"description": "missed change deposit",
			"created_at":  openedAt.Add(time.Second).Format(time.RFC3339),
		}), env.supervisorToken)
	require.Equal(t, http.StatusCreated, retroResp.StatusCode)
	retroResp.Body.Close()

	histResp := do(t, env.server, "GET", "/v1/register/history", nil, env.supervisorToken)
	require.Equal(t, http.StatusOK, histResp.StatusCode)
	var hist struct {
		Data []struct {
			ID         string `json:"id"`
			Expected   string `json:"expected_amount"`
			Final      string `json:"final_amount"`
			Difference string `json:"difference_amount"`
		} `json:"data"`
	}
	decodeJSON(t, histResp, &hist)
	require.Len(t, hist.Data, 1)
	assert.Equal(t, "152", hist.Data[0].Expected)
	assert.Equal(t, "148", hist.Data[0].Final)
	assert.Equal(t, "-4", hist.Data[0].Difference)
}

func TestE2E_HealthAndAuth(t *testing.T) {
	env := setupTestEnv(t)

	healthResp := do(t, env.server, "GET", "/health", nil, "")
	require.Equal(t, http.StatusOK, healthResp.StatusCode)
	healthResp.Body.Close()

	// Missing token on a protected route.
	unauth := do(t, env.server, "GET", "/v1/register/balance", nil, "")
	require.Equal(t, http.StatusUnauthorized, unauth.StatusCode)
	unauth.Body.Close()

	// Operator management is admin-only.
	forbidden := do(t, env.server, "GET", "/v1/operators", nil, env.supervisorToken)
	require.Equal(t, http.StatusForbidden, forbidden.StatusCode)
	forbidden.Body.Close()
}
