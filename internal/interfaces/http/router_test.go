package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/bootstrap"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// buildTestApp arma la API completa sobre una base temporal ya migrada.
func buildTestApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg, err := config.FromViper(viper.New())
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.DB.Path = filepath.Join(dir, "estoque.db")
	cfg.Backup.Dir = filepath.Join(dir, "backups")

	ctx := context.Background()
	a, err := bootstrap.New(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.Prepare(ctx))

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		ServiceName: "stock-ledger-test",
		ProductUC:   a.Products,
		Movements:   a.Movements,
		Reconciler:  a.Reconciler,
		AnalyticsUC: a.Analytics,
		Backups:     a.Backups,
		Scheduler:   a.Scheduler,
		Gatherer:    a.Registry,
	})
	return app
}

// doJSON lanza la petición y decodifica el cuerpo en out (si no es nil).
func doJSON(t *testing.T, app *fiber.App, method, path string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createProduct(t *testing.T, app *fiber.App, name string, canoas, pf int) dto.ProductResponse {
	t.Helper()
	var p dto.ProductResponse
	status := doJSON(t, app, http.MethodPost, "/api/products", dto.CreateProductRequest{Name: name, QtyCanoas: canoas, QtyPF: pf}, &p)
	require.Equal(t, http.StatusCreated, status)
	return p
}

// ──────────────────────────────────────────────────────────────────────────────
// Salud y métricas
// ──────────────────────────────────────────────────────────────────────────────

func TestHealthAndMetrics(t *testing.T) {
	app := buildTestApp(t)

	var health map[string]string
	assert.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, "/health", nil, &health))
	assert.Equal(t, "ok", health["status"])

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "go_goroutines")
}

// ──────────────────────────────────────────────────────────────────────────────
// Mapeo de errores a HTTP
// ──────────────────────────────────────────────────────────────────────────────

func TestErrorMapping(t *testing.T) {
	app := buildTestApp(t)
	p := createProduct(t, app, "cabo", 1, 0)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"json inválido", http.MethodPost, "/api/movements", "{no json", http.StatusBadRequest, "VALIDATION"},
		{"campos requeridos", http.MethodPost, "/api/movements", map[string]any{"type": "EXIT"}, http.StatusBadRequest, "VALIDATION"},
		{"saldo insuficiente", http.MethodPost, "/api/movements",
			dto.CreateMovementRequest{Type: "EXIT", ProductID: p.ID, Quantity: 2, Origin: "CANOAS"}, http.StatusConflict, "INSUFFICIENT_BALANCE"},
		{"producto inexistente", http.MethodGet, "/api/products/999", nil, http.StatusNotFound, "NOT_FOUND"},
		{"id no numérico", http.MethodGet, "/api/products/abc", nil, http.StatusBadRequest, "VALIDATION"},
		{"snapshot inexistente", http.MethodPost, "/api/backups/backup_manual_20000101_000000.db/restore", nil, http.StatusNotFound, "NOT_FOUND"},
		{"filtro inválido", http.MethodGet, "/api/movements?type=MOVE", nil, http.StatusBadRequest, "VALIDATION"},
		{"límite fuera de rango", http.MethodGet, "/api/products?limit=1000", nil, http.StatusBadRequest, "VALIDATION"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var resp dto.ErrorResponse
			if raw, ok := tc.body.(string); ok {
				req := httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(raw))
				req.Header.Set("Content-Type", "application/json")
				r, err := app.Test(req, -1)
				require.NoError(t, err)
				defer r.Body.Close()
				require.NoError(t, json.NewDecoder(r.Body).Decode(&resp))
				assert.Equal(t, tc.status, r.StatusCode)
			} else {
				assert.Equal(t, tc.status, doJSON(t, app, tc.method, tc.path, tc.body, &resp))
			}
			assert.Equal(t, tc.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Flujos
// ──────────────────────────────────────────────────────────────────────────────

func TestMovementFlow(t *testing.T) {
	app := buildTestApp(t)
	p := createProduct(t, app, "parafuso", 5, 0)

	var m dto.MovementResponse
	status := doJSON(t, app, http.MethodPost, "/api/movements",
		dto.CreateMovementRequest{Type: "TRANSFER", ProductID: p.ID, Quantity: 2, Origin: "CANOAS", Destination: "PF"}, &m)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "TRANSFER", m.Type)

	var got dto.ProductResponse
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/products/%d", p.ID), nil, &got))
	assert.Equal(t, 3, got.QtyCanoas)
	assert.Equal(t, 2, got.QtyPF)

	var list dto.MovementListResponse
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/movements?product_id=%d", p.ID), nil, &list))
	assert.Equal(t, 1, list.Page.Total)

	var summary dto.StockSummaryDTO
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, "/api/analytics/summary", nil, &summary))
	assert.Equal(t, 5, summary.Total)
}

func TestInventorySessionFlow(t *testing.T) {
	app := buildTestApp(t)
	p := createProduct(t, app, "luva", 10, 0)

	var s dto.SessionResponse
	require.Equal(t, http.StatusCreated, doJSON(t, app, http.MethodPost, "/api/inventory/sessions",
		dto.CreateSessionRequest{Name: "março", Location: "CANOAS"}, &s))

	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/inventory/sessions/%d/counts", s.ID),
		dto.UpdateCountsRequest{Items: []dto.CountItemRequest{{ProductID: p.ID, PhysicalQty: ptr(8), Reason: "LOSS", Note: "quebra"}}}, nil))

	var applied dto.ApplySessionResponse
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/inventory/sessions/%d/apply", s.ID), nil, &applied))
	assert.Equal(t, "APPLIED", applied.Session.Status)
	require.Len(t, applied.Movements, 1)
	assert.Equal(t, "EXIT", applied.Movements[0].Type)
	assert.Equal(t, 2, applied.Movements[0].Quantity)

	var again dto.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/inventory/sessions/%d/apply", s.ID), nil, &again))
}

func TestBackupFlow(t *testing.T) {
	app := buildTestApp(t)

	var snap dto.SnapshotResponse
	require.Equal(t, http.StatusCreated, doJSON(t, app, http.MethodPost, "/api/backups", nil, &snap))
	assert.Equal(t, "MANUAL", snap.Kind)

	var v dto.ValidationResponse
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, "/api/backups/validate?name="+snap.Name, nil, &v))
	assert.True(t, v.OK)

	var run dto.RunResultResponse
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodPost, "/api/backups/schedule/run", nil, &run))
	assert.False(t, run.Executed)
	assert.Equal(t, "disabled", run.Reason)

	assert.Equal(t, http.StatusNoContent, doJSON(t, app, http.MethodDelete, "/api/backups/"+snap.Name, nil, nil))
}

func ptr[T any](v T) *T { return &v }
