package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/internal/config"
	"vitrine/internal/events"
	"vitrine/internal/export"
	"vitrine/internal/gateway"
	"vitrine/internal/seeder"
	"vitrine/internal/testsupport"
)

type testApp struct {
	app      *fiber.App
	services *Services
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	services, err := NewServices(config.GetConfig(), db, logger)
	require.NoError(t, err)
	t.Cleanup(func() { services.Close() })

	return &testApp{
		app:      testsupport.CreateTestApp(t, db, MountAppRoutes(services)),
		services: services,
	}
}

func (a *testApp) do(t *testing.T, method, path, body, token string) (int, []byte, map[string][]string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.40")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw, resp.Header
}

func decode(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func TestRoutesRegistered(t *testing.T) {
	a := newTestApp(t)

	registered := map[string]bool{}
	for _, route := range a.app.GetRoutes(true) {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"POST /functions/v1/track-page-view",
		"OPTIONS /functions/v1/track-page-view",
		"POST /functions/v1/track-whatsapp-click",
		"OPTIONS /functions/v1/track-whatsapp-click",
		"POST /functions/v1/reset-analytics",
		"OPTIONS /functions/v1/reset-analytics",
		"POST /auth/token",
		"GET /admin/api/analytics",
		"GET /admin/api/analytics/totals",
		"GET /admin/api/analytics/export.csv",
		"GET /admin/api/analytics/export.xlsx",
		"GET /metrics",
		"GET /_health",
	} {
		assert.True(t, registered[want], "expected route %s", want)
	}
}

func TestAdminAPIRequiresToken(t *testing.T) {
	a := newTestApp(t)

	for _, path := range []string{"/admin/api/analytics", "/admin/api/analytics/totals", "/metrics"} {
		status, _, _ := a.do(t, fiber.MethodGet, path, "", "")
		assert.Equal(t, fiber.StatusUnauthorized, status, path)
	}
}

func TestHealth(t *testing.T) {
	a := newTestApp(t)

	status, raw, _ := a.do(t, fiber.MethodGet, "/_health", "", "")
	require.Equal(t, fiber.StatusOK, status)
	body := decode(t, raw)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["db_status"])
}

func TestTrackingToDashboardToReset(t *testing.T) {
	a := newTestApp(t)
	dbManager, _ := testsupport.SetupTestDBManager(t)
	testsupport.CreateTestAdmin(t, dbManager.GetConnection(), "admin@example.com", "s3cret-password")

	status, raw, _ := a.do(t, fiber.MethodPost, "/auth/token", `{"email":"admin@example.com","password":"wrong"}`, "")
	require.Equal(t, fiber.StatusUnauthorized, status)

	status, raw, _ = a.do(t, fiber.MethodPost, "/auth/token", `{"email":"Admin@Example.com","password":"s3cret-password"}`, "")
	require.Equal(t, fiber.StatusOK, status, string(raw))
	token, _ := decode(t, raw)["token"].(string)
	require.NotEmpty(t, token)

	for i, path := range []string{"/", "/servicos", "/contato"} {
		body := fmt.Sprintf(`{"path":%q,"visitor_id":"v-1","session_id":"s-%d"}`, path, i%2)
		status, raw, _ = a.do(t, fiber.MethodPost, "/functions/v1/track-page-view", body, "")
		require.Equal(t, fiber.StatusOK, status, string(raw))
	}
	status, raw, _ = a.do(t, fiber.MethodPost, "/functions/v1/track-whatsapp-click", `{"source":"hero","page_path":"/contato"}`, "")
	require.Equal(t, fiber.StatusOK, status, string(raw))

	status, raw, _ = a.do(t, fiber.MethodGet, "/admin/api/analytics?period=7d", "", token)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	dash := decode(t, raw)
	assert.Equal(t, map[string]any{"sessions": 2.0, "visitors": 1.0, "pageViews": 3.0}, dash["totals"])
	assert.Equal(t, "1.5", dash["pagesPerSession"])
	assert.Len(t, dash["series"], 7)

	status, raw, _ = a.do(t, fiber.MethodGet, "/admin/api/analytics?from=2024-02-30", "", token)
	assert.Equal(t, fiber.StatusBadRequest, status, string(raw))

	status, raw, headers := a.do(t, fiber.MethodGet, "/admin/api/analytics/export.csv?period=7d", "", token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, headers["Content-Disposition"][0], "analytics_")
	series, err := export.ParseSeries(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Len(t, series, 7)

	status, _, headers = a.do(t, fiber.MethodGet, "/admin/api/analytics/export.xlsx?period=7d", "", token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, headers["Content-Disposition"][0], ".xlsx")

	status, raw, _ = a.do(t, fiber.MethodGet, "/admin/api/analytics/totals", "", token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]any{"pageViews": 3.0, "whatsappClicks": 1.0}, decode(t, raw))

	status, raw, _ = a.do(t, fiber.MethodPost, "/functions/v1/reset-analytics", `{}`, token)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	assert.Equal(t, map[string]any{"pageViews": 3.0, "whatsappClicks": 1.0}, decode(t, raw)["deleted"])

	// The reset drops the cached dashboard
	status, raw, _ = a.do(t, fiber.MethodGet, "/admin/api/analytics?period=7d", "", token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]any{"sessions": 0.0, "visitors": 0.0, "pageViews": 0.0}, decode(t, raw)["totals"])

	status, raw, _ = a.do(t, fiber.MethodGet, "/metrics", "", token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(raw), `vitrine_ingest_events_total{endpoint="page_view",outcome="accepted"} 3`)
	assert.Contains(t, string(raw), `vitrine_admin_resets_total{result="success"} 1`)
}

func TestIngestionSettings(t *testing.T) {
	a := newTestApp(t)
	dbManager, _ := testsupport.SetupTestDBManager(t)
	admin := testsupport.CreateTestAdmin(t, dbManager.GetConnection(), "admin@example.com", "password")
	token, _, err := a.services.Tokens.Issue(admin.ID, admin.Email)
	require.NoError(t, err)

	status, raw, _ := a.do(t, fiber.MethodPost, "/admin/api/settings/ingestion", `{"excluded_ips":"10.0.0.1, nope"}`, token)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid IP address format: nope", decode(t, raw)["error"])

	status, raw, _ = a.do(t, fiber.MethodPost, "/admin/api/settings/ingestion", `{"excluded_ips":"203.0.113.40"}`, token)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	assert.Equal(t, []any{"203.0.113.40"}, decode(t, raw)["excluded_ips"])

	status, _, _ = a.do(t, fiber.MethodPost, "/functions/v1/track-page-view", `{"path":"/","visitor_id":"v","session_id":"s"}`, "")
	require.Equal(t, fiber.StatusOK, status)

	status, raw, _ = a.do(t, fiber.MethodGet, "/admin/api/analytics/totals", "", token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 0.0, decode(t, raw)["pageViews"], "excluded IP is not recorded")
}

func TestServicesWithRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	dbManager, logger := testsupport.SetupTestDBManager(t)

	cfg := *config.GetConfig()
	cfg.RateLimitBackend = config.RateLimitRedis
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.WhatsAppRateLimit = 2
	cfg.RateLimitWindowSeconds = 60

	services, err := NewServices(&cfg, dbManager.GetConnection(), logger)
	require.NoError(t, err)
	defer services.Close()

	app := testsupport.CreateTestApp(t, dbManager.GetConnection(), MountAppRoutes(services))
	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/functions/v1/track-whatsapp-click", strings.NewReader(`{"source":"hero"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", "198.51.100.50")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}
	assert.Equal(t, []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}, statuses)

	ttl := mr.TTL("vitrine:ratelimit:whatsapp_click:198.51.100.50")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

// appInvoker calls the functions in-process, one request at a time.
type appInvoker struct {
	mu  sync.Mutex
	app *fiber.App
}

func (i *appInvoker) Invoke(_ context.Context, name string, body, _ interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req := httptest.NewRequest("POST", "/functions/v1/"+name, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "198.51.100.7")

	i.mu.Lock()
	defer i.mu.Unlock()
	resp, err := i.app.Test(req, -1)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return &gateway.FunctionError{Function: name, Status: resp.StatusCode}
	}
	return nil
}

func TestSimulatedTrafficReachesTheDashboard(t *testing.T) {
	a := newTestApp(t)

	stats := seeder.Simulate(context.Background(), &appInvoker{app: a.app}, testsupport.GetLogger(), seeder.SimulateConfig{
		Visitors:     5,
		Concurrency:  2,
		ClickChance:  1,
		ReloadChance: 1,
		Seed:         3,
	})
	require.Equal(t, int64(5), stats.Visitors)
	assert.Equal(t, int64(5), stats.Skipped)

	dbManager, _ := testsupport.SetupTestDBManager(t)
	conn := dbManager.GetConnection()
	assert.Equal(t, stats.PageViews, testsupport.CountRows(t, conn, &events.PageView{}))
	assert.Equal(t, stats.Clicks, testsupport.CountRows(t, conn, &events.WhatsAppClick{}))

	var sessions int64
	require.NoError(t, conn.Model(&events.PageView{}).Distinct("session_id").Count(&sessions).Error)
	assert.Equal(t, int64(5), sessions)
}
