package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"cashplan/internal/events"
	"cashplan/internal/invoices"
	"cashplan/internal/logger"
	"cashplan/internal/testutil"
	"cashplan/internal/validator"
)

const testPipelineKey = "flow-test-key"

// testApp holds the full application stack for flow tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test", "")
	validator.Register()
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	svc := NewServices(db, invoices.NewGormFeed(db), events.NopPublisher{})
	router, err := NewRouter(Options{PipelineAPIKey: testPipelineKey}, svc)
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}
	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// mustStatus fails the test when rec does not carry the wanted status.
func mustStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// object returns the nested object stored under key.
func object(t *testing.T, m map[string]interface{}, key string) map[string]interface{} {
	t.Helper()
	v, ok := m[key].(map[string]interface{})
	if !ok {
		t.Fatalf("expected object under %q, got %T", key, m[key])
	}
	return v
}

// assertAmount compares a decimal JSON field numerically.
func assertAmount(t *testing.T, m map[string]interface{}, key, want string) {
	t.Helper()
	raw, ok := m[key].(string)
	if !ok {
		t.Fatalf("expected decimal string under %q, got %T (%v)", key, m[key], m[key])
	}
	got, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("invalid decimal %q under %q: %v", raw, key, err)
	}
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("expected %s = %s, got %s", key, want, raw)
	}
}

// createCategory posts a category and returns its id.
func (app *testApp) createCategory(t *testing.T, body string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/categories", body)
	mustStatus(t, rec, 201)
	return object(t, parseJSON(t, rec), "category")["id"].(string)
}

// createPlannedItem posts a planned item and returns its id.
func (app *testApp) createPlannedItem(t *testing.T, body string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/planned-items", body)
	mustStatus(t, rec, 201)
	return object(t, parseJSON(t, rec), "planned_item")["id"].(string)
}
