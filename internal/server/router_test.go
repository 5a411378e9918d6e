package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/study-planner-api/internal/handler"
	"github.com/noah-isme/study-planner-api/internal/service"
)

func newTestRouter(withPlanner bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	cfg := RouterConfig{
		APIPrefix:      "/api/v1",
		Metrics:        metrics,
		MetricsHandler: handler.NewMetricsHandler(metrics, nil),
	}
	if withPlanner {
		cfg.TimetableHandler = handler.NewTimetableHandler(service.NewTimetableService(service.TimetableServiceParams{}))
	}
	return NewRouter(cfg)
}

func routeSet(r *gin.Engine) map[string]bool {
	routes := make(map[string]bool)
	for _, route := range r.Routes() {
		routes[route.Method+" "+route.Path] = true
	}
	return routes
}

func TestNewRouterMountsPlannerRoutes(t *testing.T) {
	routes := routeSet(newTestRouter(true))

	for _, expected := range []string{
		"POST /api/v1/generate-timetable",
		"POST /api/v1/study-plans",
		"GET /api/v1/study-plans",
		"GET /api/v1/study-plans/:id/sessions",
		"GET /api/v1/study-plans/:id/export",
		"DELETE /api/v1/study-plans/:id",
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"GET /metrics/summary",
	} {
		assert.True(t, routes[expected], expected)
	}
	assert.False(t, routes["GET /docs/*any"])
}

func TestNewRouterWithoutPlanner(t *testing.T) {
	r := newTestRouter(false)
	assert.False(t, routeSet(r)["POST /api/v1/generate-timetable"])

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/generate-timetable", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "route not found")

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
