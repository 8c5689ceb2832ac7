package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tripexl/service-dispatch/internal/application"
	"github.com/tripexl/service-dispatch/internal/domain/job"
	"github.com/tripexl/service-dispatch/internal/domain/route"
	"github.com/tripexl/service-dispatch/internal/events"
	"github.com/tripexl/service-dispatch/internal/notify"
	"github.com/tripexl/service-dispatch/internal/repository"
	"github.com/tripexl/service-dispatch/internal/response"
	"github.com/tripexl/service-dispatch/internal/routing"
	"github.com/tripexl/service-dispatch/internal/scene"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	log := zap.NewNop()
	repo := repository.NewMemoryJobRepository()
	router, geocoder := routing.New(routing.Options{Provider: routing.ProviderStraightLine}, log)

	planner := application.NewPlannerService(
		router, geocoder,
		job.NewStandardPricingStrategy(50),
		repo,
		events.NopPublisher{},
		&notify.Recorder{},
		application.PlannerConfig{Currency: "INR"},
		log,
	)
	jobs := application.NewJobService(repo, planner, events.NopPublisher{}, &notify.Recorder{}, 0, log)

	r := gin.New()
	NewSessionHandler(planner).RegisterRoutes(&r.RouterGroup)
	NewJobHandler(jobs).RegisterRoutes(&r.RouterGroup)
	NewAdminJobHandler(jobs).RegisterRoutes(&r.RouterGroup)
	NewStreamHandler(planner, jobs, nil, log).RegisterRoutes(&r.RouterGroup)
	return r
}

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorBody `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

func do(t *testing.T, r http.Handler, method, path, owner string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set("X-Owner-ID", owner)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func openSession(t *testing.T, r http.Handler, owner string, wps ...route.Waypoint) string {
	t.Helper()
	code, env := do(t, r, http.MethodPost, "/api/v1/sessions", owner, nil)
	require.Equal(t, http.StatusCreated, code)
	var s application.SessionDTO
	require.NoError(t, json.Unmarshal(env.Data, &s))

	for _, p := range wps {
		code, _ := do(t, r, http.MethodPost, "/api/v1/sessions/"+s.ID+"/waypoints", owner,
			map[string]float64{"lat": p.Lat, "lng": p.Lng})
		require.Equal(t, http.StatusOK, code)
	}
	return s.ID
}

var stops = []route.Waypoint{
	{Lat: 12.9716, Lng: 77.5946},
	{Lat: 12.9352, Lng: 77.6245},
	{Lat: 13.1986, Lng: 77.7066},
}

func TestHTTP_BookingFlow(t *testing.T) {
	r := newRouter(t)
	id := openSession(t, r, "owner-1", stops...)

	code, env := do(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/route", "owner-1", nil)
	require.Equal(t, http.StatusOK, code)
	var s application.SessionDTO
	require.NoError(t, json.Unmarshal(env.Data, &s))
	assert.Equal(t, "route_ready", string(s.State))
	require.NotNil(t, s.DistanceMeters)
	assert.Greater(t, *s.DistanceMeters, 0)

	code, _ = do(t, r, http.MethodGet, "/api/v1/sessions/"+id+"/metrics?vehicle=truck", "owner-1", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, r, http.MethodPut, "/api/v1/sessions/"+id+"/checklists/vehicle", "owner-1",
		map[string]interface{}{"item": "Horn", "selected": true})
	assert.Equal(t, http.StatusOK, code)

	code, env = do(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/book", "owner-1",
		application.BookRequest{VehicleType: "car", Date: "2025-03-01"})
	require.Equal(t, http.StatusCreated, code)
	var j application.JobDTO
	require.NoError(t, json.Unmarshal(env.Data, &j))
	assert.Equal(t, "car", j.VehicleType)
	assert.Len(t, j.Waypoints, 3)

	code, env = do(t, r, http.MethodGet, "/api/v1/jobs", "owner-1", nil)
	require.Equal(t, http.StatusOK, code)
	var list []application.JobDTO
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, j.ID, list[0].ID)

	code, env = do(t, r, http.MethodGet, "/api/v1/admin/stats/jobs", "", nil)
	require.Equal(t, http.StatusOK, code)
	var stats application.JobStatsDTO
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(1), stats.TotalJobs)

	code, _ = do(t, r, http.MethodDelete, "/api/v1/jobs/"+j.ID, "owner-1", nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = do(t, r, http.MethodDelete, "/api/v1/jobs/"+j.ID, "owner-1", nil)
	assert.Equal(t, http.StatusNoContent, code)
}

func TestHTTP_ErrorMapping(t *testing.T) {
	r := newRouter(t)
	id := openSession(t, r, "owner-1", stops[0])

	tests := []struct {
		name   string
		method string
		path   string
		owner  string
		body   interface{}
		status int
		code   string
	}{
		{"missing owner", http.MethodPost, "/api/v1/sessions", "", nil, http.StatusUnauthorized, "unauthorized"},
		{"unknown session", http.MethodGet, "/api/v1/sessions/nope", "owner-1", nil, http.StatusNotFound, "not_found"},
		{"other owner", http.MethodGet, "/api/v1/sessions/" + id, "owner-2", nil, http.StatusNotFound, "not_found"},
		{"too few waypoints", http.MethodPost, "/api/v1/sessions/" + id + "/route", "owner-1", nil, http.StatusUnprocessableEntity, "insufficient_waypoints"},
		{"metrics before route", http.MethodGet, "/api/v1/sessions/" + id + "/metrics?vehicle=van", "owner-1", nil, http.StatusConflict, "invalid_state"},
		{"missing vehicle", http.MethodGet, "/api/v1/sessions/" + id + "/metrics", "owner-1", nil, http.StatusBadRequest, "validation_failed"},
		{"malformed waypoint", http.MethodPost, "/api/v1/sessions/" + id + "/waypoints", "owner-1", map[string]float64{"lat": 1}, http.StatusBadRequest, "validation_failed"},
		{"out of range waypoint", http.MethodPost, "/api/v1/sessions/" + id + "/waypoints", "owner-1", map[string]float64{"lat": 95, "lng": 1}, http.StatusBadRequest, "validation_failed"},
		{"unknown checklist item", http.MethodPut, "/api/v1/sessions/" + id + "/checklists/driver", "owner-1", map[string]interface{}{"item": "Cape", "selected": true}, http.StatusUnprocessableEntity, "unknown_checklist_item"},
		{"book without route", http.MethodPost, "/api/v1/sessions/" + id + "/book", "owner-1", application.BookRequest{VehicleType: "van", Date: "2025-03-01"}, http.StatusBadRequest, "validation_failed"},
		{"geocode offline", http.MethodGet, "/api/v1/geocode?q=MG+Road", "owner-1", nil, http.StatusServiceUnavailable, "provider_unavailable"},
		{"bad marker query", http.MethodGet, "/api/v1/dashboard/markers?lat=x&lng=1", "owner-1", nil, http.StatusBadRequest, "validation_failed"},
		{"replan unknown job", http.MethodPost, "/api/v1/jobs/nope/replan", "owner-1", nil, http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, r, tt.method, tt.path, tt.owner, tt.body)
			assert.Equal(t, tt.status, code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestHTTP_DashboardSceneAfterMapReady(t *testing.T) {
	r := newRouter(t)
	id := openSession(t, r, "owner-1", stops[:2]...)
	code, _ := do(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/route", "owner-1", nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = do(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/book", "owner-1",
		application.BookRequest{VehicleType: "bike", Date: "2025-03-02"})
	require.Equal(t, http.StatusCreated, code)

	code, env := do(t, r, http.MethodGet, "/api/v1/dashboard/scene", "owner-1", nil)
	require.Equal(t, http.StatusOK, code)
	var doc scene.Document
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	assert.False(t, doc.Ready)

	code, env = do(t, r, http.MethodPost, "/api/v1/dashboard/map-ready", "owner-1", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	assert.True(t, doc.Ready)
	assert.Len(t, doc.Features.Features, 3)

	code, env = do(t, r, http.MethodGet, "/api/v1/dashboard/markers?lat=12.9716&lng=77.5946", "owner-1", nil)
	require.Equal(t, http.StatusOK, code)
	var hit application.MarkerHitDTO
	require.NoError(t, json.Unmarshal(env.Data, &hit))
	assert.Equal(t, scene.RoleStart, hit.Marker.Role)
}

func TestHTTP_SessionStream(t *testing.T) {
	r := newRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	id := openSession(t, r, "owner-1", stops[:2]...)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/scenes/session/" + id + "/ws?owner_id=owner-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg StreamMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "snapshot", msg.Type)
	require.NotNil(t, msg.Document)
	assert.False(t, msg.Document.Ready)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ready"}))

	seen := map[scene.OpType]int{}
	for seen[scene.OpFitBounds] == 0 {
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, "op", msg.Type)
		seen[msg.Op.Type]++
	}
	assert.Equal(t, 2, seen[scene.OpAddMarker])
}

func TestHTTP_StreamRequiresOwner(t *testing.T) {
	r := newRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequestWithContext(context.Background(), http.MethodGet, "/api/v1/scenes/dashboard/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
