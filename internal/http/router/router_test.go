package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
	limitermemory "github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/cityfix-backend/internal/config"
	"github.com/ignatzorin/cityfix-backend/internal/domain/entity"
	"github.com/ignatzorin/cityfix-backend/internal/domain/repository"
	"github.com/ignatzorin/cityfix-backend/internal/http/middleware"
	"github.com/ignatzorin/cityfix-backend/internal/http/router"
	"github.com/ignatzorin/cityfix-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/cityfix-backend/internal/interface/http/handler"
	"github.com/ignatzorin/cityfix-backend/internal/logger"
	"github.com/ignatzorin/cityfix-backend/internal/metrics"
	"github.com/ignatzorin/cityfix-backend/internal/service"
	"github.com/ignatzorin/cityfix-backend/internal/usecase/community"
	"github.com/ignatzorin/cityfix-backend/internal/usecase/issue"
	"github.com/ignatzorin/cityfix-backend/internal/ws"
)

const adminPassword = "test-admin-password"

func init() {
	gin.SetMode(gin.TestMode)
	binding.EnableDecoderDisallowUnknownFields = true
	logger.Discard()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Pagination *struct {
		Total   int  `json:"total"`
		Page    int  `json:"page"`
		PerPage int  `json:"per_page"`
		HasMore bool `json:"has_more"`
	} `json:"pagination"`
}

type testServer struct {
	engine *gin.Engine
	store  *memory.Store
	hub    *ws.Hub
	tokens *service.AdminTokenManager
	user   *entity.User
}

func newTestServer(t *testing.T, opts ...func(*config.Config)) *testServer {
	t.Helper()

	cfg := &config.Config{
		Env:             "test",
		AllowedOrigins:  []string{"http://localhost:3000"},
		RateLimitLimit:  1000,
		RateLimitPeriod: time.Minute,
		IssueRateLimit:  1000,
		IssueRatePeriod: time.Minute,
		WSSendBuffer:    16,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	store := memory.NewStore()
	user := store.SeedUser(entity.User{Username: "asha", Email: "asha@example.com"})

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hub := ws.NewHub(logger.Log, m)
	t.Cleanup(hub.Shutdown)

	tokens := service.NewAdminTokenManager("router-test-secret-router-test-secret", time.Hour)
	auth, err := service.NewAdminAuthenticator("", adminPassword, tokens)
	require.NoError(t, err)

	locks := issue.NewIssueLocks()
	h := router.Handlers{
		Issue: handler.NewIssueHandler(
			issue.NewCreateIssueUseCase(store, store, hub, entity.DefaultIssuePolicy(), m),
			issue.NewTransitionStatusUseCase(store, hub, locks, m),
			issue.NewDeleteIssueUseCase(store, hub, locks, m),
			issue.NewGetIssueUseCase(store, store),
			issue.NewListIssuesUseCase(store),
		),
		Community: handler.NewCommunityHandler(
			community.NewGetUserProfileUseCase(store),
			community.NewLeaderboardUseCase(store),
			community.NewListUsersUseCase(store),
			community.NewAdminStatsUseCase(store),
		),
		WS:     handler.NewWSHandler(hub, cfg.AllowedOrigins, cfg.WSSendBuffer),
		Health: handler.NewHealthHandler(nil, hub),
	}

	var limiterStore limiter.Store = limitermemory.NewStore()
	engine := router.SetupRouter(cfg, h, auth, limiterStore, reg)

	return &testServer{engine: engine, store: store, hub: hub, tokens: tokens, user: user}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func asAdmin() map[string]string {
	return map[string]string{middleware.AdminPasswordHeader: adminPassword}
}

func (s *testServer) createIssue(t *testing.T, withOwner bool) uuid.UUID {
	t.Helper()

	body := map[string]interface{}{
		"type":        "Pothole",
		"location":    "MG Road",
		"description": "Deep pothole near the bus stop",
		"lat":         12.97,
		"lng":         77.59,
	}
	if withOwner {
		body["user_id"] = s.user.ID.String()
	}

	w, env := s.do(t, http.MethodPost, "/api/issues", body, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	return created.ID
}

func TestCreateIssue(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/issues", map[string]interface{}{
		"user_id":     s.user.ID.String(),
		"type":        "Garbage",
		"location":    "Park Street",
		"description": "Overflowing bin",
		"date":        "1999-01-01T00:00:00Z",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)

	var created struct {
		UserID        *uuid.UUID `json:"user_id"`
		Status        string     `json:"status"`
		PointsAwarded int        `json:"points_awarded"`
		ReporterName  *string    `json:"reporter_name"`
		Date          time.Time  `json:"date"`
		Lat           *float64   `json:"lat"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "pending", created.Status)
	assert.Zero(t, created.PointsAwarded)
	require.NotNil(t, created.ReporterName)
	assert.Equal(t, "asha", *created.ReporterName)
	assert.Nil(t, created.Lat)
	assert.True(t, created.Date.After(time.Now().Add(-time.Minute)), "дата назначается сервером")
}

func TestCreateIssue_Rejected(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		body interface{}
	}{
		{"unknown field", `{"type":"a","location":"b","description":"c","extra":1}`},
		{"malformed json", `{"type":`},
		{"missing description", map[string]interface{}{"type": "a", "location": "b"}},
		{"bad user id", map[string]interface{}{"type": "a", "location": "b", "description": "c", "user_id": "nope"}},
		{"unknown user", map[string]interface{}{"type": "a", "location": "b", "description": "c", "user_id": uuid.NewString()}},
		{"only lat", map[string]interface{}{"type": "a", "location": "b", "description": "c", "lat": 12.9}},
		{"outside bounds", map[string]interface{}{"type": "a", "location": "b", "description": "c", "lat": 51.5, "lng": -0.12}},
		{"bad image", map[string]interface{}{"type": "a", "location": "b", "description": "c", "image": "data:text/plain;base64,aGk="}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := s.do(t, http.MethodPost, "/api/issues", tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		})
	}

	_, total, err := s.store.List(context.Background(), repository.IssueFilter{Limit: 100})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUpdateStatus_RequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	id := s.createIssue(t, true)

	path := "/api/issues/" + id.String() + "/status"

	w, env := s.do(t, http.MethodPut, path, map[string]string{"status": "solved"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	w, _ = s.do(t, http.MethodPut, path, map[string]string{"status": "solved"},
		map[string]string{middleware.AdminPasswordHeader: "wrong"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Отказ не должен менять состояние.
	stored, err := s.store.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "pending", stored.Status.String())
}

func TestUpdateStatus_AwardsPoints(t *testing.T) {
	s := newTestServer(t)
	id := s.createIssue(t, true)
	path := "/api/issues/" + id.String() + "/status"

	type transition struct {
		Issue struct {
			Status        string `json:"status"`
			PointsAwarded int    `json:"points_awarded"`
		} `json:"issue"`
		PointsAwarded int  `json:"points_awarded"`
		OwnerPoints   *int `json:"owner_points"`
	}

	steps := []struct {
		status      string
		wantDelta   int
		wantAwarded int
		wantBalance int
	}{
		{"in-progress", 10, 10, 10},
		{"solved", 20, 30, 30},
		{"in-progress", 0, 30, 30},
		{"solved", 0, 30, 30},
	}

	for _, step := range steps {
		w, env := s.do(t, http.MethodPut, path, map[string]string{"status": step.status}, asAdmin())
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var out transition
		require.NoError(t, json.Unmarshal(env.Data, &out))
		assert.Equal(t, step.status, out.Issue.Status)
		assert.Equal(t, step.wantDelta, out.PointsAwarded)
		assert.Equal(t, step.wantAwarded, out.Issue.PointsAwarded)
		if step.wantDelta > 0 {
			require.NotNil(t, out.OwnerPoints)
			assert.Equal(t, step.wantBalance, *out.OwnerPoints)
		}
	}

	balance, err := s.store.Balance(context.Background(), s.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, balance)
}

func TestUpdateStatus_WithBearerToken(t *testing.T) {
	s := newTestServer(t)
	id := s.createIssue(t, false)

	token, _, err := s.tokens.Generate("ops")
	require.NoError(t, err)

	w, _ := s.do(t, http.MethodPut, "/api/issues/"+id.String()+"/status",
		map[string]string{"status": "in-progress"},
		map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUpdateStatus_Errors(t *testing.T) {
	s := newTestServer(t)
	id := s.createIssue(t, true)

	w, env := s.do(t, http.MethodPut, "/api/issues/"+id.String()+"/status", map[string]string{"status": "closed"}, asAdmin())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	w, env = s.do(t, http.MethodPut, "/api/issues/"+uuid.NewString()+"/status", map[string]string{"status": "solved"}, asAdmin())
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	w, _ = s.do(t, http.MethodPut, "/api/issues/not-a-uuid/status", map[string]string{"status": "solved"}, asAdmin())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteIssue(t *testing.T) {
	s := newTestServer(t)
	id := s.createIssue(t, true)
	path := "/api/issues/" + id.String()

	w, _ := s.do(t, http.MethodDelete, path, nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := s.do(t, http.MethodDelete, path, nil, asAdmin())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, fmt.Sprintf(`{"issue_id":%q}`, id.String()), string(env.Data))

	w, _ = s.do(t, http.MethodGet, path, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Повторное удаление не считается ошибкой.
	w, _ = s.do(t, http.MethodDelete, path, nil, asAdmin())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListIssues_Pagination(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 5; i++ {
		s.createIssue(t, i%2 == 0)
	}

	w, env := s.do(t, http.MethodGet, "/api/issues?page=2&per_page=2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 5, env.Pagination.Total)
	assert.Equal(t, 2, env.Pagination.Page)
	assert.Equal(t, 2, env.Pagination.PerPage)
	assert.True(t, env.Pagination.HasMore)

	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 2)

	w, env = s.do(t, http.MethodGet, "/api/issues?page=3&per_page=2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, env.Pagination.HasMore)

	w, env = s.do(t, http.MethodGet, "/api/issues?page=9223372036854775807&per_page=100", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `[]`, string(env.Data))
	assert.Equal(t, 5, env.Pagination.Total)
	assert.False(t, env.Pagination.HasMore)
}

func TestCommunityEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := s.createIssue(t, true)

	w, _ := s.do(t, http.MethodPut, "/api/issues/"+id.String()+"/status", map[string]string{"status": "solved"}, asAdmin())
	require.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/users/"+s.user.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile struct {
		Points        int `json:"points"`
		TotalReports  int `json:"total_reports"`
		SolvedReports int `json:"solved_reports"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, 30, profile.Points)
	assert.Equal(t, 1, profile.TotalReports)
	assert.Equal(t, 1, profile.SolvedReports)

	w, env = s.do(t, http.MethodGet, "/api/leaderboard", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var board []struct {
		Username string `json:"username"`
		Points   int    `json:"points"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &board))
	require.NotEmpty(t, board)
	assert.Equal(t, "asha", board[0].Username)

	w, _ = s.do(t, http.MethodGet, "/api/users/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := s.createIssue(t, true)
	s.createIssue(t, false)

	w, _ := s.do(t, http.MethodPut, "/api/issues/"+id.String()+"/status", map[string]string{"status": "in-progress"}, asAdmin())
	require.Equal(t, http.StatusOK, w.Code)

	for _, path := range []string{"/api/admin/users", "/api/admin/stats"} {
		w, _ := s.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}

	w, env := s.do(t, http.MethodGet, "/api/admin/stats", nil, asAdmin())
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"total_issues": 2,
		"pending": 1,
		"in_progress": 1,
		"solved": 0,
		"total_users": 1,
		"total_points_distributed": 10
	}`, string(env.Data))

	w, env = s.do(t, http.MethodGet, "/api/admin/users", nil, asAdmin())
	require.Equal(t, http.StatusOK, w.Code)
	var users []struct {
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &users))
	require.Len(t, users, 1)
	assert.Equal(t, "asha@example.com", users[0].Email)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"in-memory"`)

	s.createIssue(t, false)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cityfix_issues_created_total 1")
}

func TestCreateIssue_RateLimited(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.IssueRateLimit = 2
		c.IssueRatePeriod = time.Hour
	})

	s.createIssue(t, false)
	s.createIssue(t, false)

	w, env := s.do(t, http.MethodPost, "/api/issues", map[string]string{
		"type": "a", "location": "b", "description": "c",
	}, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)

	// Чтение не попадает под лимит на создание.
	w, _ = s.do(t, http.MethodGet, "/api/issues", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebSocket_ReceivesLifecycleEvents(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	id := s.createIssue(t, true)
	w, _ := s.do(t, http.MethodPut, "/api/issues/"+id.String()+"/status", map[string]string{"status": "in-progress"}, asAdmin())
	require.Equal(t, http.StatusOK, w.Code)

	var kinds []string
	for len(kinds) < 3 {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		kinds = append(kinds, msg.Type)
	}
	assert.Equal(t, []string{"new_issue", "status_updated", "points_updated"}, kinds)
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, s.hub.Count())
}

func TestSetupRouter_LeavesGlobalsUntouched(t *testing.T) {
	binding.EnableDecoderDisallowUnknownFields = false
	defer func() { binding.EnableDecoderDisallowUnknownFields = true }()
	mode := gin.Mode()

	newTestServer(t, func(c *config.Config) { c.Env = "production" })

	assert.False(t, binding.EnableDecoderDisallowUnknownFields)
	assert.Equal(t, mode, gin.Mode())
}
