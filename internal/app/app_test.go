package app

import (
	"context"
	"encoding/json"
	"mindora_hub/internal/config"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modulesBody = `{"success":true,"data":{"modules":[
	{"_id":"m1","title":"Intro to AI","moduleType":"ai","userProgress":{"percentage":95}},
	{"_id":"m2","title":"Ancient Egypt","moduleType":"history"},
	{"_id":"m3","title":"Budgeting","moduleType":"finance","difficulty":"Hard"}
]}}`

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/children-modules":
			w.Write([]byte(modulesBody))
		case r.URL.Path == "/api/achievements":
			w.Write([]byte(`[{"_id":"a1","name":"First Steps","color":"#ffd700"},{"_id":"a2","name":"Explorer","color":"#4ecdc4"}]`))
		case strings.HasPrefix(r.URL.Path, "/api/achievements/user/"):
			w.Write([]byte(`[{"achievement":"a2"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, upstreamURL string) *App {
	t.Helper()
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	cfg.Server.Mode = "test"
	cfg.Log.File = ""
	cfg.Content.ModulesBaseURL = upstreamURL
	cfg.Content.APIBaseURL = upstreamURL + "/api"
	cfg.Profile.UserID = "user-42"
	return NewApp(cfg)
}

func getData(t *testing.T, a *App, method, path string, out interface{}) int {
	t.Helper()
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(method, path, nil))

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		if out != nil && len(env.Data) > 0 {
			require.NoError(t, json.Unmarshal(env.Data, out))
		}
	}
	return w.Code
}

type dashboardView struct {
	Live        bool `json:"live"`
	LessonCards []struct {
		ID       string `json:"id"`
		Progress int    `json:"progress"`
	} `json:"lessonCards"`
	LearningPath []struct {
		Completed bool `json:"completed"`
	} `json:"learningPath"`
	EarnedCount       int `json:"earnedCount"`
	TotalAchievements int `json:"totalAchievements"`
}

func waitIdle(t *testing.T, a *App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.services.scheduler.WaitIdle(ctx))
}

func TestApp_RefreshThenDashboard(t *testing.T) {
	a := newTestApp(t, newUpstream(t).URL)

	var before dashboardView
	require.Equal(t, http.StatusOK, getData(t, a, http.MethodGet, "/api/dashboard", &before))
	assert.False(t, before.Live)
	assert.Len(t, before.LessonCards, 3)

	var after dashboardView
	require.Equal(t, http.StatusOK, getData(t, a, http.MethodPost, "/api/dashboard/refresh?wait=true", &after))
	assert.True(t, after.Live)
	require.Len(t, after.LessonCards, 2)
	assert.Equal(t, "m1", after.LessonCards[0].ID)
	assert.Equal(t, 95, after.LessonCards[0].Progress)
	assert.Equal(t, "m3", after.LessonCards[1].ID)
	assert.True(t, after.LearningPath[0].Completed)
	assert.Equal(t, 1, after.EarnedCount)
	assert.Equal(t, 2, after.TotalAchievements)
}

func TestApp_ApplyConfigReloadsCategoriesAndLimits(t *testing.T) {
	a := newTestApp(t, newUpstream(t).URL)

	var seen *config.Config
	a.RegisterConfigCallback(func(cfg *config.Config) { seen = cfg })

	next := *a.Config
	next.Content.AllowedCategories = []string{"history"}
	next.Views.LessonLimit = 1
	a.applyConfig(&next)
	waitIdle(t, a)

	assert.Same(t, &next, seen)
	var d dashboardView
	require.Equal(t, http.StatusOK, getData(t, a, http.MethodGet, "/api/dashboard", &d))
	require.Len(t, d.LessonCards, 1)
	assert.Equal(t, "m2", d.LessonCards[0].ID)
}

func TestApp_UpstreamDownKeepsFallback(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()
	a := newTestApp(t, upstream.URL)

	var d dashboardView
	require.Equal(t, http.StatusOK, getData(t, a, http.MethodPost, "/api/dashboard/refresh?wait=true", &d))
	assert.False(t, d.Live)
	assert.Len(t, d.LessonCards, 3)
	assert.Contains(t, a.services.scheduler.Stats().LastError, "status 502")
}

func TestApp_HealthAndMetrics(t *testing.T) {
	a := newTestApp(t, newUpstream(t).URL)

	assert.Equal(t, http.StatusOK, getData(t, a, http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, getData(t, a, http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusAccepted, getData(t, a, http.MethodPost, "/api/dashboard/focus", nil))
	waitIdle(t, a)
}

func TestRefreshWaitTimeout(t *testing.T) {
	cfg := &config.Config{}
	cfg.Content.Timeout = 10 * time.Second
	cfg.Refresh.MaxRetries = 2
	cfg.Refresh.RetryInterval = 2 * time.Second

	assert.Equal(t, 2*(30*time.Second+4*time.Second)+time.Second, refreshWaitTimeout(cfg))
}
