package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/gitdigest/internal/config"
	"github.com/huangang/gitdigest/internal/middleware"
	"github.com/huangang/gitdigest/internal/models"
	"github.com/huangang/gitdigest/internal/services"
	"github.com/huangang/gitdigest/internal/services/activity"
	"github.com/huangang/gitdigest/internal/services/github"
	"github.com/huangang/gitdigest/internal/utils"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("handler-test-secret")
}

type fakeFetcher struct {
	repos    []activity.Repository
	scopes   github.GrantedScopes
	commits  map[int64][]activity.Commit
	prs      []activity.PullRequest
	listErr  error
	public   []activity.Repository
	lastUser string
}

func (f *fakeFetcher) ListRepositories(ctx context.Context) ([]activity.Repository, github.GrantedScopes, error) {
	return f.repos, f.scopes, f.listErr
}

func (f *fakeFetcher) ListCommits(ctx context.Context, repo activity.Repository, author string, since time.Time) ([]activity.Commit, error) {
	return f.commits[repo.ID], nil
}

func (f *fakeFetcher) SearchPullRequests(ctx context.Context, author string, since time.Time) ([]activity.PullRequest, error) {
	return f.prs, nil
}

func (f *fakeFetcher) ListPublicRepositories(ctx context.Context, username string) ([]activity.Repository, error) {
	f.lastUser = username
	if username == "ghost" {
		return nil, github.ErrNotFound
	}
	return f.public, nil
}

func (f *fakeFetcher) Viewer(ctx context.Context) (*github.Profile, error) {
	return nil, errors.New("not used")
}

type fakeSummarizer struct {
	err error
}

func (s *fakeSummarizer) Summarize(ctx context.Context, activities []activity.RepositoryActivity, style activity.SummaryStyle, lang activity.OutputLanguage) (*activity.Summary, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	summaries := make([]activity.RepoSummary, 0, len(activities))
	for _, a := range activities {
		summaries = append(summaries, activity.RepoSummary{RepoName: a.RepoName, Summary: "worked", Tags: []string{"go", "api"}})
	}
	return &activity.Summary{
		Headline:        fmt.Sprintf("%s report", style),
		KeyAchievements: []string{"shipped", "reviewed", "fixed"},
		RepoSummaries:   summaries,
	}, "fake-model", nil
}

type testEnv struct {
	db         *gorm.DB
	router     *gin.Engine
	fetcher    *fakeFetcher
	summarizer *fakeSummarizer
	sessions   *services.SessionService
	user       models.User
	cookie     *http.Cookie
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", name),
	}, false)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := models.SeedDefaultData(db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)

	cfg := config.DefaultConfig()
	cfg.Server.FrontendURL = "http://app.test"
	cfg.Server.AdminLogins = []string{"octocat"}
	cfg.GitHub.ClientID = "client"

	cipher, err := utils.NewTokenCipher("handler-test-secret")
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	sealed, _ := cipher.Seal("gho_test")
	user := models.User{GitHubID: 1, Login: "octocat", Name: "The Octocat", AccessToken: sealed, TokenScopes: "read:user,repo", TokenValid: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	now := time.Now()
	env := &testEnv{
		db: db,
		fetcher: &fakeFetcher{
			repos: []activity.Repository{
				{ID: 1, FullName: "octocat/api", PushedAt: now},
				{ID: 2, FullName: "octocat/secret", Private: true, PushedAt: now},
			},
			scopes: github.GrantedScopes{"read:user", "repo"},
			commits: map[int64][]activity.Commit{
				1: {{Message: "fix", SHA: "a", Timestamp: now.Add(-time.Hour).Format(time.RFC3339)}},
				2: {{Message: "feat", SHA: "b", Timestamp: now.Add(-2 * time.Hour).Format(time.RFC3339)}},
			},
			public: []activity.Repository{{ID: 1, FullName: "octocat/api"}},
		},
		summarizer: &fakeSummarizer{},
		user:       user,
	}

	factory := func(token string) (github.Fetcher, error) { return env.fetcher, nil }
	auth := services.NewAuthService(db, cfg.GitHub, cipher, factory)
	env.sessions = services.NewSessionService(db, cfg.Session)
	preferences := services.NewPreferenceService(db)
	repositories := services.NewRepositoryService(db, factory)
	reports := services.NewReportService(db, cfg.Activity, factory, env.summarizer)

	if _, err := preferences.Get(user.ID); err != nil {
		t.Fatalf("preferences: %v", err)
	}
	sid, _, err := env.sessions.Create(user.ID, "127.0.0.1", "test")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	env.cookie = &http.Cookie{Name: cfg.Session.CookieName, Value: sid}

	authHandler := NewAuthHandler(auth, env.sessions, preferences, cfg)
	githubHandler := NewGitHubHandler(auth, repositories, reports, preferences)
	reportHandler := NewReportHandler(auth, reports, preferences, services.NewNotificationService(db, reports, preferences))
	preferenceHandler := NewPreferenceHandler(preferences)
	settingsHandler := NewSystemConfigHandler(services.NewSystemConfigService(db), cfg)

	r := gin.New()
	r.GET("/health", NewHealthHandler(db).CheckHealth)
	r.GET("/metrics", Metrics())
	api := r.Group("/api")
	api.GET("/auth/login", authHandler.Login)
	api.GET("/auth/callback", authHandler.Callback)
	api.GET("/github/public-repos/:username", githubHandler.PublicRepos)

	protected := api.Group("")
	protected.Use(middleware.SessionRequired(env.sessions, cfg.Session))
	protected.GET("/auth/me", authHandler.Me)
	protected.POST("/auth/logout", authHandler.Logout)
	protected.GET("/preferences", preferenceHandler.Get)
	protected.PUT("/preferences", preferenceHandler.Update)
	protected.GET("/github/private-repos", githubHandler.PrivateRepos)
	protected.POST("/github/activity", githubHandler.Activity)
	protected.POST("/reports/generate", reportHandler.Generate)
	protected.POST("/reports/summarize", reportHandler.Summarize)
	protected.GET("/reports", reportHandler.List)
	protected.GET("/reports/:id", reportHandler.Get)
	protected.POST("/reports/:id/share", reportHandler.Share)

	admin := protected.Group("/system")
	admin.Use(middleware.AdminRequired(cfg.Server.AdminLogins))
	admin.GET("/settings", settingsHandler.GetSettings)
	admin.PUT("/settings", settingsHandler.UpdateSettings)

	env.router = r
	return env
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, withSession bool) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if withSession {
		req.AddCookie(e.cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.do(t, "GET", "/health", nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "ok" || body["timestamp"] == "" {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.do(t, "GET", "/metrics", nil, false)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Errorf("status = %d", w.Code)
	}
}

func TestAuth_LoginRedirect(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.do(t, "GET", "/api/auth/login", nil, false)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d", w.Code)
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if loc.Host != "github.com" || loc.Query().Get("client_id") != "client" {
		t.Errorf("Location = %s", loc)
	}
	if scope := loc.Query().Get("scope"); scope != "read:user user:email" {
		t.Errorf("scope = %q, expected basic scopes only", scope)
	}
}

func TestAuth_CallbackErrors(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		query string
		want  string
	}{
		{"?error=access_denied", "auth_cancelled"},
		{"?code=", "auth_cancelled"},
		{"?code=abc&state=forged", "auth_failed"},
	}
	for _, tt := range tests {
		w, _ := env.do(t, "GET", "/api/auth/callback"+tt.query, nil, false)
		if w.Code != http.StatusFound {
			t.Fatalf("%s: status = %d", tt.query, w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "http://app.test/?error="+tt.want {
			t.Errorf("%s: Location = %s", tt.query, loc)
		}
	}
}

func TestAuth_MeAndLogout(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, "GET", "/api/auth/me", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var me struct {
		User        UserResponse                `json:"user"`
		Preferences services.PreferenceResponse `json:"preferences"`
	}
	json.Unmarshal(resp.Data, &me)
	if me.User.Login != "octocat" || me.User.GitHubID != 1 {
		t.Errorf("user = %+v", me.User)
	}
	if me.Preferences.ReportStyle != "PROFESSIONAL" {
		t.Errorf("preferences = %+v", me.Preferences)
	}

	w, _ = env.do(t, "POST", "/api/auth/logout", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}
	w, _ = env.do(t, "GET", "/api/auth/me", nil, true)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status after logout = %d, expected 401", w.Code)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/auth/me", "/api/preferences", "/api/github/private-repos", "/api/reports"} {
		if w, _ := env.do(t, "GET", path, nil, false); w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, expected 401", path, w.Code)
		}
	}
}

func TestPreferences_Update(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, "PUT", "/api/preferences", map[string]interface{}{
		"reportStyle":   "TECHNICAL",
		"selectedRepos": []int64{1},
	}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var pref services.PreferenceResponse
	json.Unmarshal(resp.Data, &pref)
	if pref.ReportStyle != "TECHNICAL" || len(pref.SelectedRepos) != 1 {
		t.Errorf("preferences = %+v", pref)
	}

	w, _ = env.do(t, "PUT", "/api/preferences", map[string]interface{}{"pushTime": "9am"}, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", w.Code)
	}
}

func TestGitHub_PublicRepos(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, "GET", "/api/github/public-repos/octocat", nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var repos []activity.Repository
	json.Unmarshal(resp.Data, &repos)
	if len(repos) != 1 || env.fetcher.lastUser != "octocat" {
		t.Errorf("repos = %+v", repos)
	}

	w, _ = env.do(t, "GET", "/api/github/public-repos/ghost", nil, false)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, expected 404", w.Code)
	}
}

func TestGitHub_PrivateRepos(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, "GET", "/api/github/private-repos", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var repos []activity.Repository
	json.Unmarshal(resp.Data, &repos)
	if len(repos) != 1 || repos[0].FullName != "octocat/secret" {
		t.Errorf("repos = %+v", repos)
	}

	env.fetcher.scopes = github.GrantedScopes{"read:user"}
	w, resp = env.do(t, "GET", "/api/github/private-repos", nil, true)
	if w.Code != http.StatusForbidden || !strings.Contains(resp.Message, "repo") {
		t.Errorf("status = %d message = %q, expected 403", w.Code, resp.Message)
	}
}

func TestGitHub_Activity(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, "POST", "/api/github/activity", map[string]interface{}{
		"accessOptions": map[string]bool{"publicRepos": true, "privateRepos": true},
		"days":          1,
	}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var activities []map[string]interface{}
	json.Unmarshal(resp.Data, &activities)
	if len(activities) != 2 {
		t.Fatalf("activities = %v", activities)
	}
	if activities[0]["eventCount"] != float64(1) {
		t.Errorf("eventCount = %v", activities[0]["eventCount"])
	}

	w, _ = env.do(t, "POST", "/api/github/activity", map[string]interface{}{
		"accessOptions": map[string]bool{"publicRepos": false, "privateRepos": false},
	}, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty scope status = %d, expected 400", w.Code)
	}

	w, _ = env.do(t, "POST", "/api/github/activity", map[string]interface{}{"days": 400}, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("days out of range status = %d, expected 400", w.Code)
	}
}

func TestGitHub_ActivityRevokedToken(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.listErr = github.ErrUnauthorized

	w, resp := env.do(t, "POST", "/api/github/activity", map[string]interface{}{"days": 1}, true)
	if w.Code != http.StatusUnauthorized || resp.Message != "Session expired, please login again" {
		t.Fatalf("status = %d message = %q", w.Code, resp.Message)
	}

	// The token is now marked invalid, so the session is rejected outright.
	env.fetcher.listErr = nil
	w, _ = env.do(t, "GET", "/api/auth/me", nil, true)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, expected 401", w.Code)
	}
}

func TestReports_Generate(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, "POST", "/api/reports/generate", map[string]interface{}{
		"accessOptions": map[string]bool{"publicRepos": true, "privateRepos": true},
		"days":          1,
		"style":         "ACHIEVEMENT",
		"language":      "ENGLISH",
		"repoIds":       []int64{2},
	}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var report activity.DailyReport
	json.Unmarshal(resp.Data, &report)
	if report.Headline != "ACHIEVEMENT report" || report.Style != activity.StyleAchievement {
		t.Errorf("report = %+v", report)
	}
	if report.TotalCommits != 1 || len(report.RepoSummaries) != 1 || report.RepoSummaries[0].RepoName != "octocat/secret" {
		t.Errorf("subset not applied: %+v", report)
	}

	w, resp = env.do(t, "GET", "/api/reports", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list services.ReportListResponse
	json.Unmarshal(resp.Data, &list)
	if list.Total != 1 || len(list.Items) != 1 {
		t.Fatalf("history = %+v", list)
	}

	w, resp = env.do(t, "GET", fmt.Sprintf("/api/reports/%d", list.Items[0].ID), nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var detail services.ReportDetail
	json.Unmarshal(resp.Data, &detail)
	if detail.Report == nil || detail.Report.Headline != "ACHIEVEMENT report" {
		t.Errorf("detail = %+v", detail)
	}

	if w, _ := env.do(t, "GET", "/api/reports/9999", nil, true); w.Code != http.StatusNotFound {
		t.Errorf("missing report status = %d, expected 404", w.Code)
	}
	if w, _ := env.do(t, "GET", "/api/reports/abc", nil, true); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, expected 400", w.Code)
	}

	// Nothing to share to until a webhook is configured.
	sharePath := fmt.Sprintf("/api/reports/%d/share", list.Items[0].ID)
	if w, _ := env.do(t, "POST", sharePath, nil, true); w.Code != http.StatusBadRequest {
		t.Errorf("share without channels status = %d, expected 400", w.Code)
	}

	var posted atomic.Int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { posted.Add(1) }))
	defer hook.Close()
	env.db.Model(&models.UserPreference{}).Where("user_id = ?", env.user.ID).Update("discord_webhook", hook.URL)

	w, resp = env.do(t, "POST", sharePath, nil, true)
	if w.Code != http.StatusOK || posted.Load() != 1 {
		t.Fatalf("share status = %d posted = %d body = %s", w.Code, posted.Load(), w.Body.String())
	}
	var shared services.ShareResult
	json.Unmarshal(resp.Data, &shared)
	if len(shared.Delivered) != 1 || shared.Delivered[0] != "discord" {
		t.Errorf("share result = %+v", shared)
	}
}

func TestReports_GenerateUsesPreferences(t *testing.T) {
	env := newTestEnv(t)

	// Defaults: PROFESSIONAL style and public repositories only.
	w, resp := env.do(t, "POST", "/api/reports/generate", map[string]interface{}{}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var report activity.DailyReport
	json.Unmarshal(resp.Data, &report)
	if report.Style != activity.StyleProfessional || report.TotalCommits != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestOptionalBodyEndpoints(t *testing.T) {
	env := newTestEnv(t)

	send := func(path string, body io.Reader) *httptest.ResponseRecorder {
		req, _ := http.NewRequest("POST", path, body)
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(env.cookie)
		// A streamed body has no known length, so the decoder sees EOF.
		if body != nil {
			req.ContentLength = -1
			req.Body = io.NopCloser(body)
		}
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		return w
	}

	for _, path := range []string{"/api/reports/generate", "/api/github/activity"} {
		t.Run(path, func(t *testing.T) {
			if w := send(path, nil); w.Code != http.StatusOK {
				t.Errorf("no body: status = %d body = %s", w.Code, w.Body.String())
			}
			if w := send(path, strings.NewReader("")); w.Code != http.StatusOK {
				t.Errorf("empty stream: status = %d body = %s", w.Code, w.Body.String())
			}

			w := send(path, strings.NewReader("{"))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("malformed: status = %d", w.Code)
			}
			var resp envelope
			json.Unmarshal(w.Body.Bytes(), &resp)
			if !strings.HasPrefix(resp.Message, "invalid request body") {
				t.Errorf("malformed message = %q", resp.Message)
			}
		})
	}
}

func TestReports_GenerateNoActivity(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.repos = nil

	w, resp := env.do(t, "POST", "/api/reports/generate", map[string]interface{}{"days": 1}, true)
	if w.Code != http.StatusOK || resp.Message != "no_activity" {
		t.Errorf("status = %d message = %q", w.Code, resp.Message)
	}
}

func TestReports_GenerateSummarizerDown(t *testing.T) {
	env := newTestEnv(t)
	env.summarizer.err = errors.New("all LLMs failed")

	w, _ := env.do(t, "POST", "/api/reports/generate", map[string]interface{}{"days": 1}, true)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, expected 502", w.Code)
	}
}

func TestReports_Summarize(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, "POST", "/api/reports/summarize", map[string]interface{}{
		"activities": []activity.RepositoryActivity{{
			RepoID:   1,
			RepoName: "octocat/api",
			Commits:  []activity.Commit{{Message: "fix", SHA: "a", Timestamp: "2026-10-17T08:00:00Z"}},
		}},
		"style":    "TECHNICAL",
		"language": "JAPANESE",
	}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var report activity.DailyReport
	json.Unmarshal(resp.Data, &report)
	if report.TotalCommits != 1 || report.Style != activity.StyleTechnical {
		t.Errorf("report = %+v", report)
	}

	w, _ = env.do(t, "POST", "/api/reports/summarize", map[string]interface{}{"style": "TECHNICAL"}, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", w.Code)
	}
}

func TestSystemSettings(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, "PUT", "/api/system/settings", map[string]int{"fetch_concurrency": 3, "max_lookback_days": 14}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var settings settingsResponse
	json.Unmarshal(resp.Data, &settings)
	if settings.FetchConcurrency != 3 || settings.MaxLookbackDays != 14 {
		t.Errorf("settings = %+v", settings)
	}

	w, _ = env.do(t, "PUT", "/api/system/settings", map[string]int{"fetch_timeout": 0}, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", w.Code)
	}

	// Non-admins are turned away.
	env.db.Model(&models.User{}).Where("id = ?", env.user.ID).Update("login", "hubot")
	if w, _ := env.do(t, "GET", "/api/system/settings", nil, true); w.Code != http.StatusForbidden {
		t.Errorf("status = %d, expected 403", w.Code)
	}
}
