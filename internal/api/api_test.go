package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/resumehub/internal/cache"
	"github.com/example/resumehub/internal/core"
	"github.com/example/resumehub/internal/db/memory"
	"github.com/example/resumehub/internal/export"
	"github.com/example/resumehub/internal/metrics"
	"github.com/example/resumehub/internal/middleware"
	"github.com/example/resumehub/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenTable map[string]string

func (t tokenTable) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	uid, ok := t[idToken]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &auth.Token{UID: uid, Claims: map[string]interface{}{"email": uid + "@example.com"}}, nil
}

type stubRasterizer struct {
	err error
}

func (s stubRasterizer) Rasterize(context.Context, string, export.RasterOptions) (image.Image, error) {
	if s.err != nil {
		return nil, s.err
	}
	img := image.NewRGBA(image.Rect(0, 0, 80, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 80; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img, nil
}

type testServer struct {
	router   *gin.Engine
	resumes  *memory.ResumeStore
	users    *memory.UserStore
	metrics  *metrics.Metrics
	shutdown chan struct{}
}

func newTestServer(t *testing.T, raster export.Rasterizer) *testServer {
	t.Helper()
	logger := zap.NewNop()
	resumes := memory.NewResumeStore()
	users := memory.NewUserStore(
		models.User{ID: "alice", Name: "Alice", Email: "alice@example.com", Role: models.RoleUser, IsActive: true},
		models.User{ID: "bob", Name: "Bob", Email: "bob@example.com", Role: models.RoleUser, IsActive: true},
		models.User{ID: "root", Name: "Root", Email: "root@example.com", Role: models.RoleAdmin, IsActive: true},
	)
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	c := cache.NewMemoryCache()
	v := core.NewResumeValidator(1024)
	userSvc := core.NewUserService(users, nil, c, time.Minute, v, logger)
	resumeSvc := core.NewResumeService(resumes, userSvc, v, logger)
	auditSvc := core.NewAuditService(memory.NewAuditStore())
	adminSvc := core.NewAdminService(users, resumes, nil, auditSvc, c, logger)
	migrationSvc := core.NewMigrationService(resumes, v, auditSvc, logger)
	exporter := export.NewExporter(export.DefaultCatalog(), raster, nil, nil, export.Config{}, logger)
	exporter.Observe(m.ObserveExport)

	authMW := middleware.NewAuthMiddleware(tokenTable{"alice-token": "alice", "bob-token": "bob", "root-token": "root"}, userSvc, logger)
	shutdown := make(chan struct{})
	router := gin.New()
	router.Use(middleware.PrometheusMiddleware(m))
	SetupRoutes(router, logger, authMW, Dependencies{
		Resumes:   resumeSvc,
		Users:     userSvc,
		Admin:     adminSvc,
		Migration: migrationSvc,
		Exporter:  exporter,
		Validator: v,
		Metrics:   m,
		Gatherer:  reg,
		Shutdown:  shutdown,
	})
	return &testServer{router: router, resumes: resumes, users: users, metrics: m, shutdown: shutdown}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) seed(t *testing.T, r models.Resume) {
	t.Helper()
	require.NoError(t, s.resumes.Upsert(context.Background(), &r))
}

func sampleResume(id, owner string, public bool) models.Resume {
	r := models.NewResume(owner, "Engineer", "Alice Smith", "alice@example.com")
	r.ID = id
	r.IsPublic = public
	r.Skills = []string{"Go"}
	return *r
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestGetResume_StatusMapping(t *testing.T) {
	s := newTestServer(t, stubRasterizer{})
	s.seed(t, sampleResume("private-1", "alice", false))
	s.seed(t, sampleResume("public-1", "alice", true))

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/resumes/private-1", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/resumes/nope", "alice-token", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/v1/resumes/private-1", "bob-token", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/resumes/public-1", "bob-token", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/resumes/private-1", "root-token", nil).Code)

	got := decode[models.Resume](t, s.do(t, http.MethodGet, "/api/v1/resumes/private-1", "alice-token", nil))
	assert.Equal(t, "private-1", got.ID)
}

func TestSaveResume(t *testing.T) {
	s := newTestServer(t, stubRasterizer{})

	invalid := sampleResume("r1", "alice", false)
	invalid.Title = ""
	invalid.PersonalInfo.Email = "not-an-email"
	w := s.do(t, http.MethodPut, "/api/v1/resumes/r1", "alice-token", invalid)
	require.Equal(t, http.StatusBadRequest, w.Code)
	errResp := decode[ErrorResponse](t, w)
	assert.Len(t, errResp.Fields, 2)

	exists, err := s.resumes.Exists(context.Background(), "r1")
	require.NoError(t, err)
	assert.False(t, exists, "validation failures must not write")

	big := sampleResume("r1", "alice", false)
	big.Training = []models.Training{{Name: "Cert", Issuer: "Org", Image: "data:image/png;base64," + strings.Repeat("A", 2000)}}
	assert.Equal(t, http.StatusRequestEntityTooLarge, s.do(t, http.MethodPut, "/api/v1/resumes/r1", "alice-token", big).Code)

	w = s.do(t, http.MethodPut, "/api/v1/resumes/r1", "alice-token", sampleResume("r1", "", false))
	require.Equal(t, http.StatusOK, w.Code)
	saved := decode[models.Resume](t, w)
	assert.Equal(t, "alice", saved.UserID)
	assert.False(t, saved.UpdatedAt.IsZero())

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPut, "/api/v1/resumes/r1", "bob-token", sampleResume("r1", "bob", false)).Code)

	list := decode[[]models.Resume](t, s.do(t, http.MethodGet, "/api/v1/resumes", "alice-token", nil))
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].ID)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/resumes/r1", "alice-token", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/resumes/r1", "alice-token", nil).Code)
}

func TestCreateResumeAndTraining(t *testing.T) {
	s := newTestServer(t, stubRasterizer{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes", nil)
	req.Header.Set("Authorization", "Bearer alice-token")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.Resume](t, w)
	assert.Equal(t, models.DefaultResumeTitle, created.Title)

	w = s.do(t, http.MethodPost, "/api/v1/resumes/"+created.ID+"/training", "alice-token", models.Training{Name: "Go", Issuer: "Gophers"})
	require.Equal(t, http.StatusCreated, w.Code)
	withTraining := decode[models.Resume](t, w)
	require.Len(t, withTraining.Training, 1)
	trainingID := withTraining.Training[0].ID
	assert.NotEmpty(t, trainingID)

	w = s.do(t, http.MethodPut, "/api/v1/resumes/"+created.ID+"/training/"+trainingID, "alice-token", models.Training{Name: "Go 2", Issuer: "Gophers"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Go 2", decode[models.Resume](t, w).Training[0].Name)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/v1/resumes/"+created.ID+"/training/missing", "alice-token", nil).Code)
	w = s.do(t, http.MethodDelete, "/api/v1/resumes/"+created.ID+"/training/"+trainingID, "alice-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[models.Resume](t, w).Training)

	feed := decode[[]models.FeedItem](t, s.do(t, http.MethodGet, "/api/v1/feed", "alice-token", nil))
	require.Len(t, feed, 1)
	assert.Equal(t, models.FeedItemResume, feed[0].Type)
}

func TestSearch(t *testing.T) {
	s := newTestServer(t, stubRasterizer{})
	s.seed(t, sampleResume("public-1", "alice", true))
	s.seed(t, sampleResume("private-1", "alice", false))

	profiles := decode[[]models.ProfileSummary](t, s.do(t, http.MethodGet, "/api/v1/search?q=alice", "bob-token", nil))
	require.Len(t, profiles, 1)
	assert.Equal(t, "public-1", profiles[0].ResumeID)

	empty := decode[[]models.ProfileSummary](t, s.do(t, http.MethodGet, "/api/v1/search?q=%20", "bob-token", nil))
	assert.Empty(t, empty)
}

func TestExportResume(t *testing.T) {
	s := newTestServer(t, stubRasterizer{})
	s.seed(t, sampleResume("r1", "alice", false))

	w := s.do(t, http.MethodPost, "/api/v1/resumes/r1/export", "alice-token", models.ExportRequest{Theme: "compact"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="resume-compact.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", w.Header().Get("X-Export-Pages"))
	assert.Empty(t, w.Header().Get(ArchiveURLHeader))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.Exports.WithLabelValues("compact", metrics.OutcomeSuccess)))

	w = s.do(t, http.MethodPost, "/api/v1/resumes/r1/export", "alice-token", models.ExportRequest{
		Theme:    export.CustomTheme,
		FileName: "mine",
		Custom:   &models.ThemeSettings{PrimaryColor: "#abcdef", HeaderStyle: models.HeaderClean},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="mine.pdf"`, w.Header().Get("Content-Disposition"))

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/resumes/r1/export", "alice-token", models.ExportRequest{Theme: "neon"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/resumes/r1/export", "alice-token", models.ExportRequest{
		Theme:  export.CustomTheme,
		Custom: &models.ThemeSettings{HeaderStyle: "diagonal"},
	}).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/v1/resumes/r1/export", "bob-token", models.ExportRequest{Theme: "classic"}).Code)
}

func TestExportResume_RasterFailure(t *testing.T) {
	s := newTestServer(t, stubRasterizer{err: errors.New("image blocked")})
	s.seed(t, sampleResume("r1", "alice", false))

	w := s.do(t, http.MethodPost, "/api/v1/resumes/r1/export", "alice-token", models.ExportRequest{Theme: "classic"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, export.FailureNotice, decode[ErrorResponse](t, w).Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.Exports.WithLabelValues("classic", metrics.OutcomeFailure)))
}

func TestListThemes(t *testing.T) {
	s := newTestServer(t, stubRasterizer{})
	resp := decode[ThemesResponse](t, s.do(t, http.MethodGet, "/api/v1/themes", "alice-token", nil))
	assert.Len(t, resp.Themes, 4)
	assert.Equal(t, models.DefaultThemeSettings(), resp.Custom)
}

func TestRegister(t *testing.T) {
	s := newTestServer(t, stubRasterizer{})

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "x@example.com"}).Code)

	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", models.RegisterRequest{Name: "X", Email: "x@example.com", Password: "secret123"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, core.AuthUnknown, decode[ErrorResponse](t, w).Error)
}

func TestUsersAndAdmin(t *testing.T) {
	s := newTestServer(t, stubRasterizer{})

	w := s.do(t, http.MethodPost, "/api/v1/users/initialize", "alice-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[InitializeResponse](t, w).Created)

	name := "Alice B."
	w = s.do(t, http.MethodPut, "/api/v1/users/me", "alice-token", models.UpdateProfileRequest{Name: &name})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, name, decode[models.User](t, s.do(t, http.MethodGet, "/api/v1/users/me", "alice-token", nil)).Name)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/v1/admin/users", "alice-token", nil).Code)
	users := decode[[]models.User](t, s.do(t, http.MethodGet, "/api/v1/admin/users", "root-token", nil))
	assert.Len(t, users, 3)

	active := false
	w = s.do(t, http.MethodPatch, "/api/v1/admin/users/bob/status", "root-token", models.SetUserStatusRequest{IsActive: &active})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/users/me", "bob-token", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, core.ErrAccountDisabled.Error(), decode[ErrorResponse](t, w).Error)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPatch, "/api/v1/admin/users/root/status", "root-token", models.SetUserStatusRequest{IsActive: &active}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPatch, "/api/v1/admin/users/alice/role", "root-token", models.SetUserRoleRequest{Role: "owner"}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/v1/admin/users/ghost", "root-token", nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/admin/users/bob", "root-token", nil).Code)

	stats := decode[core.Stats](t, s.do(t, http.MethodGet, "/api/v1/admin/stats", "root-token", nil))
	assert.Equal(t, 2, stats.TotalUsers)
}

func TestImportLocalResumes(t *testing.T) {
	s := newTestServer(t, stubRasterizer{})
	payload := gin.H{
		"resumes": []gin.H{
			{"id": "1", "userId": "legacy-u", "title": "Old", "personalInfo": gin.H{"fullName": "Alice", "email": "alice@example.com"}},
			{"id": "legacy-abcdef", "userId": "legacy-u", "title": "Older", "personalInfo": gin.H{"fullName": "Alice", "email": "alice@example.com"}},
		},
	}

	w := s.do(t, http.MethodPost, "/api/v1/migrations/import", "alice-token", payload)
	require.Equal(t, http.StatusOK, w.Code)
	first := decode[core.ImportResult](t, w)
	assert.Equal(t, 2, first.Imported)

	w = s.do(t, http.MethodPost, "/api/v1/migrations/import", "alice-token", payload)
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[core.ImportResult](t, w)
	assert.Zero(t, second.Imported)
	assert.Equal(t, 2, second.Skipped)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/migrations/import", "alice-token", gin.H{"resumes": "nope"}).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, stubRasterizer{})
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "", nil).Code)

	w := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		case line == "" && event != "":
			return event, data
		}
	}
}

func TestStreamMine(t *testing.T) {
	s := newTestServer(t, stubRasterizer{})
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/resumes/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer alice-token")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := bufio.NewReader(resp.Body)
	event, data := readEvent(t, events)
	assert.Equal(t, "update", event)
	assert.Equal(t, "[]", data)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.ActiveSubscriptions))

	s.seed(t, sampleResume("r1", "alice", false))
	_, data = readEvent(t, events)
	var got []models.Resume
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)

	require.NoError(t, resp.Body.Close())
	assert.Eventually(t, func() bool {
		return s.resumes.Listeners() == 0 && testutil.ToFloat64(s.metrics.ActiveSubscriptions) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStream_EndsOnServerShutdown(t *testing.T) {
	s := newTestServer(t, stubRasterizer{})
	srv := httptest.NewUnstartedServer(s.router)
	srv.Config.RegisterOnShutdown(func() { close(s.shutdown) })
	srv.Start()
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/resumes/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer alice-token")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	_, data := readEvent(t, bufio.NewReader(resp.Body))
	require.Equal(t, "[]", data)
	require.Equal(t, 1, s.resumes.Listeners())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, srv.Config.Shutdown(ctx))
	assert.Less(t, time.Since(start), 3*time.Second)

	assert.Eventually(t, func() bool {
		return s.resumes.Listeners() == 0 && testutil.ToFloat64(s.metrics.ActiveSubscriptions) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStreamResume_AbsentIsNull(t *testing.T) {
	s := newTestServer(t, stubRasterizer{})
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/resumes/missing/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer bob-token")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	event, data := readEvent(t, bufio.NewReader(resp.Body))
	assert.Equal(t, "update", event)
	assert.Equal(t, "null", data)
}
