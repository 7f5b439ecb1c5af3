package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobflow-backend/internal/apperr"
	"jobflow-backend/internal/auth"
	"jobflow-backend/internal/config"
	"jobflow-backend/internal/handlers"
	"jobflow-backend/internal/health"
	apihttp "jobflow-backend/internal/http"
	"jobflow-backend/internal/middleware"
	"jobflow-backend/internal/models"
	"jobflow-backend/internal/nas"
	"jobflow-backend/internal/repositories"
	"jobflow-backend/internal/services"
	"jobflow-backend/internal/storagepath"
	"jobflow-backend/internal/timeutil"
	"jobflow-backend/pkg/utils"
)

const rawDir = "/Production/ClientX/Job1/RAW"

// stubFS accepts every folder and move; List serves files of rawDir
type stubFS struct {
	mu    sync.Mutex
	raw   []string
	moves int
}

func (s *stubFS) List(ctx context.Context, dir string) ([]nas.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dir != rawDir {
		return nil, nil
	}
	out := []nas.FileInfo{{Name: "PRODUCTION", IsFolder: true}}
	for _, n := range s.raw {
		out = append(out, nas.FileInfo{Name: n})
	}
	return out, nil
}

func (s *stubFS) CreateFolder(ctx context.Context, parent, name string) error { return nil }

func (s *stubFS) Move(ctx context.Context, srcDir string, files []string, destDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moves++
	return nil
}

type employees map[int]*models.Employee

func (e employees) Get(ctx context.Context, id int) (*models.Employee, error) {
	if emp, ok := e[id]; ok {
		return emp, nil
	}
	return nil, repositories.ErrEmployeeNotFound
}

func (e employees) GetByUserID(ctx context.Context, userID int) (*models.Employee, error) {
	for _, emp := range e {
		if emp.UserID == userID {
			return emp, nil
		}
	}
	return nil, repositories.ErrEmployeeNotFound
}

type pingOK struct{}

func (pingOK) Ping(ctx context.Context) error { return nil }

type server struct {
	handler http.Handler
	jwt     *auth.JWTManager
	clock   *timeutil.ManualClock
	fs      *stubFS
}

func newServer(t *testing.T) *server {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "handler-test-secret"
	cfg.JWT.ExpirationHours = 1

	store := repositories.NewMemoryOrderStore()
	store.Put(&models.Order{ID: 1, ClientCode: "CX", FolderPath: `P:\ClientX\Job1`, Type: models.OrderTypeGeneral, Status: models.OrderStatusPending})

	fs := &stubFS{raw: []string{"a.png", "b.png"}}
	mover := services.NewFileMover(fs, storagepath.DefaultDriveMap(), services.RetryPolicy{MaxRetries: 0, Backoff: time.Millisecond})
	clock := timeutil.NewManualClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := services.NewJobService(store, employees{
		1: {ID: 1, UserID: 100, Name: "Alice", IsActive: true},
		2: {ID: 2, UserID: 200, Name: "Bob", IsActive: true},
	}, mover, auth.HasPermission, clock)

	jwtManager := auth.NewJWTManager(cfg)
	router := apihttp.NewRouter(
		handlers.NewJobHandler(svc),
		handlers.NewHealthHandler(health.NewHealthChecker(pingOK{}, nil)),
		middleware.NewAuthMiddleware(jwtManager),
	)
	return &server{handler: router, jwt: jwtManager, clock: clock, fs: fs}
}

func (s *server) token(t *testing.T, userID int, role string, perms ...string) string {
	t.Helper()
	tok, err := s.jwt.GenerateToken(&models.Actor{UserID: userID, Role: role, Permissions: perms})
	require.NoError(t, err)
	return tok
}

func (s *server) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)
	alice := s.token(t, 100, models.RoleEmployee)

	rec := s.do(t, "GET", "/api/orders/1/available-files?job_type=general&condition=fresh", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var listing struct {
		Files []string `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, []string{"a.png", "b.png"}, listing.Files)

	rec = s.do(t, "POST", "/api/orders/1/jobs", alice, models.NewJobRequest{
		FileNames: []string{"a.png"}, JobType: "general", Condition: "fresh",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result models.NewJobResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, []string{"a.png"}, result.Claimed)

	s.clock.Advance(10 * time.Minute)
	rec = s.do(t, "POST", "/api/orders/1/files/pause", alice, models.FileActionRequest{FileName: "a.png"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var entry models.FileTrackingEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, models.FileStatusPaused, entry.Status)

	rec = s.do(t, "POST", "/api/orders/1/files/transfer", alice, models.TransferFileRequest{FileName: "a.png", TargetEmployeeID: 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, "GET", "/api/orders/1/progress", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var progress models.OrderProgress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progress))
	assert.Len(t, progress.Assignments, 2)
	assert.Equal(t, 2, s.fs.moves)
}

func TestErrorMapping(t *testing.T) {
	s := newServer(t)
	alice := s.token(t, 100, models.RoleEmployee)

	// Pausing a file nobody picked up
	rec := s.do(t, "POST", "/api/orders/1/files/pause", alice, models.FileActionRequest{FileName: "a.png"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body utils.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(apperr.KindNotFound), body.Kind)

	rec = s.do(t, "POST", "/api/orders/1/jobs", alice, models.NewJobRequest{FileNames: []string{"a.png"}, JobType: "painting", Condition: "fresh"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, "GET", "/api/orders/99/progress", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	readOnly := s.token(t, 100, models.RoleEmployee, models.PermissionFileList)
	rec = s.do(t, "POST", "/api/orders/1/jobs", readOnly, models.NewJobRequest{FileNames: []string{"a.png"}, JobType: "general", Condition: "fresh"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, "POST", "/api/orders/1/jobs", alice, models.NewJobRequest{FileNames: []string{"a.png"}, JobType: "general", Condition: "fresh"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, "POST", "/api/orders/1/files/resume", alice, models.FileActionRequest{FileName: "a.png"})
	assert.Equal(t, http.StatusConflict, rec.Code, "working file cannot be resumed")

	rec = s.do(t, "POST", "/api/orders/1/files/pause", alice, "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthenticationRequired(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, "GET", "/api/orders/1/progress", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, "GET", "/api/orders/1/progress", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, "GET", "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.Validation("bad"), http.StatusBadRequest},
		{apperr.Forbidden("no"), http.StatusForbidden},
		{apperr.NotFound("gone"), http.StatusNotFound},
		{apperr.Conflict("taken"), http.StatusConflict},
		{apperr.Remote(errors.New("nas down"), "move failed"), http.StatusBadGateway},
		{apperr.Persistence(errors.New("db down"), "save failed"), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, handlers.StatusForError(tt.err), tt.err.Error())
	}
}
