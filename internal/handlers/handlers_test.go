package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/admin-console/internal/auth"
	"github.com/SAP-F-2025/admin-console/internal/guard"
	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/services"
	"github.com/SAP-F-2025/admin-console/internal/session"
	"github.com/SAP-F-2025/admin-console/internal/utils"
	"github.com/SAP-F-2025/admin-console/internal/validator"
)

const testConsoleID = "6f1c2d1e-3b4a-4c5d-8e9f-0a1b2c3d4e5f"

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// testProvider serves a fixed session and a scripted sign-in result
type testProvider struct {
	broadcaster *auth.Broadcaster

	mu        sync.Mutex
	session   *models.Session
	signInErr error
}

func newTestProvider(identityID string) *testProvider {
	p := &testProvider{broadcaster: auth.NewBroadcaster()}
	if identityID != "" {
		p.session = &models.Session{
			AccessToken: "token",
			ExpiresAt:   time.Now().Add(time.Hour),
			User:        &models.Identity{ID: identityID, Email: identityID + "@example.com"},
		}
	}
	return p
}

func (p *testProvider) GetSession(context.Context) (*models.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session, nil
}

func (p *testProvider) OnAuthStateChange(fn func(auth.Event)) auth.Subscription {
	return p.broadcaster.Subscribe(fn)
}

func (p *testProvider) SignInWithPassword(context.Context, string, string) (*models.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return nil, p.signInErr
}

func (p *testProvider) SignOut(context.Context, auth.SignOutScope) error {
	p.mu.Lock()
	p.session = nil
	p.mu.Unlock()
	p.broadcaster.Broadcast(auth.Event{Kind: auth.EventSignedOut})
	return nil
}

func (p *testProvider) GetUser(context.Context) (*models.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil, auth.ErrNoSession
	}
	return p.session.User, nil
}

// testResolver maps identity ids to profiles. Ids with a gate block until
// the gate closes.
type testResolver struct {
	mu        sync.Mutex
	profiles  map[string]*models.Profile
	gates     map[string]chan struct{}
	refreshes int
}

func newTestResolver(profiles ...*models.Profile) *testResolver {
	r := &testResolver{
		profiles: make(map[string]*models.Profile),
		gates:    make(map[string]chan struct{}),
	}
	for _, p := range profiles {
		r.profiles[p.ID] = p
	}
	return r
}

func (r *testResolver) Resolve(ctx context.Context, identity *models.Identity) *models.Profile {
	r.mu.Lock()
	gate := r.gates[identity.ID]
	r.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}
	return r.lookup(identity.ID)
}

func (r *testResolver) Refresh(_ context.Context, identity *models.Identity) *models.Profile {
	r.mu.Lock()
	r.refreshes++
	r.mu.Unlock()
	return r.lookup(identity.ID)
}

func (r *testResolver) lookup(id string) *models.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (r *testResolver) refreshCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshes
}

// fakeServices hands out whichever services a test sets
type fakeServices struct {
	profile   services.ProfileService
	course    services.CourseService
	healthErr error
}

func (f *fakeServices) Profile() services.ProfileService       { return f.profile }
func (f *fakeServices) Course() services.CourseService         { return f.course }
func (f *fakeServices) Assignment() services.AssignmentService { return nil }
func (f *fakeServices) Grading() services.GradingService       { return nil }
func (f *fakeServices) Message() services.MessageService       { return nil }
func (f *fakeServices) Discussion() services.DiscussionService { return nil }
func (f *fakeServices) Dashboard() services.DashboardService   { return nil }
func (f *fakeServices) Initialize(context.Context) error       { return nil }
func (f *fakeServices) Shutdown(context.Context) error         { return nil }
func (f *fakeServices) HealthCheck(context.Context) error      { return f.healthErr }

type fakeProfileService struct {
	services.ProfileService
	updated *models.Profile
	err     error
}

func (f *fakeProfileService) Update(_ context.Context, actor *models.Profile, id string, req *services.ProfileUpdateRequest) (*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := &models.Profile{ID: id, FullName: "Updated", Role: models.RoleTeacher}
	if req.FullName != nil {
		p.FullName = *req.FullName
	}
	f.updated = p
	return p, nil
}

type fakeCourseService struct {
	services.CourseService
	created *services.CourseCreateRequest
	actor   *models.Profile
	err     error
}

func (f *fakeCourseService) Create(_ context.Context, actor *models.Profile, req *services.CourseCreateRequest) (*models.Course, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = req
	f.actor = actor
	return &models.Course{ID: "course-1", Title: req.Title, InstructorID: actor.ID}, nil
}

func (f *fakeCourseService) Get(_ context.Context, id string) (*models.Course, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Course{ID: id, Title: "Go"}, nil
}

type testServer struct {
	router   *gin.Engine
	registry *session.Registry
	manager  *HandlerManager
	resolver *testResolver
	provider auth.Provider
}

func newTestServer(t *testing.T, provider auth.Provider, resolver *testResolver, svc *fakeServices) *testServer {
	t.Helper()
	if svc == nil {
		svc = &fakeServices{}
	}
	registry := session.NewRegistry(session.RegistryOptions{
		Providers:     func(string) auth.Provider { return provider },
		Resolver:      resolver,
		RedirectDelay: 10 * time.Millisecond,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = registry.Shutdown(ctx)
	})

	logger := discardLogger()
	router := gin.New()
	SetupMiddleware(router, logger)
	manager := NewHandlerManager(svc, registry, validator.New(), logger, false)
	manager.SetupRoutes(router)

	return &testServer{router: router, registry: registry, manager: manager, resolver: resolver, provider: provider}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.AddCookie(&http.Cookie{Name: ConsoleCookie, Value: testConsoleID})

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var (
	teacher = &models.Profile{ID: "teacher-1", FullName: "Tom Teacher", Role: models.RoleTeacher}
	admin   = &models.Profile{ID: "admin-1", FullName: "Ada Admin", Role: models.RoleAdmin}
	student = &models.Profile{ID: "student-1", FullName: "Sam Student", Role: models.RoleStudent}
)

func TestConsoleCookie_IssuedWhenMissing(t *testing.T) {
	s := newTestServer(t, auth.Disabled{}, newTestResolver(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, ConsoleCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.NotEmpty(t, cookies[0].Value)
	assert.Equal(t, 1, s.registry.Len())
}

func TestConsoleCookie_Reused(t *testing.T) {
	s := newTestServer(t, auth.Disabled{}, newTestResolver(), nil)

	w := s.do(http.MethodGet, "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Result().Cookies())

	s.do(http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, 1, s.registry.Len())
}

func TestGetSession_NotConfigured(t *testing.T) {
	s := newTestServer(t, auth.Disabled{}, newTestResolver(), nil)

	w := s.do(http.MethodGet, "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[SessionResponse](t, w)
	assert.Equal(t, guard.ViewSetup, body.View)
	assert.False(t, body.State.Configured)
	assert.False(t, body.State.Loading)
	assert.NotNil(t, body.Feed)
}

func TestGuard_Views(t *testing.T) {
	tests := []struct {
		name     string
		provider auth.Provider
		profiles []*models.Profile
		status   int
		view     guard.View
	}{
		{
			name:     "not configured",
			provider: auth.Disabled{},
			status:   http.StatusServiceUnavailable,
			view:     guard.ViewSetup,
		},
		{
			name:     "no session",
			provider: newTestProvider(""),
			status:   http.StatusUnauthorized,
			view:     guard.ViewSignIn,
		},
		{
			name:     "student is denied",
			provider: newTestProvider(student.ID),
			profiles: []*models.Profile{student},
			status:   http.StatusForbidden,
			view:     guard.ViewAccessDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.provider, newTestResolver(tt.profiles...), nil)

			w := s.do(http.MethodGet, "/api/v1/profiles/me", nil)
			require.Equal(t, tt.status, w.Code, w.Body.String())

			body := decode[ErrorResponse](t, w)
			details, ok := body.Details.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, string(tt.view), details["view"])
		})
	}
}

func TestGuard_AdmitsTeacher(t *testing.T) {
	s := newTestServer(t, newTestProvider(teacher.ID), newTestResolver(teacher), nil)

	w := s.do(http.MethodGet, "/api/v1/profiles/me", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	profile := decode[models.Profile](t, w)
	assert.Equal(t, teacher.ID, profile.ID)
	assert.Equal(t, models.RoleTeacher, profile.Role)
}

func TestGuard_PendingProfile(t *testing.T) {
	resolver := newTestResolver(teacher)
	gate := make(chan struct{})
	resolver.gates[teacher.ID] = gate
	defer close(gate)

	s := newTestServer(t, newTestProvider(teacher.ID), resolver, nil)
	s.manager.console.settle = 20 * time.Millisecond

	w := s.do(http.MethodGet, "/api/v1/profiles/me", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	body := decode[map[string]string](t, w)
	assert.Contains(t, []string{string(guard.ViewLoading), string(guard.ViewProfilePending)}, body["view"])
}

func TestSignIn(t *testing.T) {
	t.Run("invalid credentials message is passed through", func(t *testing.T) {
		provider := newTestProvider("")
		provider.signInErr = auth.ErrInvalidCredentials
		s := newTestServer(t, provider, newTestResolver(), nil)

		w := s.do(http.MethodPost, "/api/v1/session/sign-in", validator.SignInRequest{
			Email:    "tom@example.com",
			Password: "wrong",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decode[ErrorResponse](t, w)
		assert.Equal(t, "Invalid login credentials", body.Message)

		// the controller queued the same message for the UI
		snapshot := decode[SessionResponse](t, s.do(http.MethodGet, "/api/v1/session", nil))
		require.NotEmpty(t, snapshot.Feed)
		assert.Equal(t, "Invalid login credentials", snapshot.Feed[0].Notification.Message)
	})

	t.Run("malformed email is rejected before the provider", func(t *testing.T) {
		s := newTestServer(t, newTestProvider(""), newTestResolver(), nil)

		w := s.do(http.MethodPost, "/api/v1/session/sign-in", validator.SignInRequest{
			Email:    "not-an-email",
			Password: "secret",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Validation failed", decode[ErrorResponse](t, w).Message)
	})

	t.Run("not configured", func(t *testing.T) {
		s := newTestServer(t, auth.Disabled{}, newTestResolver(), nil)

		w := s.do(http.MethodPost, "/api/v1/session/sign-in", validator.SignInRequest{
			Email:    "tom@example.com",
			Password: "secret",
		})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestSignOut_ClearsState(t *testing.T) {
	s := newTestServer(t, newTestProvider(teacher.ID), newTestResolver(teacher), nil)
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/profiles/me", nil).Code)

	w := s.do(http.MethodPost, "/api/v1/session/sign-out", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[SessionResponse](t, w)
	assert.Nil(t, body.State.Identity)
	assert.Nil(t, body.State.Profile)
	assert.Equal(t, guard.ViewSignIn, body.View)
}

func TestRefreshProfile_NoSession(t *testing.T) {
	s := newTestServer(t, newTestProvider(""), newTestResolver(), nil)

	w := s.do(http.MethodPost, "/api/v1/session/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, auth.ErrNoSession.Message, decode[ErrorResponse](t, w).Message)
}

func TestUpdateProfile_SelfRefreshesSession(t *testing.T) {
	profiles := &fakeProfileService{}
	resolver := newTestResolver(teacher)
	s := newTestServer(t, newTestProvider(teacher.ID), resolver, &fakeServices{profile: profiles})

	name := "Tom T."
	w := s.do(http.MethodPut, "/api/v1/profiles/"+teacher.ID, services.ProfileUpdateRequest{FullName: &name})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, resolver.refreshCount())

	w = s.do(http.MethodPut, "/api/v1/profiles/someone-else", services.ProfileUpdateRequest{FullName: &name})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, resolver.refreshCount())
}

func TestCreateCourse_UsesActor(t *testing.T) {
	courses := &fakeCourseService{}
	s := newTestServer(t, newTestProvider(teacher.ID), newTestResolver(teacher), &fakeServices{course: courses})

	w := s.do(http.MethodPost, "/api/v1/courses", map[string]any{"title": "Go 101"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotNil(t, courses.actor)
	assert.Equal(t, teacher.ID, courses.actor.ID)
	assert.Equal(t, "Go 101", courses.created.Title)

	w = s.do(http.MethodPost, "/api/v1/courses", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCourse_NotFound(t *testing.T) {
	courses := &fakeCourseService{err: fmt.Errorf("course: %w", services.ErrNotFound)}
	s := newTestServer(t, newTestProvider(admin.ID), newTestResolver(admin), &fakeServices{course: courses})

	w := s.do(http.MethodGet, "/api/v1/courses/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListCourses_InvalidFilter(t *testing.T) {
	s := newTestServer(t, newTestProvider(admin.ID), newTestResolver(admin), &fakeServices{course: &fakeCourseService{}})

	w := s.do(http.MethodGet, "/api/v1/courses?level=expert", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequireRole(t *testing.T) {
	cm := NewConsoleMiddleware(nil, false, discardLogger())

	tests := []struct {
		name    string
		profile *models.Profile
		roles   []models.UserRole
		status  int
	}{
		{"admin passes everything", admin, []models.UserRole{models.RoleStudent}, http.StatusOK},
		{"listed role passes", teacher, []models.UserRole{models.RoleTeacher}, http.StatusOK},
		{"unlisted role is forbidden", teacher, []models.UserRole{models.RoleAdmin}, http.StatusForbidden},
		{"no profile", nil, []models.UserRole{models.RoleTeacher}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/", func(c *gin.Context) {
				if tt.profile != nil {
					c.Set(profileKey, tt.profile)
				}
				c.Next()
			}, cm.RequireRole(tt.roles...), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", services.NewValidationError("title", "is required", ""), http.StatusBadRequest},
		{"business rule", services.NewBusinessRuleError("discussion_closed", "closed", nil), http.StatusUnprocessableEntity},
		{"permission", services.NewPermissionError("u", "c", "course", "update", "not owner"), http.StatusForbidden},
		{"not found", fmt.Errorf("profile: %w", services.ErrNotFound), http.StatusNotFound},
		{"unauthorized", services.ErrUnauthorized, http.StatusUnauthorized},
		{"conflict", services.ErrConflict, http.StatusConflict},
		{"auth error", auth.ErrInvalidCredentials, http.StatusBadRequest},
		{"not configured", auth.ErrNotConfigured, http.StatusServiceUnavailable},
		{"controller stopped", session.ErrStopped, http.StatusConflict},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	h := NewBaseHandler(discardLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			h.handleServiceError(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, auth.Disabled{}, newTestResolver(), &fakeServices{})
	w := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s = newTestServer(t, auth.Disabled{}, newTestResolver(), &fakeServices{healthErr: errors.New("db down")})
	w = s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORS_Preflight(t *testing.T) {
	s := newTestServer(t, auth.Disabled{}, newTestResolver(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/session", nil)
	req.Header.Set("Origin", "https://console.example.com")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://console.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
