package casdoor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/SAP-F-2025/admin-console/internal/auth"
	"github.com/SAP-F-2025/admin-console/internal/cache"
	"github.com/SAP-F-2025/admin-console/internal/config"
	"github.com/SAP-F-2025/admin-console/internal/models"
)

type fakeSDK struct {
	mu        sync.Mutex
	claims    map[string]*casdoorsdk.Claims
	refresh   func(refreshToken string) (*oauth2.Token, error)
	refreshN  int
	deleted   []string
	deleteErr error
}

func (f *fakeSDK) ParseJwtToken(token string) (*casdoorsdk.Claims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.claims[token]
	if !ok {
		return nil, errors.New("token is malformed")
	}
	return claims, nil
}

func (f *fakeSDK) RefreshOAuthToken(refreshToken string) (*oauth2.Token, error) {
	f.mu.Lock()
	f.refreshN++
	refresh := f.refresh
	f.mu.Unlock()
	if refresh == nil {
		return nil, errors.New("refresh not expected")
	}
	return refresh(refreshToken)
}

func (f *fakeSDK) DeleteToken(token *casdoorsdk.Token) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	f.deleted = append(f.deleted, token.Owner+"/"+token.Name)
	return true, nil
}

func (f *fakeSDK) deletedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// addUser registers the claims of an access token. The token record is
// named after the token itself.
func (f *fakeSDK) addUser(token, id, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims := &casdoorsdk.Claims{User: casdoorsdk.User{
		Id:          id,
		Email:       email,
		DisplayName: "Grace Hopper",
		Roles:       []*casdoorsdk.Role{{Name: "teacher"}},
	}}
	claims.ID = "admin/" + token
	f.claims[token] = claims
}

type tokenServer struct {
	*httptest.Server
	expiresIn int
}

// newTokenServer accepts password "secret" for any user and answers with an
// access token named after the username
func newTokenServer(t *testing.T, expiresIn int) *tokenServer {
	t.Helper()
	ts := &tokenServer{expiresIn: expiresIn}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := r.ParseForm(); err != nil || r.URL.Path != "/api/login/oauth/access_token" || r.Form.Get("grant_type") != "password" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Form.Get("password") != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":             "invalid_grant",
				"error_description": "Invalid username or password",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-" + r.Form.Get("username"),
			"refresh_token": "rt-" + r.Form.Get("username"),
			"token_type":    "Bearer",
			"expires_in":    ts.expiresIn,
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

type fixture struct {
	client *Client
	sdk    *fakeSDK
	mr     *miniredis.Miniredis
	redis  *redis.Client
	store  *cache.ArtifactStore
}

func newFixture(t *testing.T, expiresIn int, leeway time.Duration) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	server := newTokenServer(t, expiresIn)
	sdk := &fakeSDK{claims: map[string]*casdoorsdk.Claims{}}
	sdk.addUser("at-grace@school.edu", "user-1", "grace@school.edu")

	store := cache.NewArtifactStore(rdb)
	client := newClient(sdk, Options{
		Config:        config.CasdoorConfig{Endpoint: server.URL, ClientID: "id", ClientSecret: "secret"},
		RefreshLeeway: leeway,
		Redis:         rdb,
		Artifacts:     store,
		HTTPClient:    server.Client(),
	})
	return &fixture{client: client, sdk: sdk, mr: mr, redis: rdb, store: store}
}

type recorder struct {
	events chan auth.Event
}

func record(p auth.Provider) *recorder {
	r := &recorder{events: make(chan auth.Event, 16)}
	p.OnAuthStateChange(func(ev auth.Event) { r.events <- ev })
	return r
}

func (r *recorder) next(t *testing.T) auth.Event {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no auth event received")
		return auth.Event{}
	}
}

func TestProvider_SignInWithPassword(t *testing.T) {
	f := newFixture(t, 3600, time.Minute)
	p := f.client.ForConsole("console-1")
	defer p.Close()
	events := record(p)
	ctx := context.Background()

	session, err := p.SignInWithPassword(ctx, "grace@school.edu", "secret")
	require.NoError(t, err)
	require.NotNil(t, session.User)
	assert.Equal(t, "user-1", session.User.ID)
	assert.Equal(t, "grace@school.edu", session.User.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)

	ev := events.next(t)
	assert.Equal(t, auth.EventSignedIn, ev.Kind)
	assert.Same(t, session, ev.Session)

	assert.True(t, f.mr.Exists("console:console-1:"+SessionArtifactKey))
	members, err := f.redis.SMembers(ctx, userConsolesKey("user-1")).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"console-1"}, members)

	current, err := p.GetSession(ctx)
	require.NoError(t, err)
	assert.Same(t, session, current)

	identity, err := p.GetUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.ID)
}

func TestProvider_SignInRejected(t *testing.T) {
	f := newFixture(t, 3600, time.Minute)
	p := f.client.ForConsole("console-1")
	defer p.Close()
	events := record(p)

	session, err := p.SignInWithPassword(context.Background(), "grace@school.edu", "wrong")
	assert.Nil(t, session)
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Equal(t, "Invalid username or password", err.Error())

	select {
	case ev := <-events.events:
		t.Fatalf("unexpected event %s", ev.Kind)
	default:
	}
	assert.False(t, f.mr.Exists("console:console-1:"+SessionArtifactKey))
}

func TestProvider_RestoresPersistedSession(t *testing.T) {
	f := newFixture(t, 3600, time.Minute)
	ctx := context.Background()

	first := f.client.ForConsole("console-1")
	_, err := first.SignInWithPassword(ctx, "grace@school.edu", "secret")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := f.client.ForConsole("console-1")
	defer second.Close()

	session, err := second.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "user-1", session.User.ID)
	assert.Equal(t, "at-grace@school.edu", session.AccessToken)

	other := f.client.ForConsole("console-2")
	defer other.Close()
	none, err := other.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestProvider_RenewalSuccess(t *testing.T) {
	f := newFixture(t, 1, time.Minute)
	f.sdk.addUser("at-renewed", "user-1", "grace@school.edu")
	f.sdk.refresh = func(refreshToken string) (*oauth2.Token, error) {
		assert.Equal(t, "rt-grace@school.edu", refreshToken)
		return &oauth2.Token{AccessToken: "at-renewed", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}, nil
	}

	p := f.client.ForConsole("console-1")
	defer p.Close()
	events := record(p)

	_, err := p.SignInWithPassword(context.Background(), "grace@school.edu", "secret")
	require.NoError(t, err)
	assert.Equal(t, auth.EventSignedIn, events.next(t).Kind)

	ev := events.next(t)
	assert.Equal(t, auth.EventTokenRefreshed, ev.Kind)
	require.NotNil(t, ev.Session)
	assert.Equal(t, "at-renewed", ev.Session.AccessToken)
	assert.Equal(t, "rt-grace@school.edu", ev.Session.RefreshToken)
}

func TestProvider_RenewalFailureEndsSession(t *testing.T) {
	f := newFixture(t, 1, time.Minute)
	f.sdk.refresh = func(string) (*oauth2.Token, error) {
		return nil, &oauth2.RetrieveError{
			Response: &http.Response{StatusCode: http.StatusBadRequest},
			Body:     []byte(`{"error":"invalid_grant","error_description":"refresh token expired"}`),
		}
	}

	p := f.client.ForConsole("console-1")
	defer p.Close()
	events := record(p)

	_, err := p.SignInWithPassword(context.Background(), "grace@school.edu", "secret")
	require.NoError(t, err)
	assert.Equal(t, auth.EventSignedIn, events.next(t).Kind)

	ev := events.next(t)
	assert.Equal(t, auth.EventTokenRefreshed, ev.Kind)
	assert.Nil(t, ev.Session)

	session, err := p.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.False(t, f.mr.Exists("console:console-1:"+SessionArtifactKey))
}

func TestProvider_GlobalSignOutReachesOtherConsoles(t *testing.T) {
	f := newFixture(t, 3600, time.Minute)
	ctx := context.Background()

	p1 := f.client.ForConsole("console-1")
	defer p1.Close()
	p2 := f.client.ForConsole("console-2")
	defer p2.Close()

	_, err := p1.SignInWithPassword(ctx, "grace@school.edu", "secret")
	require.NoError(t, err)
	_, err = p2.SignInWithPassword(ctx, "grace@school.edu", "secret")
	require.NoError(t, err)

	// A console with only a persisted session and no live provider
	require.NoError(t, f.store.ForConsole("console-3").Set(ctx, SessionArtifactKey,
		map[string]string{"access_token": "x", "token_id": "admin/tok-3"}, 0))
	require.NoError(t, f.redis.SAdd(ctx, userConsolesKey("user-1"), "console-3").Err())

	events1 := record(p1)
	events2 := record(p2)

	require.NoError(t, p1.SignOut(ctx, auth.ScopeGlobal))

	assert.Equal(t, auth.EventSignedOut, events1.next(t).Kind)
	assert.Equal(t, auth.EventSignedOut, events2.next(t).Kind)

	for _, console := range []string{"console-1", "console-2", "console-3"} {
		assert.False(t, f.mr.Exists("console:"+console+":"+SessionArtifactKey), console)
	}
	members, err := f.redis.SMembers(ctx, userConsolesKey("user-1")).Result()
	require.NoError(t, err)
	assert.Empty(t, members)

	// Both live sessions share one access token in this fixture
	assert.ElementsMatch(t,
		[]string{"admin/at-grace@school.edu", "admin/at-grace@school.edu", "admin/tok-3"},
		f.sdk.deletedTokens())
}

func TestProvider_LocalSignOutKeepsOtherConsoles(t *testing.T) {
	f := newFixture(t, 3600, time.Minute)
	ctx := context.Background()

	p1 := f.client.ForConsole("console-1")
	defer p1.Close()
	p2 := f.client.ForConsole("console-2")
	defer p2.Close()

	_, err := p1.SignInWithPassword(ctx, "grace@school.edu", "secret")
	require.NoError(t, err)
	_, err = p2.SignInWithPassword(ctx, "grace@school.edu", "secret")
	require.NoError(t, err)

	require.NoError(t, p1.SignOut(ctx, auth.ScopeLocal))

	session, err := p2.GetSession(ctx)
	require.NoError(t, err)
	assert.NotNil(t, session)
	assert.True(t, f.mr.Exists("console:console-2:"+SessionArtifactKey))
	assert.Len(t, f.sdk.deletedTokens(), 1)
}

func TestProvider_SignOutSurvivesRevokeFailure(t *testing.T) {
	f := newFixture(t, 3600, time.Minute)
	f.sdk.deleteErr = errors.New("casdoor unavailable")
	ctx := context.Background()

	p := f.client.ForConsole("console-1")
	defer p.Close()
	_, err := p.SignInWithPassword(ctx, "grace@school.edu", "secret")
	require.NoError(t, err)
	events := record(p)

	require.NoError(t, p.SignOut(ctx, auth.ScopeLocal))
	assert.Equal(t, auth.EventSignedOut, events.next(t).Kind)
	assert.False(t, f.mr.Exists("console:console-1:"+SessionArtifactKey))
}

func TestRevokeSkipsUnnamedTokens(t *testing.T) {
	f := newFixture(t, 3600, time.Minute)
	f.client.revoke("")
	f.client.revoke("no-owner")
	f.client.revoke("admin/")
	assert.Empty(t, f.sdk.deletedTokens())

	f.client.revoke("admin/tok-1")
	assert.Equal(t, []string{"admin/tok-1"}, f.sdk.deletedTokens())
}

func TestProvider_GetUserWithoutSession(t *testing.T) {
	f := newFixture(t, 3600, time.Minute)
	p := f.client.ForConsole("console-1")
	defer p.Close()

	_, err := p.GetUser(context.Background())
	assert.ErrorIs(t, err, auth.ErrNoSession)
}

func TestIdentityFromClaims(t *testing.T) {
	claims := &casdoorsdk.Claims{User: casdoorsdk.User{
		Owner:       "school",
		Name:        "ghopper",
		Id:          "user-1",
		Email:       "grace@school.edu",
		DisplayName: "Grace Hopper",
		Avatar:      "https://cdn/avatar.png",
		Properties:  map[string]string{"role": "teacher"},
		Roles:       []*casdoorsdk.Role{{Name: "student"}, {Name: "administrator"}},
	}}

	identity := identityFromClaims(claims)
	require.NotNil(t, identity)
	assert.Equal(t, "user-1", identity.ID)

	fullName, ok := identity.UserMeta("full_name")
	assert.True(t, ok)
	assert.Equal(t, "Grace Hopper", fullName)
	role, _ := identity.UserMeta("role")
	assert.Equal(t, "teacher", role)
	appRole, _ := identity.AppMeta("role")
	assert.Equal(t, "admin", appRole)
	avatar, _ := identity.UserMeta("avatar_url")
	assert.Equal(t, "https://cdn/avatar.png", avatar)

	assert.Nil(t, identityFromClaims(&casdoorsdk.Claims{}))
	assert.Nil(t, identityFromClaims(nil))
}

func TestRoleFromCasdoorUser(t *testing.T) {
	tests := []struct {
		name   string
		user   casdoorsdk.User
		want   models.UserRole
		wantOK bool
	}{
		{"admin flag", casdoorsdk.User{IsAdmin: true}, models.RoleAdmin, true},
		{"instructor role", casdoorsdk.User{Roles: []*casdoorsdk.Role{{Name: "Instructor"}}}, models.RoleTeacher, true},
		{"admin role wins", casdoorsdk.User{Roles: []*casdoorsdk.Role{{Name: "teacher"}, {Name: "admin"}}}, models.RoleAdmin, true},
		{"type fallback", casdoorsdk.User{Type: "student"}, models.RoleStudent, true},
		{"unknown", casdoorsdk.User{Type: "normal-user", Roles: []*casdoorsdk.Role{{Name: "proctor"}}}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, ok := roleFromCasdoorUser(&tt.user)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, role)
		})
	}
}

func TestMapTokenError(t *testing.T) {
	plain := errors.New("dial tcp: connection refused")
	assert.Same(t, plain, mapTokenError(plain))

	err := mapTokenError(&oauth2.RetrieveError{
		Response: &http.Response{StatusCode: http.StatusInternalServerError},
		Body:     []byte(`{"error":"server_error"}`),
	})
	var authErr *auth.Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, auth.CodeProviderError, authErr.Code)
	assert.Equal(t, "server_error", authErr.Message)

	err = mapTokenError(&oauth2.RetrieveError{
		Response: &http.Response{StatusCode: http.StatusUnauthorized},
		Body:     []byte(`not json`),
	})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Equal(t, auth.ErrInvalidCredentials.Message, err.Error())
}
