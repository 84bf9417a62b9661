package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/admin-console/internal/events"
	"github.com/SAP-F-2025/admin-console/internal/models"
)

func TestFallbackProfile(t *testing.T) {
	avatar := "https://cdn.example.com/a.png"
	tests := []struct {
		name     string
		identity *models.Identity
		wantName string
		wantRole models.UserRole
		avatar   *string
	}{
		{
			name:     "user metadata role wins",
			identity: &models.Identity{ID: "1", Email: "teacher@x.com", UserMetadata: datatypes.JSONMap{"role": "admin"}},
			wantName: "teacher",
			wantRole: models.RoleAdmin,
		},
		{
			name: "app metadata role when user metadata has none",
			identity: &models.Identity{ID: "2", Email: "sam@x.com",
				AppMetadata: datatypes.JSONMap{"role": "teacher"}},
			wantName: "sam",
			wantRole: models.RoleTeacher,
		},
		{
			name: "unknown metadata role falls through to email",
			identity: &models.Identity{ID: "3", Email: "head.admin@x.com",
				UserMetadata: datatypes.JSONMap{"role": "superuser"}},
			wantName: "head.admin",
			wantRole: models.RoleAdmin,
		},
		{
			name:     "email containing teacher",
			identity: &models.Identity{ID: "4", Email: "teacher.jane@x.com"},
			wantName: "teacher.jane",
			wantRole: models.RoleTeacher,
		},
		{
			name:     "teacher checked before admin",
			identity: &models.Identity{ID: "5", Email: "admin.teacher@x.com"},
			wantName: "admin.teacher",
			wantRole: models.RoleTeacher,
		},
		{
			name:     "plain email is a student",
			identity: &models.Identity{ID: "6", Email: "bob@x.com"},
			wantName: "bob",
			wantRole: models.RoleStudent,
		},
		{
			name: "metadata full name without email",
			identity: &models.Identity{ID: "7",
				UserMetadata: datatypes.JSONMap{"full_name": "Ada Lovelace", "avatar_url": avatar}},
			wantName: "Ada Lovelace",
			wantRole: models.RoleStudent,
			avatar:   &avatar,
		},
		{
			name:     "nothing to go on",
			identity: &models.Identity{ID: "8"},
			wantName: "User",
			wantRole: models.RoleStudent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FallbackProfile(tt.identity)
			assert.Equal(t, tt.identity.ID, got.ID)
			assert.Equal(t, tt.wantName, got.FullName)
			assert.Equal(t, tt.wantRole, got.Role)
			assert.Equal(t, tt.avatar, got.AvatarURL)
			assert.Nil(t, got.Bio)
			assert.True(t, got.Role.IsValid())
			assert.Equal(t, got, FallbackProfile(tt.identity))
		})
	}
}

func TestResolver_StoredProfileAdoptedVerbatim(t *testing.T) {
	profiles := newMemProfiles()
	bio := "Physics"
	profiles.rows["u1"] = &models.Profile{ID: "u1", FullName: "Jane Doe", Role: models.RoleAdmin, Bio: &bio}
	r := NewResolver(profiles, nil, nil)

	got := r.Resolve(context.Background(), &models.Identity{ID: "u1", Email: "student@x.com"})
	require.NotNil(t, got)
	assert.Equal(t, "Jane Doe", got.FullName)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.Equal(t, &bio, got.Bio)

	_, creates := profiles.counts()
	assert.Equal(t, 0, creates)
}

func TestResolver_MissingRowCreatesProfile(t *testing.T) {
	profiles := newMemProfiles()
	publisher := events.NewMockEventPublisher(nil)
	r := NewResolver(profiles, publisher, nil)

	got := r.Resolve(context.Background(), &models.Identity{ID: "u1", Email: "teacher.jane@x.com"})
	require.NotNil(t, got)
	assert.Equal(t, "teacher.jane", got.FullName)
	assert.Equal(t, models.RoleTeacher, got.Role)
	assert.False(t, got.CreatedAt.IsZero(), "adopted profile is the stored row")

	_, creates := profiles.counts()
	assert.Equal(t, 1, creates)
	require.Contains(t, profiles.rows, "u1")
	assert.Len(t, publisher.EventsOfType(events.EventProfileCreated), 1)
}

func TestResolver_MissingRowAndInsertFailure(t *testing.T) {
	profiles := newMemProfiles()
	profiles.createErr = errors.New("connection reset")
	publisher := events.NewMockEventPublisher(nil)
	r := NewResolver(profiles, publisher, nil)

	got := r.Resolve(context.Background(), &models.Identity{ID: "u1", Email: "teacher.jane@x.com"})
	require.NotNil(t, got)
	assert.Equal(t, &models.Profile{ID: "u1", FullName: "teacher.jane", Role: models.RoleTeacher}, got)
	assert.Nil(t, got.AvatarURL)

	fallbacks := publisher.EventsOfType(events.EventProfileFallback)
	require.Len(t, fallbacks, 1)
	assert.Equal(t, "create_failed", fallbacks[0].Data["reason"])
}

func TestResolver_StoreErrorSkipsInsert(t *testing.T) {
	profiles := newMemProfiles()
	profiles.getErr = errors.New("relation \"profiles\" does not exist")
	r := NewResolver(profiles, nil, nil)

	got := r.Resolve(context.Background(), &models.Identity{ID: "u1", Email: "admin@x.com"})
	require.NotNil(t, got)
	assert.Equal(t, models.RoleAdmin, got.Role)

	_, creates := profiles.counts()
	assert.Equal(t, 0, creates)
}

func TestResolver_RefreshPerformsFreshLookup(t *testing.T) {
	profiles := newMemProfiles()
	profiles.rows["u1"] = &models.Profile{ID: "u1", FullName: "Before", Role: models.RoleTeacher}
	r := NewResolver(profiles, nil, nil)
	identity := &models.Identity{ID: "u1"}

	assert.Equal(t, "Before", r.Resolve(context.Background(), identity).FullName)

	require.NoError(t, profiles.Update(context.Background(), nil, &models.Profile{ID: "u1", FullName: "After", Role: models.RoleTeacher}))
	assert.Equal(t, "After", r.Refresh(context.Background(), identity).FullName)

	gets, _ := profiles.counts()
	assert.Equal(t, 2, gets)
	assert.Equal(t, 1, profiles.reloadCount())
}

func TestResolver_RefreshBypassesCachedProfile(t *testing.T) {
	profiles := newMemProfiles()
	profiles.rows["u1"] = &models.Profile{ID: "u1", FullName: "New Name", Role: models.RoleTeacher}
	profiles.cached["u1"] = &models.Profile{ID: "u1", FullName: "Old Name", Role: models.RoleStudent}
	r := NewResolver(profiles, nil, nil)
	identity := &models.Identity{ID: "u1"}

	stale := r.Resolve(context.Background(), identity)
	assert.Equal(t, models.RoleStudent, stale.Role)

	got := r.Refresh(context.Background(), identity)
	require.NotNil(t, got)
	assert.Equal(t, "New Name", got.FullName)
	assert.Equal(t, models.RoleTeacher, got.Role)
	assert.Equal(t, 1, profiles.reloadCount(), "refresh reads the store")

	// The cached copy is replaced, so later lookups see the new row too
	assert.Equal(t, models.RoleTeacher, r.Resolve(context.Background(), identity).Role)
}

func TestResolver_ReturnsIndependentCopies(t *testing.T) {
	profiles := newMemProfiles()
	profiles.rows["u1"] = &models.Profile{ID: "u1", FullName: "Jane", Role: models.RoleTeacher}
	r := NewResolver(profiles, nil, nil)

	a := r.Resolve(context.Background(), &models.Identity{ID: "u1"})
	a.FullName = "mutated"
	b := r.Resolve(context.Background(), &models.Identity{ID: "u1"})
	assert.Equal(t, "Jane", b.FullName)
}

func TestResolver_NilIdentity(t *testing.T) {
	r := NewResolver(newMemProfiles(), nil, nil)
	assert.Nil(t, r.Resolve(context.Background(), nil))
	assert.Nil(t, r.Refresh(context.Background(), nil))
}

// Missing row, failed insert: the controller still settles on a usable
// profile and never reports an error
func TestController_FallbackProfileScenario(t *testing.T) {
	profiles := newMemProfiles()
	profiles.createErr = errors.New("store outage")
	provider := newStubProvider()
	provider.session = &models.Session{User: &models.Identity{ID: "u1", Email: "teacher.jane@x.com"}}
	notifier := &recordingNotifier{}

	ctrl := NewController(Options{
		ConsoleID: "console-1",
		Provider:  provider,
		Resolver:  NewResolver(profiles, nil, nil),
		Notifier:  notifier,
	})
	defer ctrl.Stop()
	require.NoError(t, ctrl.Start(context.Background()))

	st := waitForState(t, ctrl, func(st State) bool { return !st.Loading })
	require.NotNil(t, st.Profile)
	assert.Equal(t, "u1", st.Profile.ID)
	assert.Equal(t, "teacher.jane", st.Profile.FullName)
	assert.Equal(t, models.RoleTeacher, st.Profile.Role)
	assert.Nil(t, st.Profile.AvatarURL)
	assert.Equal(t, PhaseAuthenticated, st.Phase)
	assert.Empty(t, notifier.all())
}
