package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/admin-console/internal/auth"
)

type providerSet struct {
	mu        sync.Mutex
	providers map[string][]*stubProvider
}

func (s *providerSet) factory(consoleID string) auth.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := newStubProvider()
	s.providers[consoleID] = append(s.providers[consoleID], p)
	return p
}

func (s *providerSet) latest(consoleID string) *stubProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.providers[consoleID]
	return list[len(list)-1]
}

func newTestRegistry(t *testing.T) (*Registry, *providerSet) {
	t.Helper()
	set := &providerSet{providers: make(map[string][]*stubProvider)}
	r := NewRegistry(RegistryOptions{
		Providers:     set.factory,
		Artifacts:     func(string) Artifacts { return &recordingArtifacts{} },
		Resolver:      newStubResolver(),
		RedirectDelay: 10 * time.Millisecond,
		IdleTTL:       time.Minute,
	})
	t.Cleanup(func() { _ = r.Shutdown(context.Background()) })
	return r, set
}

func TestRegistry_CreatesOncePerConsole(t *testing.T) {
	r, set := newTestRegistry(t)
	ctx := context.Background()

	a, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	b, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	c, err := r.Get(ctx, "c2")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, r.Len())
	assert.Len(t, set.providers["c1"], 1)
	assert.Equal(t, "c1", a.ConsoleID())
}

func TestRegistry_ResetReinitializes(t *testing.T) {
	r, set := newTestRegistry(t)
	ctx := context.Background()

	first, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	r.Reset("c1")
	assert.Equal(t, 0, r.Len())
	assert.True(t, set.latest("c1").isClosed())

	second, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Len(t, set.providers["c1"], 2)

	r.Reset("unknown")
}

func TestRegistry_SignOutRedirectResetsConsole(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	events, stopListening := r.Feed("c1").Listen()
	defer stopListening()

	ctrl, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	waitForState(t, ctrl, func(st State) bool { return !st.Loading })

	require.NoError(t, ctrl.SignOut(ctx))

	var sawNotification, sawRedirect bool
	deadline := time.After(waitTimeout)
	for !sawRedirect {
		select {
		case item := <-events:
			switch item.Kind {
			case FeedNotification:
				sawNotification = true
			case FeedNavigate:
				assert.Equal(t, "/", item.Path)
				sawRedirect = true
			}
		case <-deadline:
			t.Fatal("no redirect directive")
		}
	}
	assert.True(t, sawNotification)

	require.Eventually(t, func() bool { return r.Len() == 0 }, waitTimeout, 5*time.Millisecond)

	next, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.NotSame(t, ctrl, next)
}

func TestRegistry_EvictIdle(t *testing.T) {
	r, set := newTestRegistry(t)
	ctx := context.Background()

	now := time.Now()
	r.now = func() time.Time { return now }

	_, err := r.Get(ctx, "idle")
	require.NoError(t, err)

	now = now.Add(45 * time.Second)
	_, err = r.Get(ctx, "busy")
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, r.EvictIdle())
	assert.Equal(t, 1, r.Len())
	assert.True(t, set.latest("idle").isClosed())
	assert.False(t, set.latest("busy").isClosed())
}

func TestRegistry_Shutdown(t *testing.T) {
	r, set := newTestRegistry(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := r.Get(ctx, id)
		require.NoError(t, err)
	}

	require.NoError(t, r.Shutdown(ctx))
	assert.Equal(t, 0, r.Len())
	for _, id := range []string{"a", "b", "c"} {
		assert.True(t, set.latest(id).isClosed())
	}

	_, err := r.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrRegistryClosed)
}

func TestRegistry_RunStopsWithContext(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("janitor did not stop")
	}
}

func TestFeed_BacklogReplayedToFirstListener(t *testing.T) {
	feed := NewFeed()
	for i := range feedBacklog + 2 {
		feed.Notify(Notification{Level: LevelInfo, Message: string(rune('a' + i))})
	}

	items, stop := feed.Listen()
	defer stop()

	require.Len(t, items, feedBacklog)
	first := <-items
	assert.Equal(t, "c", first.Notification.Message)

	feed.Redirect("/")
	var last FeedItem
	for len(items) > 0 {
		last = <-items
	}
	assert.Equal(t, FeedNavigate, last.Kind)
	assert.Empty(t, feed.Drain())
}

func TestFeed_DrainAndClose(t *testing.T) {
	feed := NewFeed()
	feed.Notify(Notification{Level: LevelError, Message: "boom"})

	drained := feed.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, "boom", drained[0].Notification.Message)
	assert.Empty(t, feed.Drain())

	items, _ := feed.Listen()
	feed.Close()
	_, open := <-items
	assert.False(t, open)

	feed.Notify(Notification{Message: "ignored"})
	closedItems, _ := feed.Listen()
	_, open = <-closedItems
	assert.False(t, open)
}
