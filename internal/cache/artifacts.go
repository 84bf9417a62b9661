package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AuthArtifactPrefix marks keys written by the auth provider. Everything the
// provider persists for a console is stored under a key with this prefix.
const AuthArtifactPrefix = "sb-"

// ArtifactStore is the server-side counterpart of a browser's local storage:
// each console gets its own keyspace under console:<id>:.
type ArtifactStore struct {
	client *redis.Client
}

func NewArtifactStore(client *redis.Client) *ArtifactStore {
	return &ArtifactStore{client: client}
}

// ForConsole scopes the store to a single console
func (s *ArtifactStore) ForConsole(consoleID string) *ConsoleArtifacts {
	return &ConsoleArtifacts{
		helper:    NewCacheHelper(s.client, "console:"+consoleID+":"),
		consoleID: consoleID,
	}
}

// Purge removes the auth artifacts of one console
func (s *ArtifactStore) Purge(ctx context.Context, consoleID string) error {
	return s.ForConsole(consoleID).PurgeAuth(ctx)
}

// ConsoleArtifacts holds the persisted client-side artifacts of one console
type ConsoleArtifacts struct {
	helper    *CacheHelper
	consoleID string
}

func (a *ConsoleArtifacts) ConsoleID() string {
	return a.consoleID
}

// Get loads a JSON artifact. Missing keys report ErrCacheNotFound.
func (a *ConsoleArtifacts) Get(ctx context.Context, key string, dest any) error {
	return a.helper.Get(ctx, key, dest)
}

// Set stores a JSON artifact; ttl 0 keeps it until removed
func (a *ConsoleArtifacts) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !a.helper.Available() {
		return ErrCacheNotAvailable
	}
	return a.helper.Set(ctx, key, value, ttl)
}

func (a *ConsoleArtifacts) Delete(ctx context.Context, keys ...string) error {
	return a.helper.Delete(ctx, keys...)
}

// Keys lists the artifact keys currently stored for the console
func (a *ConsoleArtifacts) Keys(ctx context.Context) ([]string, error) {
	keys, err := a.helper.Keys(ctx, "*")
	if errors.Is(err, ErrCacheNotAvailable) {
		return nil, nil
	}
	return keys, err
}

// PurgeAuth removes every auth-provider artifact and keeps the rest
func (a *ConsoleArtifacts) PurgeAuth(ctx context.Context) error {
	if err := a.helper.InvalidatePattern(ctx, AuthArtifactPrefix+"*"); err != nil {
		return fmt.Errorf("purge auth artifacts for console %s: %w", a.consoleID, err)
	}
	return nil
}

// Clear removes all artifacts of the console
func (a *ConsoleArtifacts) Clear(ctx context.Context) error {
	if err := a.helper.InvalidatePattern(ctx, "*"); err != nil {
		return fmt.Errorf("clear artifacts for console %s: %w", a.consoleID, err)
	}
	return nil
}
