package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/admin-console/internal/models"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateProfileCache drops a cached profile, the role counters and the
// cached courses, which embed their instructor
func InvalidateProfileCache(ctx context.Context, cm *CacheManager, profileID string) {
	SafeDelete(ctx, cm.Profile, "id:"+profileID)
	SafeInvalidatePattern(ctx, cm.Stats, "profiles:*")
	SafeInvalidatePattern(ctx, cm.Course, "id:*")
}

// InvalidateCourseCache drops cached courses
func InvalidateCourseCache(ctx context.Context, cm *CacheManager, courseIDs ...string) {
	keys := make([]string, 0, len(courseIDs))
	for _, id := range courseIDs {
		if id != "" {
			keys = append(keys, "id:"+id)
		}
	}
	SafeDelete(ctx, cm.Course, keys...)
}

// InvalidateAssignmentCache drops the cached submission counters of an assignment
func InvalidateAssignmentCache(ctx context.Context, cm *CacheManager, assignmentID string) {
	SafeDelete(ctx, cm.Assignment, countersKey(assignmentID))
}

func countersKey(assignmentID string) string {
	return fmt.Sprintf("counters:%s", assignmentID)
}

// GetCounters returns the cached counters of ids and the ids that missed
func GetCounters(ctx context.Context, cm *CacheManager, ids []string) (map[string]models.SubmissionCounters, []string) {
	found := make(map[string]models.SubmissionCounters, len(ids))
	if !cm.Assignment.Available() {
		return found, ids
	}

	var missing []string
	for _, id := range ids {
		var counters models.SubmissionCounters
		if err := cm.Assignment.Get(ctx, countersKey(id), &counters); err != nil {
			if !errors.Is(err, ErrCacheNotFound) {
				slog.WarnContext(ctx, "Failed to read cached counters", "error", err, "assignment_id", id)
			}
			missing = append(missing, id)
			continue
		}
		found[id] = counters
	}
	return found, missing
}

// SetCounters caches freshly loaded counters
func SetCounters(ctx context.Context, cm *CacheManager, counters map[string]models.SubmissionCounters) {
	for id, c := range counters {
		if err := cm.Assignment.Set(ctx, countersKey(id), c, AssignmentCacheConfig.TTL); err != nil {
			slog.ErrorContext(ctx, "Failed to cache counters", "error", err, "assignment_id", id)
		}
	}
}
