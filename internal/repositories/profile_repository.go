package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/admin-console/internal/models"
)

// ProfileRepository reads and writes application profiles. Profiles share
// their id with the auth provider identity.
type ProfileRepository interface {
	// GetByID returns ErrNotFound when no row exists
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Profile, error)

	// Reload is GetByID read from the store, never from a cached copy
	Reload(ctx context.Context, tx *gorm.DB, id string) (*models.Profile, error)

	// CreateIfAbsent inserts the profile unless a row with the same id exists
	// and returns the stored row either way
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, profile *models.Profile) (*models.Profile, error)

	Update(ctx context.Context, tx *gorm.DB, profile *models.Profile) error

	// List and search operations
	List(ctx context.Context, tx *gorm.DB, filters ProfileFilters) ([]*models.Profile, int64, error)
	ListNamed(ctx context.Context, tx *gorm.DB) ([]*models.Profile, error)

	CountByRole(ctx context.Context, tx *gorm.DB) (map[models.UserRole]int64, error)
}
