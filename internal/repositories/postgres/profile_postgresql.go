package postgres

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/admin-console/internal/cache"
	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/repositories"
)

type profilePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

var profileSort = sortSpec{
	columns: map[string]string{
		"created_at": "created_at",
		"updated_at": "updated_at",
		"full_name":  "full_name",
		"role":       "role",
	},
	defaultColumn: "created_at",
}

func NewProfilePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ProfileRepository {
	return &profilePostgreSQL{db: db, cacheManager: cacheManager}
}

func (r *profilePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *profilePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Profile, error) {
	fetch := func() (any, error) {
		var profile models.Profile
		if err := r.getDB(tx).WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
			return nil, handleDBError(err, "get profile by id")
		}
		return &profile, nil
	}

	// Reads inside a transaction skip the cache
	if tx != nil || r.cacheManager == nil {
		result, err := fetch()
		if err != nil {
			return nil, err
		}
		return result.(*models.Profile), nil
	}

	var profile models.Profile
	err := r.cacheManager.Profile.CacheOrExecute(ctx, "id:"+id, &profile, cache.ProfileCacheConfig.TTL, fetch)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profilePostgreSQL) Reload(ctx context.Context, tx *gorm.DB, id string) (*models.Profile, error) {
	if tx == nil && r.cacheManager != nil {
		cache.SafeDelete(ctx, r.cacheManager.Profile, "id:"+id)
	}
	return r.GetByID(ctx, tx, id)
}

func (r *profilePostgreSQL) CreateIfAbsent(ctx context.Context, tx *gorm.DB, profile *models.Profile) (*models.Profile, error) {
	db := r.getDB(tx).WithContext(ctx)

	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(profile).Error; err != nil {
		return nil, handleDBError(err, "create profile")
	}

	// Re-read so a concurrent insert wins consistently
	var stored models.Profile
	if err := db.Where("id = ?", profile.ID).First(&stored).Error; err != nil {
		return nil, handleDBError(err, "reload profile")
	}

	if r.cacheManager != nil {
		cache.InvalidateProfileCache(ctx, r.cacheManager, stored.ID)
	}
	return &stored, nil
}

func (r *profilePostgreSQL) Update(ctx context.Context, tx *gorm.DB, profile *models.Profile) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", profile.ID).
		Select("full_name", "role", "avatar_url", "bio", "mentor_id", "updated_at").
		Updates(profile)
	if result.Error != nil {
		return handleDBError(result.Error, "update profile")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update profile")
	}

	if r.cacheManager != nil {
		cache.InvalidateProfileCache(ctx, r.cacheManager, profile.ID)
	}
	return nil
}

func (r *profilePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ProfileFilters) ([]*models.Profile, int64, error) {
	query := r.getDB(tx).WithContext(ctx).Model(&models.Profile{})

	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}
	if strings.TrimSpace(filters.Search) != "" {
		query = query.Where("full_name ILIKE ?", likePattern(filters.Search))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count profiles")
	}

	var profiles []*models.Profile
	query = applyPaginationAndSort(query, profileSort, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&profiles).Error; err != nil {
		return nil, 0, handleDBError(err, "list profiles")
	}

	return profiles, total, nil
}

func (r *profilePostgreSQL) ListNamed(ctx context.Context, tx *gorm.DB) ([]*models.Profile, error) {
	var profiles []*models.Profile
	if err := r.getDB(tx).WithContext(ctx).
		Where("full_name IS NOT NULL AND full_name <> ''").
		Order("full_name ASC").
		Find(&profiles).Error; err != nil {
		return nil, handleDBError(err, "list named profiles")
	}
	return profiles, nil
}

func (r *profilePostgreSQL) CountByRole(ctx context.Context, tx *gorm.DB) (map[models.UserRole]int64, error) {
	load := func() (any, error) {
		var rows []struct {
			Role  models.UserRole
			Count int64
		}
		if err := r.getDB(tx).WithContext(ctx).
			Model(&models.Profile{}).
			Select("role, COUNT(*) AS count").
			Group("role").
			Scan(&rows).Error; err != nil {
			return nil, handleDBError(err, "count profiles by role")
		}

		counts := make(map[models.UserRole]int64, len(models.Roles))
		for _, role := range models.Roles {
			counts[role] = 0
		}
		for _, row := range rows {
			counts[row.Role] += row.Count
		}
		return counts, nil
	}

	if tx != nil || r.cacheManager == nil {
		result, err := load()
		if err != nil {
			return nil, err
		}
		return result.(map[models.UserRole]int64), nil
	}

	counts := make(map[models.UserRole]int64)
	if err := r.cacheManager.Stats.CacheOrExecute(ctx, "profiles:by_role", &counts, cache.StatsCacheConfig.TTL, load); err != nil {
		return nil, err
	}
	return counts, nil
}
