package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/admin-console/internal/models"
)

type CourseRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error)
	Update(ctx context.Context, tx *gorm.DB, course *models.Course) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error

	// List fills AssignmentCount of every returned course
	List(ctx context.Context, tx *gorm.DB, filters CourseFilters) ([]*models.Course, int64, error)
	ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error)
}
