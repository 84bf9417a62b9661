package postgres

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/admin-console/internal/repositories"
)

// handleDBError wraps database errors and maps gorm sentinels to the
// repository ones
func handleDBError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", operation, repositories.ErrNotFound)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", operation, repositories.ErrDuplicate)
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}

// sortSpec maps API sort keys to SQL columns
type sortSpec struct {
	columns       map[string]string
	defaultColumn string
}

// applyPaginationAndSort applies whitelisted ordering plus limit/offset
func applyPaginationAndSort(query *gorm.DB, spec sortSpec, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	column, ok := spec.columns[sortBy]
	if !ok {
		column = spec.defaultColumn
	}

	order := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		order = "ASC"
	}

	query = query.Order(fmt.Sprintf("%s %s", column, order))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

// likePattern escapes LIKE metacharacters in user input
func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.TrimSpace(term)) + "%"
}
