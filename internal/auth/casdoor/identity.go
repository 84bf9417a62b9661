package casdoor

import (
	"slices"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/admin-console/internal/models"
)

// identityFromClaims converts verified token claims into an identity.
// Profile fields land in user metadata, role hints derived from Casdoor
// roles land in app metadata.
func identityFromClaims(claims *casdoorsdk.Claims) *models.Identity {
	if claims == nil {
		return nil
	}

	id := claims.Id
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return nil
	}

	userMeta := datatypes.JSONMap{}
	if claims.DisplayName != "" {
		userMeta["full_name"] = claims.DisplayName
	}
	if claims.Avatar != "" {
		userMeta["avatar_url"] = claims.Avatar
	}
	if claims.Name != "" {
		userMeta["username"] = claims.Name
	}
	if role, ok := claims.Properties["role"]; ok && role != "" {
		userMeta["role"] = role
	}

	appMeta := datatypes.JSONMap{
		"provider": "casdoor",
	}
	if claims.Owner != "" {
		appMeta["organization"] = claims.Owner
	}
	if role, ok := roleFromCasdoorUser(&claims.User); ok {
		appMeta["role"] = string(role)
	}

	return &models.Identity{
		ID:           id,
		Email:        claims.Email,
		UserMetadata: userMeta,
		AppMetadata:  appMeta,
	}
}

// roleFromCasdoorUser maps Casdoor roles, the admin flag and the user type.
// Admin wins over everything else. Unknown role names map to nothing.
func roleFromCasdoorUser(user *casdoorsdk.User) (models.UserRole, bool) {
	if user == nil {
		return "", false
	}
	if user.IsAdmin {
		return models.RoleAdmin, true
	}

	var roles []models.UserRole
	for _, casdoorRole := range user.Roles {
		if casdoorRole == nil {
			continue
		}
		if role, ok := mapCasdoorRole(casdoorRole.Name); ok && !slices.Contains(roles, role) {
			roles = append(roles, role)
		}
	}

	if slices.Contains(roles, models.RoleAdmin) {
		return models.RoleAdmin, true
	}
	if len(roles) > 0 {
		return roles[0], true
	}
	return mapCasdoorRole(user.Type)
}

func mapCasdoorRole(name string) (models.UserRole, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "student", "learner":
		return models.RoleStudent, true
	case "teacher", "instructor":
		return models.RoleTeacher, true
	case "admin", "administrator":
		return models.RoleAdmin, true
	default:
		return "", false
	}
}
