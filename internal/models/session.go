package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Identity is the account reference issued by the auth provider.
type Identity struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	UserMetadata datatypes.JSONMap `json:"user_metadata,omitempty"`
	AppMetadata  datatypes.JSONMap `json:"app_metadata,omitempty"`
}

// UserMeta returns a non-empty string value from user metadata.
func (i *Identity) UserMeta(key string) (string, bool) {
	if i == nil {
		return "", false
	}
	return metaString(i.UserMetadata, key)
}

// AppMeta returns a non-empty string value from app metadata.
func (i *Identity) AppMeta(key string) (string, bool) {
	if i == nil {
		return "", false
	}
	return metaString(i.AppMetadata, key)
}

func metaString(meta datatypes.JSONMap, key string) (string, bool) {
	if meta == nil {
		return "", false
	}
	value, ok := meta[key].(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

// Session is a live authenticated connection. Tokens never leave the service.
type Session struct {
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *Identity `json:"user"`

	// TokenID names the upstream token record, revoked on sign-out
	TokenID string `json:"-"`
}

func (s *Session) Expired(now time.Time) bool {
	return s == nil || (!s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt))
}
