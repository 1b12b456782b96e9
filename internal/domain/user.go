package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// UserRole represents the authorization role of a user.
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

// OAuthTokens holds the Google OAuth credentials stored for a user.
// The refresh token is long-lived; the access token is refreshed on demand.
type OAuthTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// Value implements the driver.Valuer interface for database serialization.
func (t OAuthTokens) Value() (driver.Value, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (t *OAuthTokens) Scan(value interface{}) error {
	if value == nil {
		*t = OAuthTokens{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan OAuthTokens")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, t)
}

// User represents an authenticated account backed by a Google identity.
type User struct {
	ID           string      `gorm:"type:text;primaryKey" json:"id"`
	GoogleID     string      `gorm:"type:text;not null;uniqueIndex:idx_users_google_id" json:"-"`
	Email        string      `gorm:"type:text;not null;uniqueIndex:idx_users_email" json:"email"`
	Name         string      `gorm:"type:text;not null" json:"name"`
	AvatarURL    string      `gorm:"type:text" json:"avatar_url,omitempty"`
	Role         UserRole    `gorm:"type:text;default:USER" json:"role"`
	GoogleTokens OAuthTokens `gorm:"type:text" json:"-"`
	LastLogin    *time.Time  `json:"last_login,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string {
	return "users"
}
