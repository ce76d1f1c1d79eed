package model

import "time"

const (
	AuthMethodAPIKey = "api_key"
)

// User owns executions, positions and completed trades.
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Username    string     `gorm:"column:user_name;size:100;not null;uniqueIndex" json:"username"`
	Email       string     `gorm:"size:255" json:"email"`
	APIKeyHash  string     `gorm:"column:api_key_hash;type:text" json:"-"`
	AuthMethod  string     `gorm:"size:20;not null;default:api_key" json:"auth_method"`
	IsActive    bool       `gorm:"not null" json:"is_active"`
	IsAdmin     bool       `gorm:"not null" json:"is_admin"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UserResponse is the public shape of a user.
type UserResponse struct {
	ID          uint       `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	IsActive    bool       `json:"is_active"`
	IsAdmin     bool       `json:"is_admin"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		IsActive:    u.IsActive,
		IsAdmin:     u.IsAdmin,
		LastLoginAt: u.LastLoginAt,
	}
}
