package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles understood by RequireRole
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleViewer  = "viewer"
)

// UserAuth represents a back-office user
// Standardized: Go (PascalCase) -> DB (snake_case) -> JSON (camelCase)
type UserAuth struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Username          string     `gorm:"uniqueIndex;not null;size:64" json:"username"`
	Password          string     `gorm:"not null" json:"-"`
	Email             string     `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Name              string     `json:"name,omitempty"`
	Role              string     `gorm:"default:'viewer'" json:"role"`
	IsActive          bool       `gorm:"default:true" json:"isActive"`
	LastLogin         *time.Time `json:"lastLogin,omitempty"`
	PreferredLanguage string     `gorm:"default:'en'" json:"preferredLanguage"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for UserAuth model
func (UserAuth) TableName() string {
	return "user_auths"
}
