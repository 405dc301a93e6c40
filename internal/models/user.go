package models

import (
	"time"
)

// UserRole enumeration
type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleInstructor UserRole = "instructor"
	RoleAdmin      UserRole = "admin"
)

func (ur UserRole) IsValid() bool {
	switch ur {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// CanAuthor reports whether the role may create or modify assessments and
// questions.
func (ur UserRole) CanAuthor() bool {
	return ur == RoleInstructor || ur == RoleAdmin
}

// User is the identity projection this service works with. The record of
// truth lives in Casdoor; only the fields the service needs are mapped.
type User struct {
	ID          string     `json:"id" gorm:"primaryKey;size:100"`
	Name        string     `json:"name" gorm:"size:255;not null"`
	Email       string     `json:"email" gorm:"size:255;uniqueIndex"`
	Role        UserRole   `json:"role" gorm:"size:20;not null;default:'student'"`
	DisplayName string     `json:"display_name" gorm:"size:255"`
	Avatar      string     `json:"avatar" gorm:"size:500"`
	IsActive    bool       `json:"is_active" gorm:"not null;default:true"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
