package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser       = "USER"
	RoleVendor     = "VENDOR"
	RoleInstructor = "INSTRUCTOR"
	RoleAdmin      = "ADMIN"
)

// User is a platform account: student, vendor/instructor or admin.
type User struct {
	gorm.Model
	Login       string `gorm:"unique;not null"`
	DisplayName string `gorm:"default:''"`
	FirstName   string `gorm:"default:''"`
	LastName    string `gorm:"default:''"`
	Email       string `gorm:"unique;not null"`
	Mobile      string `gorm:"default:''"`
	Role        string `gorm:"default:'USER'"` // USER, VENDOR, INSTRUCTOR, ADMIN
	LastLogin   *time.Time
	IsDeleted   bool `gorm:"default:false"`
}

// IsVendor reports whether the account may submit vendor certificate requests.
func (u *User) IsVendor() bool {
	return u.Role == RoleVendor || u.Role == RoleInstructor || u.Role == RoleAdmin
}
