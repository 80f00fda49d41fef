package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleFundi    Role = "fundi"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleFundi
}

// internal/models/user.go
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone string    `gorm:"type:varchar(30)" json:"phone"`

	Password string `gorm:"not null" json:"-"`

	// Held roles and the one currently governing permissions.
	Roles      datatypes.JSONSlice[Role] `json:"roles"`
	ActiveRole Role                      `gorm:"type:varchar(20);not null;index" json:"active_role"`

	IsActive           bool `gorm:"default:true" json:"is_active"`
	IsVerified         bool `gorm:"default:false" json:"is_verified"`
	OnboardingComplete bool `gorm:"default:false" json:"onboarding_complete"`

	Location  string   `gorm:"type:varchar(100)" json:"location"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	FundiProfile *FundiProfile `gorm:"foreignKey:UserID;references:ID" json:"fundi_profile,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}

func (u *User) HasRole(r Role) bool {
	for _, held := range u.Roles {
		if held == r {
			return true
		}
	}
	return false
}

// GrantRole adds r to the held roles if missing.
func (u *User) GrantRole(r Role) {
	if !u.HasRole(r) {
		u.Roles = append(u.Roles, r)
	}
}
