package models

import (
	"time"

	"github.com/turtacn/tokenlife/pkg/constants"
)

// Identity is the projection of a user that travels inside tokens.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// User is an account that can log in with a username and password.
type User struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email          string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Username       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	FirstName      string    `gorm:"type:varchar(100)" json:"first_name"`
	LastName       string    `gorm:"type:varchar(100)" json:"last_name"`
	HashedPassword string    `gorm:"type:varchar(255);not null" json:"-"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	Role           string    `gorm:"type:varchar(32);not null;default:user" json:"role"`
	PhoneNumber    string    `gorm:"type:varchar(32)" json:"phone_number"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return constants.TableUsers
}

// Identity returns the claims projection of u.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username, Role: u.Role}
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == constants.RoleAdmin
}

//Personal.AI order the ending
