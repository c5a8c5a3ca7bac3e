package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleDepartmentHead Role = "DEPARTMENT_HEAD"
	RoleTeamMember     Role = "TEAM_MEMBER"
)

// IsValidRole reports whether r is one of the defined roles.
func IsValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleDepartmentHead, RoleTeamMember:
		return true
	}
	return false
}

type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Password   string             `bson:"password,omitempty" json:"-"`
	Role       Role               `bson:"role" json:"role"`
	Department string             `bson:"department,omitempty" json:"department,omitempty"`
	Active     bool               `bson:"active" json:"active"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}

// Actor is the authenticated identity attached to a request by the auth
// middleware and consulted by the role policy.
type Actor struct {
	ID         primitive.ObjectID `json:"id"`
	Role       Role               `json:"role"`
	Department string             `json:"department,omitempty"`
}
