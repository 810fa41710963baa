package models

import "aanganwadi/pkg/roles"

// User is the read-only view of an account; signup and login live elsewhere.
type User struct {
	ID         int        `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Email      string     `json:"email" db:"email"`
	Role       roles.Role `json:"role" db:"role"`
	CenterCode *string    `json:"aanganwadiCode,omitempty" db:"center_code"`
	CenterName *string    `json:"aanganwadiName,omitempty" db:"center_name"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID int
	Role   roles.Role
}

// SystemActor attributes writes made by background triggers.
var SystemActor = Actor{UserID: 0, Role: roles.Admin}

func (a Actor) IsSystem() bool {
	return a.UserID == 0
}

// UserRef returns the user id as a nullable column value.
func (a Actor) UserRef() *int {
	if a.IsSystem() {
		return nil
	}
	id := a.UserID
	return &id
}
