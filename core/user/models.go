package user

import (
	"strings"

	"github.com/trezcool/masomo-portal/core"
)

// Role is the single role carried by a portal User.
type Role string

// Roles
const (
	RoleStudent       Role = "student"
	RoleTeacher       Role = "teacher"
	RoleParent        Role = "parent"
	RoleManager       Role = "manager"
	RoleAdministrator Role = "administrator"
)

var (
	AllRoles = []Role{RoleStudent, RoleTeacher, RoleParent, RoleManager, RoleAdministrator}

	roleNames = map[Role]string{
		RoleAdministrator: "Administrateur",
		RoleManager:       "Gestionnaire",
		RoleTeacher:       "Enseignant",
		RoleParent:        "Parent",
		RoleStudent:       "Étudiant",
	}
)

// Known reports whether `r` is one of the five portal roles.
func (r Role) Known() bool {
	_, ok := roleNames[r]
	return ok
}

// DisplayName returns the french label of the role, or the raw value for unknown roles.
func (r Role) DisplayName() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return string(r)
}

// User is the authenticated account, as returned by the login & profile endpoints.
type User struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// SameEmail compares emails the way the backend stores them (case-insensitive).
func (u User) SameEmail(email string) bool {
	return core.CleanString(u.Email, true /* lower */) == core.CleanString(email, true /* lower */)
}

// Tokens is the JWT pair issued on login.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
}

func (c *Credentials) Clean() {
	c.Email = core.CleanString(c.Email, true /* lower */)
}

// LoginResponse is the payload of a successful login.
type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

func (lr LoginResponse) Tokens() Tokens {
	return Tokens{Access: lr.Access, Refresh: lr.Refresh}
}
