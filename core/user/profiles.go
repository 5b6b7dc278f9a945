package user

import (
	"github.com/trezcool/masomo-portal/core"
)

// Account is the user record embedded in every role profile.
type Account struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func (a Account) FullName() string {
	return a.FirstName + " " + a.LastName
}

type Student struct {
	ID          int       `json:"id"`
	User        Account   `json:"user"`
	StudentID   string    `json:"student_id"`
	DateOfBirth core.Date `json:"date_of_birth"`
	Gender      string    `json:"gender"`
	IsArchived  bool      `json:"is_archived"`
}

func (s Student) ProfileEmail() string { return s.User.Email }

type Teacher struct {
	ID             int       `json:"id"`
	User           Account   `json:"user"`
	TeacherID      string    `json:"teacher_id"`
	Specialization string    `json:"specialization"`
	HireDate       core.Date `json:"hire_date"`
	IsActive       bool      `json:"is_active"`
}

func (t Teacher) ProfileEmail() string { return t.User.Email }

type Parent struct {
	ID         int     `json:"id"`
	User       Account `json:"user"`
	Phone      string  `json:"phone"`
	Profession string  `json:"profession"`
	Address    string  `json:"address"`
}

func (p Parent) ProfileEmail() string { return p.User.Email }

// ParentStudent links a Parent to one of their children.
type ParentStudent struct {
	ID           int      `json:"id"`
	Parent       core.Ref `json:"parent"`
	Student      core.Ref `json:"student"`
	Relationship string   `json:"relationship"`
	IsPrimary    bool     `json:"is_primary"`
}

// Profile is a role-specific record anchored to a User by email.
type Profile interface {
	ProfileEmail() string
}

// EmailIndex resolves role profiles by their user email.
type EmailIndex[P Profile] struct {
	byEmail map[string][]int
	items   []P
}

func NewEmailIndex[P Profile](profiles []P) EmailIndex[P] {
	idx := EmailIndex[P]{byEmail: make(map[string][]int, len(profiles)), items: profiles}
	for i, p := range profiles {
		email := core.CleanString(p.ProfileEmail(), true /* lower */)
		if email == "" {
			continue
		}
		idx.byEmail[email] = append(idx.byEmail[email], i)
	}
	return idx
}

// Lookup returns the profile matching `email`.
// It reports false on zero matches and on ambiguous (multiple) matches.
func (idx EmailIndex[P]) Lookup(email string) (P, bool) {
	var zero P
	matches := idx.byEmail[core.CleanString(email, true /* lower */)]
	if len(matches) != 1 {
		return zero, false
	}
	return idx.items[matches[0]], true
}

// FindByEmail is a one-shot EmailIndex lookup.
func FindByEmail[P Profile](profiles []P, email string) (P, bool) {
	return NewEmailIndex(profiles).Lookup(email)
}
