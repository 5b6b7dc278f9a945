package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindByEmail(t *testing.T) {
	students := []Student{
		{ID: 1, User: Account{Email: "awe@test.cd"}},
		{ID: 2, User: Account{Email: "King@Test.cd"}},
		{ID: 3, User: Account{Email: "dup@test.cd"}},
		{ID: 4, User: Account{Email: "dup@test.cd"}},
		{ID: 5, User: Account{Email: ""}},
	}

	tests := []struct {
		name   string
		email  string
		wantID int
		wantOk bool
	}{
		{name: "exact match", email: "awe@test.cd", wantID: 1, wantOk: true},
		{name: "case & space insensitive", email: "  king@TEST.cd ", wantID: 2, wantOk: true},
		{name: "no match", email: "lol@test.cd"},
		{name: "ambiguous match", email: "dup@test.cd"},
		{name: "empty email", email: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindByEmail(students, tt.email)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestRole(t *testing.T) {
	for _, r := range AllRoles {
		assert.True(t, r.Known(), r)
		assert.NotEqual(t, string(r), r.DisplayName())
	}
	assert.False(t, Role("janitor").Known())
	assert.Equal(t, "janitor", Role("janitor").DisplayName())
	assert.Equal(t, "Enseignant", RoleTeacher.DisplayName())
}
