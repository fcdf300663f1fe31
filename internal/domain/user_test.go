package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Parallel()

	user, err := NewUser(" test@example.com ", "averylongpassword")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "test@example.com", user.Email)
	assert.Equal(t, RoleStudent, user.Role)
	assert.True(t, user.EmailReminders)
	assert.False(t, user.CreatedAt.IsZero())

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"empty email", "", "averylongpassword", ErrEmptyEmail},
		{"missing at", "invalidemail", "averylongpassword", ErrInvalidEmail},
		{"missing tld", "user@example", "averylongpassword", ErrInvalidEmail},
		{"short password", "a@b.co", "short", ErrPasswordTooShort},
		{"long password", "a@b.co", strings.Repeat("x", 73), ErrPasswordTooLong},
		{"empty password", "a@b.co", "", ErrEmptyPassword},
	}
	for _, tc := range tests {
		_, err := NewUser(tc.email, tc.password)
		assert.ErrorIs(t, err, tc.want, tc.name)
	}
}

func TestUserRoles(t *testing.T) {
	t.Parallel()

	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("owner").Valid())

	u := &User{Role: RoleStudent}
	assert.False(t, u.IsTeacher())
	u.Role = RoleTeacher
	assert.True(t, u.IsTeacher())
	u.Role = RoleAdmin
	assert.True(t, u.IsTeacher())
}

func TestValidateExistingUserWithHash(t *testing.T) {
	t.Parallel()

	u := &User{ID: uuid.New(), Email: "a@b.co", HashedPassword: "$2a$10$hash", Role: RoleTeacher}
	assert.NoError(t, u.Validate())

	u.Role = ""
	assert.ErrorIs(t, u.Validate(), ErrInvalidRole)
}
