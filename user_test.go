package authors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUserValidation(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		name     string
		username string
		first    string
		last     string
		email    string
		password string
		err      error
	}{
		{"missing username", "", "Jane", "Doe", "jane@authors.dev", "pass", ErrUsernameRequired},
		{"missing first name", "jane", "", "Doe", "jane@authors.dev", "pass", ErrFirstNameRequired},
		{"missing last name", "jane", "Jane", "", "jane@authors.dev", "pass", ErrLastNameRequired},
		{"missing email", "jane", "Jane", "Doe", "", "pass", ErrEmailRequired},
		{"invalid email", "jane", "Jane", "Doe", "not an email", "pass", ErrEmailInvalid},
		{"missing password", "jane", "Jane", "Doe", "jane@authors.dev", "", ErrPasswordRequired},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewUser(c.username, c.first, c.last, c.email, c.password)
			assert.ErrorIs(err, c.err)
		})
	}
}

func TestNewUserPassword(t *testing.T) {
	assert := assert.New(t)

	user, err := NewUser("jane", "Jane", "Doe", "jane@authors.dev", "s3cret123")
	assert.NoError(err)
	assert.True(user.IsActive)
	assert.NotEqual("s3cret123", user.PasswordHash)
	assert.True(user.CheckPassword("s3cret123"))
	assert.False(user.CheckPassword("wrong"))
}
