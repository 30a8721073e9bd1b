package authors

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("username or email already taken")

	ErrUsernameRequired  = errors.New("users must have a username")
	ErrFirstNameRequired = errors.New("users must have a first name")
	ErrLastNameRequired  = errors.New("users must have a last name")
	ErrEmailRequired     = errors.New("users must have an email address")
	ErrEmailInvalid      = errors.New("please enter a valid email address")
	ErrPasswordRequired  = errors.New("users must have a password")
)

type UserId int64

type Email string

type User struct {
	Id           UserId
	CreatedAt    time.Time
	Username     string
	FirstName    string
	LastName     string
	Email        Email
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
}

// NewUser validates account fields and returns a user with a hashed
// password, ready to be persisted. The id is assigned by the store.
func NewUser(username, firstName, lastName, email, password string) (User, error) {
	switch {
	case username == "":
		return User{}, ErrUsernameRequired
	case firstName == "":
		return User{}, ErrFirstNameRequired
	case lastName == "":
		return User{}, ErrLastNameRequired
	case email == "":
		return User{}, ErrEmailRequired
	case password == "":
		return User{}, ErrPasswordRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, ErrEmailInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return User{
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        Email(email),
		PasswordHash: string(hash),
		IsActive:     true,
	}, nil
}

func (u User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

type UserStore interface {
	// Create persists the user together with its (empty) profile.
	// Fails with ErrUserExists when the username or email is taken.
	Create(ctx context.Context, user User) (User, error)

	ById(ctx context.Context, userId UserId) (User, error)

	ByUsername(ctx context.Context, username string) (User, error)
}
