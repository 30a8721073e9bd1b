package authors

import (
	"context"
	"errors"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileId int64

// Profile is a user's public-facing social record, exactly one per user.
type Profile struct {
	Id            ProfileId
	User          User
	AboutMe       string
	Gender        string
	Country       string
	City          string
	TwitterHandle string
	PhoneNumber   string
	AvatarUrl     string
}

// ProfileUpdate carries a partial update. Nil fields are left untouched.
type ProfileUpdate struct {
	AboutMe       *string
	Gender        *string
	Country       *string
	City          *string
	TwitterHandle *string
	PhoneNumber   *string
	AvatarUrl     *string
}

func (u ProfileUpdate) Empty() bool {
	return u.AboutMe == nil && u.Gender == nil && u.Country == nil &&
		u.City == nil && u.TwitterHandle == nil && u.PhoneNumber == nil &&
		u.AvatarUrl == nil
}

type ProfileStore interface {
	ByUsername(ctx context.Context, username string) (Profile, error)

	ByUserId(ctx context.Context, userId UserId) (Profile, error)

	// All returns one page of profiles ordered by id and the total count.
	All(ctx context.Context, offset int, limit int) ([]Profile, int, error)

	// Update applies the non-nil fields of update to the user's profile
	// and returns the updated profile.
	Update(ctx context.Context, userId UserId, update ProfileUpdate) (Profile, error)
}
