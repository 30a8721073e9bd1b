package mock

import (
	"context"

	"github.com/adevtutorials/authors"
)

type ProfileStore struct {
	ByUsernameFn func(ctx context.Context, username string) (authors.Profile, error)
	ByUserIdFn   func(ctx context.Context, userId authors.UserId) (authors.Profile, error)
	AllFn        func(ctx context.Context, offset int, limit int) ([]authors.Profile, int, error)
	UpdateFn     func(ctx context.Context, userId authors.UserId, update authors.ProfileUpdate) (authors.Profile, error)
}

func (s ProfileStore) ByUsername(ctx context.Context, username string) (authors.Profile, error) {
	return s.ByUsernameFn(ctx, username)
}

func (s ProfileStore) ByUserId(ctx context.Context, userId authors.UserId) (authors.Profile, error) {
	return s.ByUserIdFn(ctx, userId)
}

func (s ProfileStore) All(ctx context.Context, offset int, limit int) ([]authors.Profile, int, error) {
	return s.AllFn(ctx, offset, limit)
}

func (s ProfileStore) Update(ctx context.Context, userId authors.UserId, update authors.ProfileUpdate) (authors.Profile, error) {
	return s.UpdateFn(ctx, userId, update)
}
