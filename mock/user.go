package mock

import (
	"context"

	"github.com/adevtutorials/authors"
)

type UserStore struct {
	CreateFn     func(ctx context.Context, user authors.User) (authors.User, error)
	ByIdFn       func(ctx context.Context, userId authors.UserId) (authors.User, error)
	ByUsernameFn func(ctx context.Context, username string) (authors.User, error)
}

func (s UserStore) Create(ctx context.Context, user authors.User) (authors.User, error) {
	return s.CreateFn(ctx, user)
}

func (s UserStore) ById(ctx context.Context, userId authors.UserId) (authors.User, error) {
	return s.ByIdFn(ctx, userId)
}

func (s UserStore) ByUsername(ctx context.Context, username string) (authors.User, error) {
	return s.ByUsernameFn(ctx, username)
}
