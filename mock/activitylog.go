package mock

import (
	"context"

	"github.com/adevtutorials/authors"
)

type ActivityStore struct {
	AddLogFn   func(ctx context.Context, userId authors.UserId, activity authors.Activity) error
	ByUserIdFn func(ctx context.Context, userId authors.UserId) ([]authors.ActivityLog, error)
}

func (s ActivityStore) AddLog(ctx context.Context, userId authors.UserId, activity authors.Activity) error {
	return s.AddLogFn(ctx, userId, activity)
}

func (s ActivityStore) ByUserId(ctx context.Context, userId authors.UserId) ([]authors.ActivityLog, error) {
	return s.ByUserIdFn(ctx, userId)
}
