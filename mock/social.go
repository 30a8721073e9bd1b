package mock

import (
	"context"

	"github.com/adevtutorials/authors"
)

type SocialGraph struct {
	IsFollowingFn func(ctx context.Context, follower authors.ProfileId, followee authors.ProfileId) (bool, error)
	FollowFn      func(ctx context.Context, follower authors.Profile, followee authors.Profile) error
	UnfollowFn    func(ctx context.Context, follower authors.Profile, followee authors.Profile) error
	FollowersFn   func(ctx context.Context, of authors.ProfileId) ([]authors.Profile, error)
	FollowingFn   func(ctx context.Context, of authors.ProfileId) ([]authors.Profile, error)
}

func (g SocialGraph) IsFollowing(ctx context.Context, follower authors.ProfileId, followee authors.ProfileId) (bool, error) {
	return g.IsFollowingFn(ctx, follower, followee)
}

func (g SocialGraph) Follow(ctx context.Context, follower authors.Profile, followee authors.Profile) error {
	return g.FollowFn(ctx, follower, followee)
}

func (g SocialGraph) Unfollow(ctx context.Context, follower authors.Profile, followee authors.Profile) error {
	return g.UnfollowFn(ctx, follower, followee)
}

func (g SocialGraph) Followers(ctx context.Context, of authors.ProfileId) ([]authors.Profile, error) {
	return g.FollowersFn(ctx, of)
}

func (g SocialGraph) Following(ctx context.Context, of authors.ProfileId) ([]authors.Profile, error) {
	return g.FollowingFn(ctx, of)
}
