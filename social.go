package authors

import (
	"context"
	"errors"
)

var (
	ErrSelfFollow       = errors.New("you cannot follow yourself")
	ErrAlreadyFollowing = errors.New("already following")
	ErrNotFollowing     = errors.New("not following")
)

// SocialGraph manages the directed follow relation between profiles.
// Edges are a true set: no self edges, no duplicates. The edge storage is
// never exposed directly; these five operations are the whole contract.
type SocialGraph interface {
	IsFollowing(ctx context.Context, follower ProfileId, followee ProfileId) (bool, error)

	// Follow inserts the follower->followee edge. Fails with ErrSelfFollow
	// when both profiles belong to the same user and ErrAlreadyFollowing
	// when the edge exists. The existence check and the insert share one
	// transaction; the store's uniqueness constraint backstops races.
	Follow(ctx context.Context, follower Profile, followee Profile) error

	// Unfollow removes the edge. Mirrors Follow's self guard and fails
	// with ErrNotFollowing when no edge exists.
	Unfollow(ctx context.Context, follower Profile, followee Profile) error

	// Followers returns every profile following the given one, ordered by
	// ascending profile id so repeated queries paginate consistently.
	Followers(ctx context.Context, of ProfileId) ([]Profile, error)

	// Following returns every profile the given one follows, same order.
	Following(ctx context.Context, of ProfileId) ([]Profile, error)
}
