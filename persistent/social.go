package persistent

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/adevtutorials/authors"
	"github.com/uptrace/bun"
)

type Follow struct {
	bun.BaseModel `bun:"table:follow"`

	Id         int64     `bun:",pk,autoincrement"`
	CreatedAt  time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	FollowerId int64     `bun:",notnull,unique:follow_edge"`
	FolloweeId int64     `bun:",notnull,unique:follow_edge"`
}

// SocialGraph stores follow edges as rows with a composite uniqueness
// constraint on (follower_id, followee_id). Checks run before mutation so the
// table never has to deduplicate; the constraint catches concurrent inserts
// that slip past the check.
type SocialGraph struct {
	DB *bun.DB
}

var _ authors.SocialGraph = (*SocialGraph)(nil)

func (g *SocialGraph) IsFollowing(ctx context.Context, follower authors.ProfileId, followee authors.ProfileId) (bool, error) {
	exists, err := g.DB.NewSelect().
		Model((*Follow)(nil)).
		Where(`follower_id=? AND followee_id=?`, follower, followee).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("follow edge exists: %w", err)
	}
	return exists, nil
}

func (g *SocialGraph) Follow(ctx context.Context, follower authors.Profile, followee authors.Profile) error {
	if follower.Id == followee.Id {
		return authors.ErrSelfFollow
	}

	err := g.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*Follow)(nil)).
			Where(`follower_id=? AND followee_id=?`, follower.Id, followee.Id).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("follow edge exists: %w", err)
		}
		if exists {
			return authors.ErrAlreadyFollowing
		}

		edge := &Follow{FollowerId: int64(follower.Id), FolloweeId: int64(followee.Id)}
		if _, err := tx.NewInsert().Model(edge).Exec(ctx); err != nil {
			return fmt.Errorf("insert follow edge: %w", err)
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			// concurrent insert won the race, same outcome as the pre-check
			return authors.ErrAlreadyFollowing
		}
		return err
	}
	return nil
}

func (g *SocialGraph) Unfollow(ctx context.Context, follower authors.Profile, followee authors.Profile) error {
	if follower.Id == followee.Id {
		return authors.ErrSelfFollow
	}

	return g.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*Follow)(nil)).
			Where(`follower_id=? AND followee_id=?`, follower.Id, followee.Id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete follow edge: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete follow edge affected rows: %w", err)
		}
		if affected == 0 {
			return authors.ErrNotFollowing
		}
		return nil
	})
}

func (g *SocialGraph) Followers(ctx context.Context, of authors.ProfileId) ([]authors.Profile, error) {
	return g.selectEdgeEnd(ctx, `follow.followee_id=?`, `follow.follower_id=profile.id`, of)
}

func (g *SocialGraph) Following(ctx context.Context, of authors.ProfileId) ([]authors.Profile, error) {
	return g.selectEdgeEnd(ctx, `follow.follower_id=?`, `follow.followee_id=profile.id`, of)
}

func (g *SocialGraph) selectEdgeEnd(ctx context.Context, where string, join string, of authors.ProfileId) ([]authors.Profile, error) {
	var profiles []Profile
	err := g.DB.NewSelect().
		Model(&profiles).
		Relation("User").
		Join(`JOIN follow ON `+join).
		Where(where, of).
		Order("profile.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select follow edge end: %w", err)
	}

	domain := make([]authors.Profile, len(profiles))
	for i, p := range profiles {
		domain[i] = p.ToDomain()
	}
	return domain, nil
}
