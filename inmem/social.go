package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/adevtutorials/authors"
)

type SocialGraph struct {
	Profiles *ProfileStore

	edges map[authors.ProfileId]map[authors.ProfileId]bool
	mutex sync.RWMutex
}

func NewSocialGraph(profiles *ProfileStore) SocialGraph {
	return SocialGraph{
		Profiles: profiles,
		edges:    map[authors.ProfileId]map[authors.ProfileId]bool{},
	}
}

func (g *SocialGraph) IsFollowing(ctx context.Context, follower authors.ProfileId, followee authors.ProfileId) (bool, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return g.edges[follower][followee], nil
}

func (g *SocialGraph) Follow(ctx context.Context, follower authors.Profile, followee authors.Profile) error {
	if follower.Id == followee.Id {
		return authors.ErrSelfFollow
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.edges[follower.Id][followee.Id] {
		return authors.ErrAlreadyFollowing
	}
	if g.edges[follower.Id] == nil {
		g.edges[follower.Id] = map[authors.ProfileId]bool{}
	}
	g.edges[follower.Id][followee.Id] = true
	return nil
}

func (g *SocialGraph) Unfollow(ctx context.Context, follower authors.Profile, followee authors.Profile) error {
	if follower.Id == followee.Id {
		return authors.ErrSelfFollow
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.edges[follower.Id][followee.Id] {
		return authors.ErrNotFollowing
	}
	delete(g.edges[follower.Id], followee.Id)
	return nil
}

func (g *SocialGraph) Followers(ctx context.Context, of authors.ProfileId) ([]authors.Profile, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	ids := make([]authors.ProfileId, 0)
	for follower, followees := range g.edges {
		if followees[of] {
			ids = append(ids, follower)
		}
	}
	return g.resolve(ctx, ids)
}

func (g *SocialGraph) Following(ctx context.Context, of authors.ProfileId) ([]authors.Profile, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	ids := make([]authors.ProfileId, 0)
	for followee, followed := range g.edges[of] {
		if followed {
			ids = append(ids, followee)
		}
	}
	return g.resolve(ctx, ids)
}

func (g *SocialGraph) resolve(ctx context.Context, ids []authors.ProfileId) ([]authors.Profile, error) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	profiles := make([]authors.Profile, 0, len(ids))
	for _, id := range ids {
		profile, err := g.Profiles.ById(ctx, id)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}
