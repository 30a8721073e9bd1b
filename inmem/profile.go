package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/adevtutorials/authors"
)

type ProfileStore struct {
	lastId   int64
	profiles map[authors.ProfileId]authors.Profile
	mutex    sync.RWMutex
}

func NewProfileStore() ProfileStore {
	return ProfileStore{
		profiles: map[authors.ProfileId]authors.Profile{},
	}
}

// add creates the user's empty profile; called by UserStore.Create to keep
// the one-profile-per-user invariant.
func (s *ProfileStore) add(user authors.User) authors.Profile {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lastId++
	profile := authors.Profile{
		Id:   authors.ProfileId(s.lastId),
		User: user,
	}
	s.profiles[profile.Id] = profile
	return profile
}

func (s *ProfileStore) ByUsername(ctx context.Context, username string) (authors.Profile, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, p := range s.profiles {
		if p.User.Username == username {
			return p, nil
		}
	}
	return authors.Profile{}, authors.ErrProfileNotFound
}

func (s *ProfileStore) ByUserId(ctx context.Context, userId authors.UserId) (authors.Profile, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, p := range s.profiles {
		if p.User.Id == userId {
			return p, nil
		}
	}
	return authors.Profile{}, authors.ErrProfileNotFound
}

func (s *ProfileStore) ById(ctx context.Context, id authors.ProfileId) (authors.Profile, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return authors.Profile{}, authors.ErrProfileNotFound
	}
	return p, nil
}

func (s *ProfileStore) All(ctx context.Context, offset int, limit int) ([]authors.Profile, int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	all := s.sorted()
	total := len(all)
	if offset >= total {
		return []authors.Profile{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *ProfileStore) Update(ctx context.Context, userId authors.UserId, update authors.ProfileUpdate) (authors.Profile, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for id, p := range s.profiles {
		if p.User.Id != userId {
			continue
		}
		apply := func(field *string, value *string) {
			if value != nil {
				*field = *value
			}
		}
		apply(&p.AboutMe, update.AboutMe)
		apply(&p.Gender, update.Gender)
		apply(&p.Country, update.Country)
		apply(&p.City, update.City)
		apply(&p.TwitterHandle, update.TwitterHandle)
		apply(&p.PhoneNumber, update.PhoneNumber)
		apply(&p.AvatarUrl, update.AvatarUrl)
		s.profiles[id] = p
		return p, nil
	}
	return authors.Profile{}, authors.ErrProfileNotFound
}

func (s *ProfileStore) sorted() []authors.Profile {
	all := make([]authors.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Id < all[j].Id })
	return all
}
