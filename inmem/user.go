package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/adevtutorials/authors"
)

type UserStore struct {
	Profiles *ProfileStore

	lastId int64
	users  map[authors.UserId]authors.User
	mutex  sync.RWMutex
}

func NewUserStore(profiles *ProfileStore) UserStore {
	return UserStore{
		Profiles: profiles,
		users:    map[authors.UserId]authors.User{},
	}
}

func (s *UserStore) Create(ctx context.Context, u authors.User) (authors.User, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return authors.User{}, authors.ErrUserExists
		}
	}

	s.lastId++
	u.Id = authors.UserId(s.lastId)
	u.CreatedAt = time.Now()
	s.users[u.Id] = u

	if s.Profiles != nil {
		s.Profiles.add(u)
	}
	return u, nil
}

func (s *UserStore) ById(ctx context.Context, userId authors.UserId) (authors.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	u, ok := s.users[userId]
	if !ok {
		return u, authors.ErrUserNotFound
	}
	return u, nil
}

func (s *UserStore) ByUsername(ctx context.Context, username string) (authors.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return authors.User{}, authors.ErrUserNotFound
}
