package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/adevtutorials/authors"
)

type ActivityStore struct {
	lastId int64
	logs   map[authors.UserId][]authors.ActivityLog
	mutex  sync.RWMutex
}

func NewActivityStore() ActivityStore {
	return ActivityStore{
		logs: make(map[authors.UserId][]authors.ActivityLog),
	}
}

func (s *ActivityStore) AddLog(ctx context.Context, userId authors.UserId, activity authors.Activity) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lastId++
	s.logs[userId] = append(s.logs[userId], authors.ActivityLog{
		Id:        s.lastId,
		CreatedAt: time.Now(),
		UserId:    userId,
		Name:      activity.Name,
		Data:      activity.Data,
	})
	return nil
}

func (s *ActivityStore) ByUserId(ctx context.Context, userId authors.UserId) ([]authors.ActivityLog, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	logs, ok := s.logs[userId]
	if !ok {
		return []authors.ActivityLog{}, nil
	}
	return logs, nil
}
