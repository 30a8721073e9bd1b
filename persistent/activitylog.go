package persistent

import (
	"context"
	"fmt"
	"time"

	"github.com/adevtutorials/authors"
	"github.com/uptrace/bun"
)

type ActivityLog struct {
	bun.BaseModel `bun:"table:activity_log"`

	Id        int64                  `bun:",pk,autoincrement"`
	CreatedAt time.Time              `bun:",nullzero,notnull,default:current_timestamp"`
	UserId    int64                  `bun:",notnull"`
	Name      string                 `bun:",notnull"`
	Data      map[string]interface{} `bun:",notnull"`
}

func (l *ActivityLog) ToDomain() authors.ActivityLog {
	return authors.ActivityLog{
		Id:        l.Id,
		CreatedAt: l.CreatedAt,
		UserId:    authors.UserId(l.UserId),
		Name:      l.Name,
		Data:      l.Data,
	}
}

type ActivityStore struct {
	DB *bun.DB
}

var _ authors.ActivityStore = (*ActivityStore)(nil)

func (s *ActivityStore) AddLog(ctx context.Context, userId authors.UserId, activity authors.Activity) error {
	_, err := s.DB.NewInsert().
		Model(&ActivityLog{
			UserId: int64(userId),
			Name:   activity.Name,
			Data:   activity.Data,
		}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

func (s *ActivityStore) ByUserId(ctx context.Context, userId authors.UserId) ([]authors.ActivityLog, error) {
	var logs []ActivityLog
	err := s.DB.NewSelect().
		Model((*ActivityLog)(nil)).
		Where("activity_log.user_id=?", userId).
		Order("activity_log.id ASC").
		Scan(ctx, &logs)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	ml := make([]authors.ActivityLog, len(logs))
	for i, l := range logs {
		ml[i] = l.ToDomain()
	}
	return ml, nil
}
