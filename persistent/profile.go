package persistent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adevtutorials/authors"
	"github.com/uptrace/bun"
)

type Profile struct {
	bun.BaseModel `bun:"table:profile"`

	Id            int64  `bun:",pk,autoincrement"`
	UserId        int64  `bun:",unique,notnull"`
	User          *User  `bun:"rel:belongs-to"`
	AboutMe       string `bun:"about_me"`
	Gender        string
	Country       string
	City          string
	TwitterHandle string
	PhoneNumber   string
	AvatarUrl     string
}

func (p Profile) ToDomain() authors.Profile {
	profile := authors.Profile{
		Id:            authors.ProfileId(p.Id),
		AboutMe:       p.AboutMe,
		Gender:        p.Gender,
		Country:       p.Country,
		City:          p.City,
		TwitterHandle: p.TwitterHandle,
		PhoneNumber:   p.PhoneNumber,
		AvatarUrl:     p.AvatarUrl,
	}
	if p.User != nil {
		profile.User = p.User.ToDomain()
	}
	return profile
}

type ProfileStore struct {
	DB *bun.DB
}

var _ authors.ProfileStore = (*ProfileStore)(nil)

func (s *ProfileStore) ByUsername(ctx context.Context, username string) (authors.Profile, error) {
	profile := new(Profile)
	err := s.DB.NewSelect().
		Model(profile).
		Relation("User").
		Where(`"user"."username"=?`, username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authors.Profile{}, authors.ErrProfileNotFound
		}
		return authors.Profile{}, fmt.Errorf("select profile: %w", err)
	}
	return profile.ToDomain(), nil
}

func (s *ProfileStore) ByUserId(ctx context.Context, userId authors.UserId) (authors.Profile, error) {
	profile := new(Profile)
	err := s.DB.NewSelect().
		Model(profile).
		Relation("User").
		Where(`profile.user_id=?`, userId).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authors.Profile{}, authors.ErrProfileNotFound
		}
		return authors.Profile{}, fmt.Errorf("select profile: %w", err)
	}
	return profile.ToDomain(), nil
}

func (s *ProfileStore) All(ctx context.Context, offset int, limit int) ([]authors.Profile, int, error) {
	var profiles []Profile
	total, err := s.DB.NewSelect().
		Model(&profiles).
		Relation("User").
		Order("profile.id ASC").
		Offset(offset).
		Limit(limit).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("select profiles: %w", err)
	}

	domain := make([]authors.Profile, len(profiles))
	for i, p := range profiles {
		domain[i] = p.ToDomain()
	}
	return domain, total, nil
}

func (s *ProfileStore) Update(ctx context.Context, userId authors.UserId, update authors.ProfileUpdate) (authors.Profile, error) {
	if !update.Empty() {
		query := s.DB.NewUpdate().
			Model((*Profile)(nil)).
			Where(`user_id=?`, userId)
		set := func(column string, value *string) {
			if value != nil {
				query = query.Set(column+"=?", *value)
			}
		}
		set("about_me", update.AboutMe)
		set("gender", update.Gender)
		set("country", update.Country)
		set("city", update.City)
		set("twitter_handle", update.TwitterHandle)
		set("phone_number", update.PhoneNumber)
		set("avatar_url", update.AvatarUrl)

		res, err := query.Exec(ctx)
		if err != nil {
			return authors.Profile{}, fmt.Errorf("update profile: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return authors.Profile{}, authors.ErrProfileNotFound
		}
	}
	return s.ByUserId(ctx, userId)
}
