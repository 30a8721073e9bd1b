package persistent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adevtutorials/authors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

type User struct {
	bun.BaseModel `bun:"table:user"`

	Id           int64     `bun:",pk,autoincrement"`
	CreatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	Username     string    `bun:",notnull,unique"`
	FirstName    string    `bun:",notnull"`
	LastName     string    `bun:",notnull"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:",notnull"`
	IsActive     bool      `bun:",notnull,default:true"`
	IsStaff      bool      `bun:",notnull,default:false"`
	IsSuperuser  bool      `bun:",notnull,default:false"`
	Profile      *Profile  `bun:"rel:has-one,join:id=user_id"`
}

func (u User) ToDomain() authors.User {
	return authors.User{
		Id:           authors.UserId(u.Id),
		CreatedAt:    u.CreatedAt,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        authors.Email(u.Email),
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		IsStaff:      u.IsStaff,
		IsSuperuser:  u.IsSuperuser,
	}
}

type UserStore struct {
	DB *bun.DB
}

var _ authors.UserStore = (*UserStore)(nil)

// Create inserts the user and its empty profile in one transaction, so no
// user ever exists without a profile.
func (s *UserStore) Create(ctx context.Context, u authors.User) (authors.User, error) {
	user := &User{
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        string(u.Email),
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		IsStaff:      u.IsStaff,
		IsSuperuser:  u.IsSuperuser,
	}

	err := s.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		profile := &Profile{UserId: user.Id}
		if _, err := tx.NewInsert().Model(profile).Exec(ctx); err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return authors.User{}, authors.ErrUserExists
		}
		return authors.User{}, err
	}
	return user.ToDomain(), nil
}

func (s *UserStore) ById(ctx context.Context, userId authors.UserId) (authors.User, error) {
	user := new(User)
	err := s.DB.NewSelect().
		Model(user).
		Where(`"user"."id"=?`, userId).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authors.User{}, authors.ErrUserNotFound
		}
		return authors.User{}, fmt.Errorf("select user: %w", err)
	}
	return user.ToDomain(), nil
}

func (s *UserStore) ByUsername(ctx context.Context, username string) (authors.User, error) {
	user := new(User)
	err := s.DB.NewSelect().
		Model(user).
		Where(`"user"."username"=?`, username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authors.User{}, authors.ErrUserNotFound
		}
		return authors.User{}, fmt.Errorf("select user: %w", err)
	}
	return user.ToDomain(), nil
}

// isUniqueViolation reports whether err is a pg unique constraint violation
// (SQLSTATE 23505), possibly wrapped.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
