package mock

import (
	"context"

	"github.com/adevtutorials/authors"
)

type Mailer struct {
	NotifyNewFollowerFn func(ctx context.Context, mail authors.NewFollowerMail) error
}

func (m Mailer) NotifyNewFollower(ctx context.Context, mail authors.NewFollowerMail) error {
	return m.NotifyNewFollowerFn(ctx, mail)
}
