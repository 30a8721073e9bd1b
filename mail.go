package authors

import "context"

// NewFollowerMail notifies the followed user that somebody follows them.
type NewFollowerMail struct {
	RecipientEmail   Email  `json:"recipientEmail"`
	FollowedUsername string `json:"followedUsername"`
	FollowerUsername string `json:"followerUsername"`
}

// Mailer is a best-effort collaborator. Callers must never let a returned
// error fail or roll back the operation that triggered the mail.
type Mailer interface {
	NotifyNewFollower(ctx context.Context, mail NewFollowerMail) error
}
