// Package mail dispatches notification emails through nsq, so a slow or
// failing mail server never holds up the request that triggered the mail.
package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/adevtutorials/authors"
	"github.com/nsqio/go-nsq"
)

const NewFollowerTopic = "mail_new_follower"

// Queue publishes mail jobs to nsqd. It satisfies authors.Mailer; callers
// treat publish errors as best-effort and only log them.
type Queue struct {
	Producer *nsq.Producer
}

var _ authors.Mailer = (*Queue)(nil)

func NewQueue(nsqdAddr string) (*Queue, error) {
	producer, err := nsq.NewProducer(nsqdAddr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("new producer: %w", err)
	}
	return &Queue{Producer: producer}, nil
}

func (q *Queue) NotifyNewFollower(ctx context.Context, mail authors.NewFollowerMail) error {
	body, err := json.Marshal(mail)
	if err != nil {
		return fmt.Errorf("marshal mail job: %w", err)
	}
	if err := q.Producer.Publish(NewFollowerTopic, body); err != nil {
		return fmt.Errorf("publish mail job: %w", err)
	}
	return nil
}

func (q *Queue) Stop() {
	q.Producer.Stop()
}
