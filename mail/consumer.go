package mail

import (
	"encoding/json"
	"fmt"
	"net/smtp"

	"github.com/adevtutorials/authors"
	"github.com/nsqio/go-nsq"
	"github.com/sirupsen/logrus"
)

// Sender delivers queued mail jobs over smtp.
type Sender struct {
	SmtpAddr string
	From     string
	Auth     smtp.Auth
}

func (s *Sender) SendNewFollower(mail authors.NewFollowerMail) error {
	msg := s.newFollowerMessage(mail)
	err := smtp.SendMail(s.SmtpAddr, s.Auth, s.From, []string{string(mail.RecipientEmail)}, msg)
	if err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *Sender) newFollowerMessage(mail authors.NewFollowerMail) []byte {
	subject := "A new user follows you."
	body := fmt.Sprintf("Hi there %s, the user %s now follows you.",
		mail.FollowedUsername, mail.FollowerUsername)
	return []byte("To: " + string(mail.RecipientEmail) + "\r\n" +
		"From: " + s.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")
}

// StartConsumer subscribes to the new-follower topic and delivers jobs with
// the given sender. Delivery failures are logged and dropped, never requeued
// forever - the notification is best-effort.
func StartConsumer(nsqdAddr string, channel string, sender *Sender) (*nsq.Consumer, error) {
	consumer, err := nsq.NewConsumer(NewFollowerTopic, channel, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("new consumer: %w", err)
	}
	consumer.AddHandler(nsq.HandlerFunc(func(message *nsq.Message) error {
		var mail authors.NewFollowerMail
		if err := json.Unmarshal(message.Body, &mail); err != nil {
			logrus.WithError(err).Warningln("Dropping malformed mail job.")
			return nil
		}
		if err := sender.SendNewFollower(mail); err != nil {
			logrus.WithError(err).
				WithField("recipient", mail.RecipientEmail).
				Warningln("Could not send new follower mail.")
		}
		return nil
	}))
	if err := consumer.ConnectToNSQD(nsqdAddr); err != nil {
		consumer.Stop()
		return nil, fmt.Errorf("connect to nsqd: %w", err)
	}
	return consumer, nil
}
