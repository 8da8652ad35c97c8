// Package events is an in-process publish/subscribe bus used to hand work
// off the request path: verification mail, registration and account deletion.
package events

import "time"

type Topic string

const (
	TopicVerificationRequested Topic = "verification.requested"
	TopicUserCreated           Topic = "user.created"
	TopicUserDeleted           Topic = "user.deleted"
)

type Event struct {
	Topic      Topic
	Payload    any
	OccurredAt time.Time
}

// VerificationRequested asks the mailer to deliver a confirmation token.
// The mailer builds the confirmation link itself.
type VerificationRequested struct {
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserCreated announces a registration that still needs email confirmation.
type UserCreated struct {
	UserID string `json:"userId"`
}

type UserDeleted struct {
	UserID string `json:"userId"`
}

func NewVerificationRequested(userID, token string, expiresAt time.Time) Event {
	return Event{
		Topic:      TopicVerificationRequested,
		Payload:    VerificationRequested{UserID: userID, Token: token, ExpiresAt: expiresAt},
		OccurredAt: time.Now(),
	}
}

func NewUserCreated(userID string) Event {
	return Event{
		Topic:      TopicUserCreated,
		Payload:    UserCreated{UserID: userID},
		OccurredAt: time.Now(),
	}
}

func NewUserDeleted(userID string) Event {
	return Event{
		Topic:      TopicUserDeleted,
		Payload:    UserDeleted{UserID: userID},
		OccurredAt: time.Now(),
	}
}
