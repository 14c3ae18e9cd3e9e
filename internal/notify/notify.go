// Package notify delivers escalations to human operators.
package notify

import "context"

// Escalation is the payload handed to a Notifier when automation gives up
// on one failing check of a pull request.
type Escalation struct {
	Repository string
	PRNumber   int
	PRTitle    string
	PRURL      string
	CheckName  string
	Reason     string
	Attempts   int
	// Channel optionally routes the message to a per-repository channel.
	Channel string
	// Mentions are operator handles to tag in the message.
	Mentions []string
}

// Notifier sends escalations. Implementations must return an error when
// delivery was not confirmed: the caller only records an escalation as
// notified after a nil return. On success the returned string is the
// delivery channel's message id, kept on the escalation record.
type Notifier interface {
	SendEscalation(ctx context.Context, esc Escalation) (string, error)
}
