// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair moving them.
package queue

// EmailEvent kinds. The consumer picks the mail template by kind.
const (
	EmailActivation            = "activation"
	EmailActivationComplete    = "activation_complete"
	EmailPasswordReset         = "password_reset"
	EmailPasswordResetComplete = "password_reset_complete"
)

// EmailEvent is the payload published to the email.notifications queue after
// an account flow commits. Link is the full URL embedded in the mail body.
type EmailEvent struct {
	Kind string `json:"kind"`
	To   string `json:"to"`
	Link string `json:"link"`
}
