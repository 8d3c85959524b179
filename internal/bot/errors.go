package bot

import "errors"

// Error kinds of the conversation engine. None of them is fatal: each is
// scoped to the single event being processed, the user keeps their state and
// can retry the same step.
var (
	// ErrUnexpectedEvent marks an event kind the current state does not
	// accept, e.g. free text while a menu choice is awaited.
	ErrUnexpectedEvent = errors.New("unexpected event for state")

	// ErrInvalidAssociation marks a size or color that exists but does not
	// belong to the previously selected model.
	ErrInvalidAssociation = errors.New("selection not valid for model")

	// ErrSendFailed marks an outbound message that could not be delivered.
	// State and order changes committed before the send stay committed.
	ErrSendFailed = errors.New("failed to send message")
)
