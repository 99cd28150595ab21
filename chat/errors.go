package chat

import "errors"

var (
	// ErrInvalidParticipant rejects conversation identity derivation
	// before any store interaction: empty ids and self-chat.
	ErrInvalidParticipant = errors.New("chat: invalid participant")

	// ErrWriteFailed wraps store rejections of create/append/update.
	// Nothing is retried; committed state is never touched.
	ErrWriteFailed = errors.New("chat: write failed")

	// ErrSubscription wraps store-level listener failures. The
	// subscription is dead; re-subscribing is the caller's call.
	ErrSubscription = errors.New("chat: subscription failed")
)
