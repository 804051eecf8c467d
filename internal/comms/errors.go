package comms

import "errors"

var (
	// ErrPayloadTooLarge is returned by Send when the payload exceeds
	// the configured MTU. The message is rejected synchronously and
	// never enqueued.
	ErrPayloadTooLarge = errors.New("payload exceeds maximum transmission size")

	// ErrPublishFailure is returned by Send when the datagram cannot
	// be handed to the broker (unknown sender or a stopped broker).
	// This layer never retries; the sender sees a local failure.
	ErrPublishFailure = errors.New("failed to enqueue datagram")

	// ErrDuplicateAddress is returned when two nodes register with
	// the same address.
	ErrDuplicateAddress = errors.New("address already registered")

	// ErrBindAddress is returned by Bind when a client tries to listen
	// on an address that is neither its own nor the multicast group.
	ErrBindAddress = errors.New("can only bind own address or multicast")
)
