package chat

import "errors"

var (
	// ErrAlreadyRegistered is returned when a connection id is registered twice.
	ErrAlreadyRegistered = errors.New("connection is already registered")

	// ErrMalformedEnvelope marks an inbound frame that could not be decoded.
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrMissingJoinField is returned when a join omits roomId or userName.
	ErrMissingJoinField = errors.New("join requires roomId and userName")

	// ErrNotJoined is returned when a chat arrives from a connection with no room.
	ErrNotJoined = errors.New("connection has not joined a room")

	// ErrEmptyMessage is returned for empty or whitespace-only chat text.
	ErrEmptyMessage = errors.New("chat message is empty")

	// ErrUnknownType is returned for envelopes with an unrecognised type.
	ErrUnknownType = errors.New("unknown message type")
)

// clientMessages holds the text sent back to the originating socket for
// each validation failure.
var clientMessages = []struct {
	err  error
	text string
}{
	{ErrMissingJoinField, "Required both roomId and userName"},
	{ErrNotJoined, "You must join a room first"},
	{ErrEmptyMessage, "Message cannot be empty"},
	{ErrUnknownType, "Invalid message type"},
}

// ClientMessage returns the error text to report to the client for err, and
// false when err is not a validation error.
func ClientMessage(err error) (string, bool) {
	for _, m := range clientMessages {
		if errors.Is(err, m.err) {
			return m.text, true
		}
	}
	return "", false
}
