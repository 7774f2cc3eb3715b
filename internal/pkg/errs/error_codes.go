/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally within
the server and in communication with clients over HTTP and the websocket protocol.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrMalformedPayload indicates a websocket frame whose payload is missing or has invalid fields.
	ErrMalformedPayload = 1008

	// ErrUnsupportedMessageType indicates a websocket frame with an unknown type tag.
	ErrUnsupportedMessageType = 1009
)

// 2xxx: Room and Content Business Logic Errors
const (
	// ErrRoomNameInvalid indicates that the room name has an invalid format.
	ErrRoomNameInvalid = 2101

	// ErrRoomExists indicates that the room being created already exists.
	ErrRoomExists = 2102

	// ErrRoomNotFound indicates that the room does not exist.
	ErrRoomNotFound = 2103

	// ErrRoomIsFull indicates that the room being joined has reached its maximum occupancy.
	ErrRoomIsFull = 2104

	// ErrRoomCapacityInvalid indicates a requested room capacity outside the allowed range.
	ErrRoomCapacityInvalid = 2105

	// ErrEmptyMessage indicates a chat message that is empty after trimming.
	ErrEmptyMessage = 2201

	// ErrMessageTooLong indicates that the chat message exceeded the maximum length.
	ErrMessageTooLong = 2202

	// ErrInvalidCoordinate indicates a non-finite position component.
	ErrInvalidCoordinate = 2203
)

// 3xxx: Session and Protocol Errors
const (
	// ErrDuplicateSession indicates a second player for a session that already has one.
	ErrDuplicateSession = 3001

	// ErrUnknownSession indicates an operation on a session without a player or registration.
	ErrUnknownSession = 3002

	// ErrNotJoined indicates a room action sent before the session joined.
	ErrNotJoined = 3003

	// ErrOutOfOrderEvent indicates a change event applied out of sequence order.
	ErrOutOfOrderEvent = 3004

	// ErrRoomMismatch indicates a join for a room other than the one the connection belongs to.
	ErrRoomMismatch = 3005

	// ErrSendQueueFull indicates that a client could not keep up with the broadcast.
	ErrSendQueueFull = 3006

	// ErrSessionTimeout indicates that a session lost transport liveness.
	ErrSessionTimeout = 3007

	// ErrConnectionClosed indicates an operation on a closed connection.
	ErrConnectionClosed = 3008
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrArchiveUnavailable indicates that the chat archive is disabled or failing.
	ErrArchiveUnavailable = 5001
)
