/*
Package errs provides custom error types and application-level error code constants.

This file maps every error code to its CustomError template: message, failure kind
and HTTP status.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:          {Code: ErrInvalidParams, Kind: KindValidation, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:   {Code: ErrUnsupportedMediaType, Kind: KindValidation, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:      {Code: ErrInvalidJSONFormat, Kind: KindValidation, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:     {Code: ErrExtraContentInBody, Kind: KindValidation, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:      {Code: ErrRateLimitExceeded, Kind: KindValidation, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrMalformedPayload:       {Code: ErrMalformedPayload, Kind: KindValidation, Message: "Malformed payload: %s."},
	ErrUnsupportedMessageType: {Code: ErrUnsupportedMessageType, Kind: KindValidation, Message: "Unsupported message type %q."},

	// 2xxx: Room and Content Business Logic Errors
	ErrRoomNameInvalid:     {Code: ErrRoomNameInvalid, Kind: KindValidation, Message: "Invalid room name.", Status: http.StatusBadRequest},
	ErrRoomExists:          {Code: ErrRoomExists, Kind: KindValidation, Message: "Room already exists.", Status: http.StatusConflict},
	ErrRoomNotFound:        {Code: ErrRoomNotFound, Kind: KindValidation, Message: "Room not found.", Status: http.StatusNotFound},
	ErrRoomIsFull:          {Code: ErrRoomIsFull, Kind: KindCapacity, Message: "RoomFull", Status: http.StatusServiceUnavailable},
	ErrRoomCapacityInvalid: {Code: ErrRoomCapacityInvalid, Kind: KindValidation, Message: "Room capacity must be between 1 and %d.", Status: http.StatusBadRequest},
	ErrEmptyMessage:        {Code: ErrEmptyMessage, Kind: KindValidation, Message: "Message text is empty."},
	ErrMessageTooLong:      {Code: ErrMessageTooLong, Kind: KindValidation, Message: "Message is too long."},
	ErrInvalidCoordinate:   {Code: ErrInvalidCoordinate, Kind: KindValidation, Message: "Position must be finite."},

	// 3xxx: Session and Protocol Errors
	ErrDuplicateSession: {Code: ErrDuplicateSession, Kind: KindProtocol, Message: "Session %s already owns a player."},
	ErrUnknownSession:   {Code: ErrUnknownSession, Kind: KindProtocol, Message: "Unknown session %s."},
	ErrNotJoined:        {Code: ErrNotJoined, Kind: KindProtocol, Message: "Join the room first."},
	ErrOutOfOrderEvent:  {Code: ErrOutOfOrderEvent, Kind: KindProtocol, Message: "Event %d applied after %d."},
	ErrRoomMismatch:     {Code: ErrRoomMismatch, Kind: KindProtocol, Message: "Connection belongs to room %s."},
	ErrSendQueueFull:    {Code: ErrSendQueueFull, Kind: KindTransient, Message: "Client send queue full."},
	ErrSessionTimeout:   {Code: ErrSessionTimeout, Kind: KindTransient, Message: "Session timed out."},
	ErrConnectionClosed: {Code: ErrConnectionClosed, Kind: KindTransient, Message: "Connection closed."},

	// 5xxx: Internal System Errors
	ErrUnknown:            {Code: ErrUnknown, Kind: KindInternal, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrArchiveUnavailable: {Code: ErrArchiveUnavailable, Kind: KindInternal, Message: "Chat archive is unavailable.", Status: http.StatusServiceUnavailable},
}
