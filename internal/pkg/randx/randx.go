/*
Package randx provides identifier generation and validation.

It generates session and room-instance identifiers and validates the room names
clients may address.
*/
package randx

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// roomNameExtraChars are accepted in room names besides Base62.
	roomNameExtraChars = "_-"

	// MaxRoomNameLength is the longest accepted room name.
	MaxRoomNameLength = 32
)

// SessionID returns a new opaque session identifier (UUID v4).
func SessionID() string {
	return uuid.NewString()
}

// InstanceID returns a new identifier for one lifetime of a room.
func InstanceID() string {
	return uuid.NewString()
}

// IsValidRoomName checks that name is 1..MaxRoomNameLength characters of Base62, '_' or '-'.
func IsValidRoomName(name string) bool {
	if name == "" || len(name) > MaxRoomNameLength {
		return false
	}

	for _, char := range name {
		if !strings.ContainsRune(Base62Chars, char) && !strings.ContainsRune(roomNameExtraChars, char) {
			return false
		}
	}

	return true
}
