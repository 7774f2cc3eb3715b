package randx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidRoomName(t *testing.T) {
	assert.True(t, IsValidRoomName("UNTITLED_GAME"))
	assert.True(t, IsValidRoomName("room-42"))
	assert.True(t, IsValidRoomName(strings.Repeat("a", MaxRoomNameLength)))

	assert.False(t, IsValidRoomName(""))
	assert.False(t, IsValidRoomName("has space"))
	assert.False(t, IsValidRoomName("slash/room"))
	assert.False(t, IsValidRoomName("ünïcode"))
	assert.False(t, IsValidRoomName(strings.Repeat("a", MaxRoomNameLength+1)))
}

func TestSessionIDsAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := SessionID()
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}
}
