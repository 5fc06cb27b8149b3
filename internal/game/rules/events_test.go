package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventTypeValid(t *testing.T) {
	for _, et := range AllEventTypes {
		assert.True(t, et.Valid(), et)
	}
	assert.False(t, EventType("PRIORITY_CHANGE").Valid())
	assert.False(t, EventType("").Valid())
}

func TestAllEventTypesAreDistinct(t *testing.T) {
	seen := make(map[EventType]bool, len(AllEventTypes))
	for _, et := range AllEventTypes {
		assert.False(t, seen[et], "duplicate event type %s", et)
		seen[et] = true
	}
	assert.Len(t, seen, 10)
	assert.Equal(t, EventGameCreated, AllEventTypes[0])
	assert.Equal(t, EventGameFinished, AllEventTypes[len(AllEventTypes)-1])
}
