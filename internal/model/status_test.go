package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{EventDraft, EventPublished},
		{EventPublished, EventCompleted},
		{EventPublished, EventClosed},
		{EventOngoing, EventCompleted},
		{EventOngoing, EventClosed},
		{EventCompleted, EventClosed},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to string }{
		{EventDraft, EventCompleted},
		{EventDraft, EventClosed},
		{EventDraft, EventOngoing},
		{EventPublished, EventDraft},
		{EventPublished, EventOngoing},
		{EventCompleted, EventPublished},
		{EventCompleted, EventDraft},
		{EventClosed, EventDraft},
		{EventClosed, EventPublished},
		{EventClosed, EventCompleted},
		{"BOGUS", EventPublished},
		{EventDraft, "BOGUS"},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be rejected", tc.from, tc.to)
	}
}

func TestCanTransition_SameStatus(t *testing.T) {
	for _, status := range []string{EventDraft, EventPublished, EventCompleted, EventClosed} {
		assert.False(t, CanTransition(status, status), "%s -> %s should be rejected", status, status)
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, Terminal(EventDraft))
	assert.False(t, Terminal(EventPublished))
	assert.False(t, Terminal(EventOngoing))
	assert.True(t, Terminal(EventCompleted))
	assert.True(t, Terminal(EventClosed))
}
