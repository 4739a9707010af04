package service

import (
	"testing"
	"time"

	"github.com/dnldd/impulse/score"
	"github.com/peterldowns/testy/assert"
)

func TestCardHistory(t *testing.T) {
	// Ensure invalid sizes are rejected.
	_, err := NewCardHistory(-1)
	assert.Error(t, err)
	_, err = NewCardHistory(0)
	assert.Error(t, err)

	history, err := NewCardHistory(3)
	assert.NoError(t, err)
	assert.Nil(t, history.Last())
	assert.Equal(t, len(history.LastN(2)), 0)

	day := func(d int) time.Time { return time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC) }

	assert.True(t, history.Update(&score.Card{ID: "a", Date: day(14)}))
	assert.True(t, history.Update(&score.Card{ID: "b", Date: day(15)}))
	assert.Equal(t, history.Len(), 2)
	assert.Equal(t, history.Last().ID, "b")

	// Ensure a re-evaluation of the same bar replaces the earlier card.
	assert.True(t, history.Update(&score.Card{ID: "b2", Date: day(15)}))
	assert.Equal(t, history.Len(), 2)
	card, ok := history.At(day(15))
	assert.True(t, ok)
	assert.Equal(t, card.ID, "b2")

	// Ensure cards arriving out of order are kept in bar date order.
	assert.True(t, history.Update(&score.Card{ID: "d", Date: day(17)}))
	assert.True(t, history.Update(&score.Card{ID: "c", Date: day(16)}))
	assert.Equal(t, history.Len(), 3)
	assert.Equal(t, history.Last().ID, "d")

	// Ensure the oldest card is dropped at capacity and older cards are rejected.
	_, ok = history.At(day(14))
	assert.False(t, ok)
	assert.False(t, history.Update(&score.Card{ID: "z", Date: day(10)}))
	assert.Equal(t, history.Len(), 3)

	// Ensure cards are returned newest first.
	set := history.LastN(5)
	assert.Equal(t, len(set), 3)
	assert.Equal(t, set[0].ID, "d")
	assert.Equal(t, set[1].ID, "c")
	assert.Equal(t, set[2].ID, "b2")

	set = history.LastN(2)
	assert.Equal(t, set[0].ID, "d")
	assert.Equal(t, set[1].ID, "c")

	assert.Nil(t, history.LastN(0))
}
