package service

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/dnldd/impulse/score"
)

const (
	// HistorySize is the default number of cards kept per market.
	HistorySize = 30
)

// CardHistory holds the most recent score cards of a market, one per evaluated bar date,
// ordered by bar date.
type CardHistory struct {
	cards []*score.Card
	size  int
	mtx   sync.RWMutex
}

// NewCardHistory initializes a new card history.
func NewCardHistory(size int32) (*CardHistory, error) {
	if size <= 0 {
		return nil, errors.New("history size must be positive")
	}

	return &CardHistory{
		cards: make([]*score.Card, 0, size),
		size:  int(size),
	}, nil
}

// search returns the position of the provided bar date and whether a card is held for it.
func (h *CardHistory) search(date time.Time) (int, bool) {
	return slices.BinarySearchFunc(h.cards, date, func(card *score.Card, date time.Time) int {
		return card.Date.Compare(date)
	})
}

// Update records the provided card. A card for an already held bar date replaces the
// earlier evaluation. Once full, cards older than every held card are dropped. It reports
// whether the card was recorded.
func (h *CardHistory) Update(card *score.Card) bool {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	idx, found := h.search(card.Date)
	if found {
		h.cards[idx] = card
		return true
	}

	if len(h.cards) == h.size {
		if idx == 0 {
			return false
		}
		h.cards = slices.Delete(h.cards, 0, 1)
		idx--
	}

	h.cards = slices.Insert(h.cards, idx, card)
	return true
}

// At returns the card evaluated for the provided bar date.
func (h *CardHistory) At(date time.Time) (*score.Card, bool) {
	h.mtx.RLock()
	defer h.mtx.RUnlock()

	idx, found := h.search(date)
	if !found {
		return nil, false
	}

	return h.cards[idx], true
}

// Last returns the card of the latest bar date.
func (h *CardHistory) Last() *score.Card {
	h.mtx.RLock()
	defer h.mtx.RUnlock()

	if len(h.cards) == 0 {
		return nil
	}

	return h.cards[len(h.cards)-1]
}

// LastN returns up to the last n cards, newest first.
func (h *CardHistory) LastN(n int32) []*score.Card {
	h.mtx.RLock()
	defer h.mtx.RUnlock()

	if n <= 0 {
		return nil
	}

	count := min(int(n), len(h.cards))
	set := make([]*score.Card, count)
	for idx := range count {
		set[idx] = h.cards[len(h.cards)-1-idx]
	}

	return set
}

// Len returns the number of cards held.
func (h *CardHistory) Len() int {
	h.mtx.RLock()
	defer h.mtx.RUnlock()

	return len(h.cards)
}
