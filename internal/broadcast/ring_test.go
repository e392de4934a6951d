package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/duskline/biasengine/internal/domain"
)

func evt(kind string) domain.Event {
	return domain.Event{Type: domain.EventType(kind)}
}

func TestRing_AllReturnsOldestFirstUnderCapacity(t *testing.T) {
	r := newRing(5)
	r.push(evt("a"))
	r.push(evt("b"))
	r.push(evt("c"))

	out := r.all()
	assert.Equal(t, []domain.EventType{"a", "b", "c"}, []domain.EventType{out[0].Type, out[1].Type, out[2].Type})
}

func TestRing_EvictsOldestPastCapacity(t *testing.T) {
	r := newRing(3)
	r.push(evt("a"))
	r.push(evt("b"))
	r.push(evt("c"))
	r.push(evt("d"))

	out := r.all()
	wantOrder := []domain.EventType{"b", "c", "d"}
	for i, want := range wantOrder {
		assert.Equal(t, want, out[i].Type)
	}
}
