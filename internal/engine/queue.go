package engine

import (
	"errors"
	"fmt"

	"wayline/internal/domain"
)

const DefaultQueueCapacity = 8

var (
	ErrQueueFull   = errors.New("delivery queue is full")
	ErrBadPosition = errors.New("invalid queue position")
)

// DeliveryQueue is the ordered, capacity-bounded list of accepted
// delivery commitments. Positions are 1-based, contiguous and unique;
// the capacity invariant holds whenever a call returns, including
// across privileged insertions, which restore it by evicting from the
// tail.
type DeliveryQueue struct {
	capacity int
	items    []domain.DeliveryItem
}

func NewDeliveryQueue(capacity int) *DeliveryQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &DeliveryQueue{capacity: capacity}
}

// NewDeliveryQueueFromItems rebuilds a queue from a persisted
// snapshot. Items are taken in slice order; positions are renumbered
// so a stale snapshot cannot smuggle in gaps or duplicates.
func NewDeliveryQueueFromItems(capacity int, items []domain.DeliveryItem) *DeliveryQueue {
	q := NewDeliveryQueue(capacity)
	for _, it := range items {
		if len(q.items) == q.capacity {
			break
		}
		q.items = append(q.items, it)
	}
	q.renumber()
	return q
}

func (q *DeliveryQueue) Capacity() int { return q.capacity }
func (q *DeliveryQueue) Len() int      { return len(q.items) }

// Items returns a copy of the queue in position order.
func (q *DeliveryQueue) Items() []domain.DeliveryItem {
	out := make([]domain.DeliveryItem, len(q.items))
	copy(out, q.items)
	return out
}

func (q *DeliveryQueue) renumber() {
	for i := range q.items {
		q.items[i].QueuePosition = i + 1
	}
}

// Enqueue appends at the tail. At capacity it fails outright; only the
// privileged path may evict.
func (q *DeliveryQueue) Enqueue(item domain.DeliveryItem) error {
	if len(q.items) >= q.capacity {
		return ErrQueueFull
	}
	item.Privileged = false
	q.items = append(q.items, item)
	q.renumber()
	return nil
}

// privilegedPrefix is the number of leading privileged items; ordinary
// placements never land inside this block.
func (q *DeliveryQueue) privilegedPrefix() int {
	n := 0
	for _, it := range q.items {
		if !it.Privileged {
			break
		}
		n++
	}
	return n
}

// InsertWithLeverage places an item at its preferred position,
// displacing the run below it; anything pushed past the last slot is
// evicted and returned. The preferred position is clamped below the
// privileged block and into the valid range. At capacity with no
// preferred slot ahead of the tail the insert fails like Enqueue.
func (q *DeliveryQueue) InsertWithLeverage(item domain.DeliveryItem, preferred int) (int, *domain.DeliveryItem, error) {
	item.Privileged = false
	if preferred < 1 {
		preferred = 1
	}
	if min := q.privilegedPrefix() + 1; preferred < min {
		preferred = min
	}
	if preferred > len(q.items)+1 {
		preferred = len(q.items) + 1
	}
	if preferred > q.capacity {
		return 0, nil, ErrQueueFull
	}
	if len(q.items) >= q.capacity && preferred == len(q.items)+1 {
		return 0, nil, ErrQueueFull
	}

	idx := preferred - 1
	q.items = append(q.items, domain.DeliveryItem{})
	copy(q.items[idx+1:], q.items[idx:])
	q.items[idx] = item

	var evicted *domain.DeliveryItem
	if len(q.items) > q.capacity {
		tail := q.items[len(q.items)-1]
		evicted = &tail
		q.items = q.items[:len(q.items)-1]
	}
	q.renumber()
	return preferred, evicted, nil
}

// ForceInsertFront is the patron privilege: the item always lands at
// position 1 with everything else shifted down, and at capacity the
// previous tail item is evicted and returned. Successive privileged
// insertions stack at the front in insertion order, and later ordinary
// enqueues can never displace them.
func (q *DeliveryQueue) ForceInsertFront(item domain.DeliveryItem) *domain.DeliveryItem {
	item.Privileged = true
	q.items = append([]domain.DeliveryItem{item}, q.items...)

	var evicted *domain.DeliveryItem
	if len(q.items) > q.capacity {
		tail := q.items[len(q.items)-1]
		evicted = &tail
		q.items = q.items[:len(q.items)-1]
	}
	q.renumber()
	return evicted
}

// Reorder moves the item at one position to another, shifting the
// range between them.
func (q *DeliveryQueue) Reorder(from, to int) error {
	if from < 1 || from > len(q.items) {
		return fmt.Errorf("%w: from %d", ErrBadPosition, from)
	}
	if to < 1 || to > len(q.items) {
		return fmt.Errorf("%w: to %d", ErrBadPosition, to)
	}
	if from == to {
		return nil
	}
	item := q.items[from-1]
	q.items = append(q.items[:from-1], q.items[from:]...)
	rest := append([]domain.DeliveryItem{}, q.items[to-1:]...)
	q.items = append(append(q.items[:to-1], item), rest...)
	q.renumber()
	return nil
}

// Remove takes the item at a position out of the queue, closing the
// gap.
func (q *DeliveryQueue) Remove(position int) (domain.DeliveryItem, error) {
	if position < 1 || position > len(q.items) {
		return domain.DeliveryItem{}, fmt.Errorf("%w: %d", ErrBadPosition, position)
	}
	item := q.items[position-1]
	q.items = append(q.items[:position-1], q.items[position:]...)
	q.renumber()
	return item, nil
}
