package engine_test

import (
	"errors"
	"fmt"
	"testing"

	"wayline/internal/domain"
	"wayline/internal/engine"
)

func item(id string) domain.DeliveryItem {
	return domain.DeliveryItem{ID: id, Sender: "npc-" + id, Recipient: "npc-x"}
}

func positions(q *engine.DeliveryQueue) []string {
	var ids []string
	for _, it := range q.Items() {
		ids = append(ids, fmt.Sprintf("%s@%d", it.ID, it.QueuePosition))
	}
	return ids
}

func TestQueueEnqueueFailsAtCapacity(t *testing.T) {
	q := engine.NewDeliveryQueue(2)
	if err := q.Enqueue(item("a")); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	if err := q.Enqueue(item("b")); err != nil {
		t.Fatalf("enqueue b: %v", err)
	}
	if err := q.Enqueue(item("c")); !errors.Is(err, engine.ErrQueueFull) {
		t.Fatalf("expected queue full, got %v", err)
	}
	if q.Len() != 2 {
		t.Fatalf("failed enqueue must not change the queue, len=%d", q.Len())
	}
}

func TestQueuePositionsAreContiguous(t *testing.T) {
	q := engine.NewDeliveryQueue(4)
	_ = q.Enqueue(item("a"))
	_ = q.Enqueue(item("b"))
	_ = q.Enqueue(item("c"))
	for i, it := range q.Items() {
		if it.QueuePosition != i+1 {
			t.Fatalf("position %d expected %d, got %d", i, i+1, it.QueuePosition)
		}
	}
	if _, err := q.Remove(2); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got := positions(q)
	if got[0] != "a@1" || got[1] != "c@2" {
		t.Fatalf("gap should close after removal: %v", got)
	}
}

func TestQueueForceInsertFrontEvictsTail(t *testing.T) {
	q := engine.NewDeliveryQueue(3)
	_ = q.Enqueue(item("a"))
	_ = q.Enqueue(item("b"))
	_ = q.Enqueue(item("c"))

	evicted := q.ForceInsertFront(item("p"))
	if evicted == nil || evicted.ID != "c" {
		t.Fatalf("expected c evicted, got %+v", evicted)
	}
	got := positions(q)
	if got[0] != "p@1" || got[1] != "a@2" || got[2] != "b@3" {
		t.Fatalf("expected [p a b], got %v", got)
	}
	if !q.Items()[0].Privileged {
		t.Fatalf("forced item should be privileged")
	}
}

func TestQueueForceInsertBelowCapacityEvictsNothing(t *testing.T) {
	q := engine.NewDeliveryQueue(3)
	_ = q.Enqueue(item("a"))
	if evicted := q.ForceInsertFront(item("p")); evicted != nil {
		t.Fatalf("no eviction expected below capacity, got %+v", evicted)
	}
	got := positions(q)
	if got[0] != "p@1" || got[1] != "a@2" {
		t.Fatalf("expected [p a], got %v", got)
	}
}

func TestQueuePrivilegedBlockStacksInInsertionOrder(t *testing.T) {
	q := engine.NewDeliveryQueue(5)
	_ = q.Enqueue(item("a"))
	q.ForceInsertFront(item("p1"))
	q.ForceInsertFront(item("p2"))
	got := positions(q)
	if got[0] != "p2@1" || got[1] != "p1@2" || got[2] != "a@3" {
		t.Fatalf("expected [p2 p1 a], got %v", got)
	}
}

func TestQueueLeverageInsertDisplacesRun(t *testing.T) {
	q := engine.NewDeliveryQueue(4)
	_ = q.Enqueue(item("a"))
	_ = q.Enqueue(item("b"))
	_ = q.Enqueue(item("c"))

	pos, evicted, err := q.InsertWithLeverage(item("l"), 2)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if pos != 2 || evicted != nil {
		t.Fatalf("expected position 2 with no eviction, got %d %+v", pos, evicted)
	}
	got := positions(q)
	if got[0] != "a@1" || got[1] != "l@2" || got[2] != "b@3" || got[3] != "c@4" {
		t.Fatalf("expected [a l b c], got %v", got)
	}
}

func TestQueueLeverageInsertAtCapacityEvictsTail(t *testing.T) {
	q := engine.NewDeliveryQueue(3)
	_ = q.Enqueue(item("a"))
	_ = q.Enqueue(item("b"))
	_ = q.Enqueue(item("c"))

	pos, evicted, err := q.InsertWithLeverage(item("l"), 1)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if pos != 1 || evicted == nil || evicted.ID != "c" {
		t.Fatalf("expected front insert evicting c, got pos=%d evicted=%+v", pos, evicted)
	}
}

func TestQueueLeverageNeverEntersPrivilegedBlock(t *testing.T) {
	q := engine.NewDeliveryQueue(5)
	q.ForceInsertFront(item("p"))
	_ = q.Enqueue(item("a"))

	pos, _, err := q.InsertWithLeverage(item("l"), 1)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if pos != 2 {
		t.Fatalf("preferred position should clamp below the privileged block, got %d", pos)
	}
	got := positions(q)
	if got[0] != "p@1" || got[1] != "l@2" || got[2] != "a@3" {
		t.Fatalf("expected [p l a], got %v", got)
	}
}

func TestQueueLeverageTailInsertAtCapacityFails(t *testing.T) {
	q := engine.NewDeliveryQueue(2)
	_ = q.Enqueue(item("a"))
	_ = q.Enqueue(item("b"))
	if _, _, err := q.InsertWithLeverage(item("l"), 3); !errors.Is(err, engine.ErrQueueFull) {
		t.Fatalf("tail insert at capacity should fail like enqueue, got %v", err)
	}
}

func TestQueueReorder(t *testing.T) {
	q := engine.NewDeliveryQueue(4)
	_ = q.Enqueue(item("a"))
	_ = q.Enqueue(item("b"))
	_ = q.Enqueue(item("c"))

	if err := q.Reorder(3, 1); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	got := positions(q)
	if got[0] != "c@1" || got[1] != "a@2" || got[2] != "b@3" {
		t.Fatalf("expected [c a b], got %v", got)
	}
	if err := q.Reorder(1, 9); !errors.Is(err, engine.ErrBadPosition) {
		t.Fatalf("expected bad position, got %v", err)
	}
}

func TestQueueFromItemsRenumbersAndTruncates(t *testing.T) {
	items := []domain.DeliveryItem{
		{ID: "a", QueuePosition: 7},
		{ID: "b", QueuePosition: 7},
		{ID: "c", QueuePosition: 0},
	}
	q := engine.NewDeliveryQueueFromItems(2, items)
	if q.Len() != 2 {
		t.Fatalf("expected truncation to capacity, len=%d", q.Len())
	}
	got := positions(q)
	if got[0] != "a@1" || got[1] != "b@2" {
		t.Fatalf("expected renumbered [a b], got %v", got)
	}
}
