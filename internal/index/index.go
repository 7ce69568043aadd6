// Package index provides a queryable view over one batch of transaction
// events, grouped by (event type, side) and ordered by time, so detectors
// can run inclusive window lookups without scanning the whole batch.
package index

import (
	"time"

	"github.com/tidwall/btree"

	"github.com/Aidin1998/tradewatch/internal/model"
)

type groupKey struct {
	eventType model.EventType
	side      model.Side
}

// entry keys events by (timestamp, insertion order) so equal timestamps
// keep their original relative order.
type entry struct {
	ts  int64
	seq int
	ev  model.TransactionEvent
}

func entryLess(a, b entry) bool {
	if a.ts != b.ts {
		return a.ts < b.ts
	}
	return a.seq < b.seq
}

// Index is an immutable, time-ordered view over an event batch. Build it
// once; queries never mutate it.
type Index struct {
	groups map[groupKey]*btree.BTreeG[entry]
	size   int
}

// Build constructs an index over the given events. The input slice is not
// retained or modified.
func Build(events []model.TransactionEvent) *Index {
	ix := &Index{groups: make(map[groupKey]*btree.BTreeG[entry])}
	for i, ev := range events {
		key := groupKey{eventType: ev.EventType, side: ev.Side}
		tree, ok := ix.groups[key]
		if !ok {
			tree = btree.NewBTreeG(entryLess)
			ix.groups[key] = tree
		}
		tree.Set(entry{ts: ev.Timestamp.UnixNano(), seq: i, ev: ev})
		ix.size++
	}
	return ix
}

// Len returns the total number of indexed events
func (ix *Index) Len() int {
	return ix.size
}

// Query returns all events of the given type and side whose timestamp lies
// in [start, end] inclusive, in time order. An absent group, an empty
// index, or start after end all yield an empty result.
func (ix *Index) Query(eventType model.EventType, side model.Side, start, end time.Time) []model.TransactionEvent {
	if start.After(end) {
		return nil
	}
	tree, ok := ix.groups[groupKey{eventType: eventType, side: side}]
	if !ok {
		return nil
	}

	endNano := end.UnixNano()
	var out []model.TransactionEvent
	tree.Ascend(entry{ts: start.UnixNano(), seq: -1}, func(item entry) bool {
		if item.ts > endNano {
			return false
		}
		out = append(out, item.ev)
		return true
	})
	return out
}

// All returns every event of the given type and side in time order
func (ix *Index) All(eventType model.EventType, side model.Side) []model.TransactionEvent {
	tree, ok := ix.groups[groupKey{eventType: eventType, side: side}]
	if !ok {
		return nil
	}
	out := make([]model.TransactionEvent, 0, tree.Len())
	tree.Scan(func(item entry) bool {
		out = append(out, item.ev)
		return true
	})
	return out
}
