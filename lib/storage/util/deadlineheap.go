// Package util
//
// This file provides a specialized priority queue for flush scheduling.
//
// The implementation combines a binary heap with a hash map so the flush
// daemon can both pull the next due store in O(log n) and reschedule or
// cancel a specific store by name in O(log n) with O(1) lookup. Debouncing
// rewrites deadlines constantly (every mutation pushes the quiescence window
// out), which makes the keyed update path the hot one.
//
// Concurrency: the queue is not thread-safe by itself; the flush daemon
// guards it with its own mutex.
package util

import (
	"container/heap"
	"strconv"
)

// entry is one scheduled flush: a store name and the unix-nano deadline at
// which it becomes due
type entry struct {
	Name     string // store the flush belongs to
	Deadline int64  // unix nanoseconds
	index    int    // index in the heap, maintained by the heap package
}

func (e *entry) String() string {
	return "{Name: " + e.Name + ", Deadline: " + strconv.FormatInt(e.Deadline, 10) + "}"
}

// DeadlineHeap is a min-heap of flush deadlines with key-based access
type DeadlineHeap struct {
	entries    []*entry
	entriesMap map[string]*entry
}

// NewDeadlineHeap creates an empty scheduling queue
func NewDeadlineHeap() *DeadlineHeap {
	return &DeadlineHeap{
		entries:    make([]*entry, 0),
		entriesMap: make(map[string]*entry),
	}
}

// Len returns the number of scheduled flushes (part of heap.Interface)
func (dh *DeadlineHeap) Len() int { return len(dh.entries) }

// Less orders by deadline, earliest first (part of heap.Interface)
func (dh *DeadlineHeap) Less(i, j int) bool {
	return dh.entries[i].Deadline < dh.entries[j].Deadline
}

// Swap exchanges entries at positions i and j (part of heap.Interface)
func (dh *DeadlineHeap) Swap(i, j int) {
	dh.entries[i], dh.entries[j] = dh.entries[j], dh.entries[i]
	dh.entries[i].index = i
	dh.entries[j].index = j
}

// Push adds an entry to the heap (part of heap.Interface)
func (dh *DeadlineHeap) Push(x interface{}) {
	n := len(dh.entries)
	e := x.(*entry)
	e.index = n
	dh.entries = append(dh.entries, e)
	dh.entriesMap[e.Name] = e
}

// Pop removes and returns the entry with the earliest deadline (part of heap.Interface)
func (dh *DeadlineHeap) Pop() interface{} {
	old := dh.entries
	n := len(old)
	e := old[n-1]
	old[n-1] = nil  // Avoid memory leak
	e.index = -1    // For safety
	dh.entries = old[:n-1]
	delete(dh.entriesMap, e.Name)
	return e
}

// Schedule adds a deadline for the named store or moves an existing one
func (dh *DeadlineHeap) Schedule(name string, deadline int64) {
	if e, exists := dh.entriesMap[name]; exists {
		e.Deadline = deadline
		heap.Fix(dh, e.index)
		return
	}

	heap.Push(dh, &entry{
		Name:     name,
		Deadline: deadline,
	})
}

// Cancel removes the deadline for the named store. The second return value
// reports whether one was scheduled.
func (dh *DeadlineHeap) Cancel(name string) (int64, bool) {
	e, exists := dh.entriesMap[name]
	if !exists {
		return 0, false
	}

	heap.Remove(dh, e.index)
	return e.Deadline, true
}

// PeekDue returns the name and deadline of the earliest entry without
// removing it
func (dh *DeadlineHeap) PeekDue() (string, int64, bool) {
	if len(dh.entries) == 0 {
		return "", 0, false
	}
	return dh.entries[0].Name, dh.entries[0].Deadline, true
}

// PopDue removes and returns the name of the earliest entry if its deadline
// is at or before now
func (dh *DeadlineHeap) PopDue(now int64) (string, bool) {
	if len(dh.entries) == 0 || dh.entries[0].Deadline > now {
		return "", false
	}
	e := heap.Pop(dh).(*entry)
	return e.Name, true
}

// Contains checks if the named store has a scheduled deadline
func (dh *DeadlineHeap) Contains(name string) bool {
	_, exists := dh.entriesMap[name]
	return exists
}
