// Package queue provides an unsynchronized, doubly linked FIFO with O(1)
// push/pop/evict and forward traversal via opaque node handles.
//
// Callers are responsible for their own locking: Queue performs no
// synchronization of its own, matching the contract used by
// internal/scheduler, which guards every Queue access with its own mutex.
package queue
