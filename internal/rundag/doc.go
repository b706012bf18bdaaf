// Package rundag holds the scheduler's shared per-request state.
//
// A DagRunInfo is created once per client submission and is referenced from
// every per-device queue that one of its ops touches. All mutation of its
// context, error flag, and reference count goes through DagRunInfo's own
// mutex; nothing in this package assumes the caller already holds a lock.
//
// Inspector implements the read-only queries the scheduler's worker loop
// needs to decide what to run next: which op is current for a device,
// whether it's ready, whether it can be batched with a sibling DagRunInfo's
// op on the same device, and when a DAG or a device's share of it is done.
package rundag
