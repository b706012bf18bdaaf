// Package scheduler implements the per-device background worker pools that
// run a client's submitted DAG (§4). A DeviceRegistry owns one DeviceQueue
// per device, created lazily; each DeviceQueue is serviced by a fixed pool
// of worker goroutines running the scheduling-round algorithm in worker.go:
// pick the next runnable (or batchable) op, evict it from the queue, run it
// outside the lock, and fold its completion back into the owning
// DagRunInfo, unblocking the client exactly once every device it touched
// has gone quiet.
package scheduler
