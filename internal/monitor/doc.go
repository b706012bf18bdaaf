// Package monitor pushes live DeviceRegistry queue-length snapshots to
// connected websocket clients, and offers a gzip-compressed JSON export of
// the same snapshot for one-shot polling. It's an observer only: nothing
// here is on the scheduler's hot path, and a monitor with zero connected
// clients costs the registry nothing beyond the periodic Snapshot() call.
package monitor
