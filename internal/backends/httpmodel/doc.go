// Package httpmodel implements executor.Executor against a remote
// model-serving HTTP endpoint, one per named model. It's the out-of-process
// counterpart to internal/backends/localtensor: the scheduler doesn't care
// which one it's talking to, only that RunSingle/RunBatched come back with
// outputs or an error.
package httpmodel
