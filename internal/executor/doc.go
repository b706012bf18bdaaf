// Package executor defines the boundary between the scheduler and whatever
// actually runs a tensor op, model, or script: a local in-process backend,
// a remote model-serving call, or a test double. The scheduler depends only
// on this interface; internal/backends provides the concrete
// implementations.
package executor
