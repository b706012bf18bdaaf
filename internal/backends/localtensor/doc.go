// Package localtensor implements executor.Executor in-process for the two
// op kinds that never leave the scheduler's own address space: TensorOp
// (plain tensor manipulation; identity, slice and concat are built in) and ScriptRun
// (an HCL expression evaluated against the op's bound inputs). It's the
// in-process counterpart to internal/backends/httpmodel: the scheduler
// doesn't care which Executor it's talking to, only that RunSingle/
// RunBatched come back with outputs or an error.
//
// Model ops never reach this package — BatchingMatch only ever groups
// ModelRun ops, and RunBatched here is a defensive sequential fallback,
// not a real batching path.
package localtensor
