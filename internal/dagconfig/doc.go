// Package dagconfig parses a small HCL dialect describing a client's
// composite request into a rundag.Dag. Parsing client commands into DAG
// structures is an external collaborator the scheduler core never touches
// directly; this package is one concrete such collaborator, exercised by
// tests and the demo binary.
package dagconfig
