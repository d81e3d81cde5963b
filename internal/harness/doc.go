// Package harness runs YAML-described mutation scenarios against the
// chain engine with a deterministic clock and id source, so the same
// scenario file produces byte-identical event logs on every run.
//
// Scenarios live in testdata/scenarios and their canonical trace
// snapshots in testdata/golden. A scenario declares an entity
// definition, a sequence of mutation steps, an optional tamper applied
// to the committed log, and the expected replay verdict.
package harness
