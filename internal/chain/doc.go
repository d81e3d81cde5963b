// Package chain implements the append-only bit-chain event log and its
// rolling integrity hash.
//
// Every mutation to a manifestation is recorded as a BitChainEvent whose
// previous_state_hash must match the manifestation's state hash at append
// time; the rolling chain hash binds the full event history so any
// tampered, dropped, or reordered event is detectable. Validate replays a
// manifestation's log from an empty shell and reports the first index at
// which the recorded history diverges from recomputation.
package chain
