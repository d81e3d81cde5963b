package chain

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/stat7/internal/stat7"
)

// ReplayCheck names the verification stage at which replay failed.
type ReplayCheck string

const (
	CheckEventID       ReplayCheck = "event_id"
	CheckPrevStateHash ReplayCheck = "previous_state_hash"
	CheckMutation      ReplayCheck = "mutation"
	CheckNewStateHash  ReplayCheck = "new_state_hash"
	CheckChainHash     ReplayCheck = "chain_integrity_hash"
	CheckCanonicalHash ReplayCheck = "canonical_hash"
	CheckAddress       ReplayCheck = "stat7_address"
	CheckFinalState    ReplayCheck = "final_state"
)

// ReplayReport is the outcome of validating a manifestation against its
// own event log.
type ReplayReport struct {
	// OK is true when every event and every derived hash verifies.
	OK bool

	// FailIndex is the index of the first failing event, or -1 when the
	// failure is a whole-manifestation check (or there is none).
	FailIndex int

	// Check names the verification that failed.
	Check ReplayCheck

	// Expected and Actual carry the recomputed and recorded values for
	// hash mismatches.
	Expected string
	Actual   string

	// Message describes the failure.
	Message string
}

func replayFail(index int, check ReplayCheck, expected, actual, format string, args ...any) ReplayReport {
	return ReplayReport{
		FailIndex: index,
		Check:     check,
		Expected:  expected,
		Actual:    actual,
		Message:   fmt.Sprintf(format, args...),
	}
}

// Validate replays a manifestation's bit-chain from an empty shell and
// verifies the recorded history against recomputation.
//
// Per event, in order: the previous_state_hash must match the hash of the
// state rebuilt so far, the mutation must apply cleanly, and the recorded
// new_state_hash must match the rebuilt state. A manifestation tampered at
// event k is reported at index k — later events are not reached. After the
// walk the rolling chain hash, the stored canonical hash, the address, and
// the final mutable state are checked with FailIndex -1.
func Validate(m *stat7.Manifestation) ReplayReport {
	if len(m.Events) == 0 {
		return replayFail(-1, CheckMutation, "", "", "manifestation has no events")
	}

	seen := make(map[uuid.UUID]struct{}, len(m.Events))
	current := m.Shell()
	chainHash := ""

	for i, ev := range m.Events {
		if _, dup := seen[ev.EventID]; dup {
			return replayFail(i, CheckEventID, "", ev.EventID.String(),
				"duplicate event id at index %d", i)
		}
		seen[ev.EventID] = struct{}{}

		if i == 0 {
			if ev.PreviousStateHash != nil {
				return replayFail(0, CheckPrevStateHash, "", *ev.PreviousStateHash,
					"first event must have null previous_state_hash")
			}
			if ev.MutationType != stat7.MutationGenesis {
				return replayFail(0, CheckMutation, string(stat7.MutationGenesis), string(ev.MutationType),
					"first event must be a genesis mutation")
			}
		} else {
			head, err := stat7.ManifestationHash(current)
			if err != nil {
				return replayFail(i, CheckPrevStateHash, "", "", "hashing replayed state: %v", err)
			}
			if ev.PreviousStateHash == nil {
				return replayFail(i, CheckPrevStateHash, head, "",
					"null previous_state_hash at index %d", i)
			}
			if *ev.PreviousStateHash != head {
				return replayFail(i, CheckPrevStateHash, head, *ev.PreviousStateHash,
					"previous_state_hash mismatch at index %d", i)
			}
		}

		if err := applyMutation(current, ev.MutationType, ev.Payload); err != nil {
			return replayFail(i, CheckMutation, "", "", "applying event %d: %v", i, err)
		}

		newHash, err := stat7.ManifestationHash(current)
		if err != nil {
			return replayFail(i, CheckNewStateHash, "", "", "hashing replayed state: %v", err)
		}
		if ev.NewStateHash != newHash {
			return replayFail(i, CheckNewStateHash, newHash, ev.NewStateHash,
				"new_state_hash mismatch at index %d", i)
		}

		chainHash, err = ChainStep(chainHash, ev)
		if err != nil {
			return replayFail(i, CheckChainHash, "", "", "chain step %d: %v", i, err)
		}
	}

	if m.ChainIntegrityHash != chainHash {
		return replayFail(-1, CheckChainHash, chainHash, m.ChainIntegrityHash,
			"chain_integrity_hash does not match recomputed chain")
	}

	finalHash, err := stat7.ManifestationHash(m)
	if err != nil {
		return replayFail(-1, CheckCanonicalHash, "", "", "hashing manifestation: %v", err)
	}
	if m.CanonicalHash != finalHash {
		return replayFail(-1, CheckCanonicalHash, finalHash, m.CanonicalHash,
			"canonical_hash does not match current state")
	}

	replayedHash, err := stat7.ManifestationHash(current)
	if err != nil {
		return replayFail(-1, CheckFinalState, "", "", "hashing replayed state: %v", err)
	}
	if replayedHash != finalHash {
		return replayFail(-1, CheckFinalState, replayedHash, finalHash,
			"replayed state does not match stored state")
	}

	addr, err := stat7.ComputeAddress(m.Coordinates)
	if err != nil {
		return replayFail(-1, CheckAddress, "", "", "computing address: %v", err)
	}
	if m.Stat7Address != addr {
		return replayFail(-1, CheckAddress, addr, m.Stat7Address,
			"stat7_address does not match coordinates")
	}

	return ReplayReport{OK: true, FailIndex: -1}
}
