package chain

import (
	"fmt"

	"github.com/roach88/stat7/internal/canonical"
	"github.com/roach88/stat7/internal/stat7"
)

// ChainStep computes the next rolling chain-integrity hash.
//
//	chain[0] = H(canonical(event[0]))
//	chain[n] = H(utf8(chain[n-1]) || canonical(event[n]))
//
// with H = domain-separated SHA-256 under stat7/chain/v1. The previous hash
// is concatenated as its 64-char lowercase hex string, never as raw digest
// bytes — the byte-level rule every port must agree on.
func ChainStep(prev string, ev stat7.BitChainEvent) (string, error) {
	data, err := canonical.Marshal(ev.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("chain step: %w", err)
	}
	if prev != "" {
		data = append([]byte(prev), data...)
	}
	return stat7.HashWithDomain(stat7.DomainChain, data), nil
}

// RecomputeChainHash folds ChainStep over an event log from index 0.
// Returns "" for an empty log.
func RecomputeChainHash(events []stat7.BitChainEvent) (string, error) {
	hash := ""
	for i, ev := range events {
		next, err := ChainStep(hash, ev)
		if err != nil {
			return "", fmt.Errorf("event %d: %w", i, err)
		}
		hash = next
	}
	return hash, nil
}
