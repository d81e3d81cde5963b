package stat7

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/roach88/stat7/internal/canonical"
)

// Domain prefixes for content-addressed identity. Every hash in the system
// is domain-separated; the version suffix enables future algorithm
// migration without ambiguity.
const (
	DomainIdentity  = "stat7/identity/v1"
	DomainAdjacency = "stat7/adjacency/v1"
	DomainManifest  = "stat7/manifest/v1"
	DomainChain     = "stat7/chain/v1"
)

// HashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data), hex-encoded lowercase.
// The null byte separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// AdjacencyHash computes the position hash of an adjacency set: de-dup,
// sort lexicographically, serialize as a canonical JSON array of strings,
// hash under the adjacency domain. Order-independent by construction.
func AdjacencyHash(ids []string) (string, error) {
	data, err := canonical.Marshal(NormalizeAdjacency(ids))
	if err != nil {
		return "", fmt.Errorf("adjacency hash: %w", err)
	}
	return HashWithDomain(DomainAdjacency, data), nil
}

// emptyAdjacencyHash is derived once from the canonical empty set. Derived,
// never transcribed: the constant is whatever AdjacencyHash(nil) computes.
var emptyAdjacencyHash = sync.OnceValue(func() string {
	h, err := AdjacencyHash(nil)
	if err != nil {
		panic(err)
	}
	return h
})

// EmptyAdjacencyHash returns the hash of the empty adjacency set.
func EmptyAdjacencyHash() string {
	return emptyAdjacencyHash()
}

// IdentityHash computes the canonical hash of an identity core. The derived
// canonical_hash field is excluded from the input.
func IdentityHash(core IdentityCore) (string, error) {
	data, err := canonical.Marshal(core.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("identity hash: %w", err)
	}
	return HashWithDomain(DomainIdentity, data), nil
}

// ManifestationHash computes the canonical hash of a manifestation's
// current state. Derived fields (canonical_hash, adjacency_hash,
// stat7_address, chain_integrity_hash) and the audit-only bit-chain event
// log are excluded — the hash covers state, never provenance.
func ManifestationHash(m *Manifestation) (string, error) {
	data, err := canonical.Marshal(m.StateMap())
	if err != nil {
		return "", fmt.Errorf("manifestation hash: %w", err)
	}
	return HashWithDomain(DomainManifest, data), nil
}
