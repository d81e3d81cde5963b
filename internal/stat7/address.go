package stat7

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/stat7/internal/canonical"
)

// AddressScheme is the URI scheme of every STAT7 address.
const AddressScheme = "stat7"

// AddressComputationError reports a coordinate missing a field required to
// form an address.
type AddressComputationError struct {
	Field string
}

// Error implements the error interface.
func (e *AddressComputationError) Error() string {
	return fmt.Sprintf("cannot compute address: missing coordinate field %q", e.Field)
}

// IsAddressError returns true if the error is an AddressComputationError.
func IsAddressError(err error) bool {
	var ae *AddressComputationError
	return errors.As(err, &ae)
}

// ComputeAddress formats the canonical STAT7 address of a coordinate:
//
//	stat7://{realm}/{lineage}/{adjacency_hash}/{horizon}?r={resonance}&v={velocity}&d={density}
//
// Floats are in normalized canonical form. Query parameter order is fixed
// as r, v, d and is part of the wire contract — it is intentionally NOT the
// alphabetical ordering used for canonical JSON keys, and the two
// conventions never mix.
func ComputeAddress(c Coordinate) (string, error) {
	if c.Realm == "" {
		return "", &AddressComputationError{Field: "realm"}
	}
	if c.Lineage == "" {
		return "", &AddressComputationError{Field: "lineage"}
	}
	if c.Horizon == "" {
		return "", &AddressComputationError{Field: "horizon"}
	}
	if err := c.Validate(); err != nil {
		return "", err
	}

	adjHash, err := AdjacencyHash(c.Adjacency)
	if err != nil {
		return "", err
	}

	r, err := canonical.NormalizeFloat(c.Resonance)
	if err != nil {
		return "", err
	}
	v, err := canonical.NormalizeFloat(c.Velocity)
	if err != nil {
		return "", err
	}
	d, err := canonical.NormalizeFloat(c.Density)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s://%s/%s/%s/%s?r=%s&v=%s&d=%s",
		AddressScheme, c.Realm, c.Lineage, adjHash, c.Horizon, r, v, d), nil
}

// Address is the parsed form of a STAT7 address. The adjacency set itself
// is not recoverable from its hash, so parsing yields the hash.
type Address struct {
	Realm         Realm
	Lineage       string
	AdjacencyHash string
	Horizon       Horizon
	Resonance     float64
	Velocity      float64
	Density       float64
}

// ParseAddress parses a canonical STAT7 address. Parsing is strict: the
// scheme, the four path segments, and the exact r/v/d parameter order are
// all required. Intended for read-only consumers that route on realm or
// horizon without recomputing anything.
func ParseAddress(s string) (Address, error) {
	var addr Address

	prefix := AddressScheme + "://"
	if !strings.HasPrefix(s, prefix) {
		return addr, canonical.Violation("address", "missing %s:// scheme: %q", AddressScheme, s)
	}
	rest := strings.TrimPrefix(s, prefix)

	pathPart, query, found := strings.Cut(rest, "?")
	if !found {
		return addr, canonical.Violation("address", "missing query parameters: %q", s)
	}

	segments := strings.Split(pathPart, "/")
	if len(segments) != 4 {
		return addr, canonical.Violation("address", "expected realm/lineage/adjacency_hash/horizon, got %d segments", len(segments))
	}

	realm, err := ParseRealm(segments[0])
	if err != nil {
		return addr, err
	}
	horizon, err := ParseHorizon(segments[3])
	if err != nil {
		return addr, err
	}
	if segments[1] == "" {
		return addr, canonical.Violation("address", "empty lineage segment")
	}
	if len(segments[2]) != 64 {
		return addr, canonical.Violation("address", "adjacency hash must be 64 hex chars, got %d", len(segments[2]))
	}

	params := strings.Split(query, "&")
	if len(params) != 3 {
		return addr, canonical.Violation("address", "expected exactly r, v, d parameters")
	}
	order := []string{"r", "v", "d"}
	values := make([]float64, 3)
	for i, p := range params {
		key, raw, ok := strings.Cut(p, "=")
		if !ok || key != order[i] {
			return addr, canonical.Violation("address", "query parameters must be r, v, d in order")
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return addr, canonical.Violation("address", "invalid %s value %q", key, raw)
		}
		values[i] = f
	}

	addr = Address{
		Realm:         realm,
		Lineage:       segments[1],
		AdjacencyHash: segments[2],
		Horizon:       horizon,
		Resonance:     values[0],
		Velocity:      values[1],
		Density:       values[2],
	}
	return addr, nil
}
