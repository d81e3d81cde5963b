// Package stat7 defines the STAT7 coordinate model, the immutable identity
// core, versioned manifestations with their bit-chain event records, and the
// hash engine that content-addresses all of them.
//
// Everything here is pure data plus deterministic computation. Persistence
// and transport are collaborators behind the store package; nothing in this
// package performs I/O.
package stat7

import "github.com/roach88/stat7/internal/canonical"

// Realm is the top-level domain axis of an entity's coordinate.
// Canonical form is lowercase; the lowercase name appears verbatim in
// STAT7 addresses.
type Realm string

const (
	RealmVoid      Realm = "void"
	RealmData      Realm = "data"
	RealmNarrative Realm = "narrative"
	RealmSystem    Realm = "system"
	RealmFaculty   Realm = "faculty"
	RealmEvent     Realm = "event"
	RealmPattern   Realm = "pattern"
)

// ValidRealms defines the allowed realm values.
var ValidRealms = map[Realm]bool{
	RealmVoid:      true,
	RealmData:      true,
	RealmNarrative: true,
	RealmSystem:    true,
	RealmFaculty:   true,
	RealmEvent:     true,
	RealmPattern:   true,
}

// ParseRealm validates a realm string. Only canonical lowercase names are
// accepted; anything else is a SchemaViolation.
func ParseRealm(s string) (Realm, error) {
	r := Realm(s)
	if !ValidRealms[r] {
		return "", canonical.Violation("realm", "invalid realm %q", s)
	}
	return r, nil
}

// String returns the canonical lowercase name.
func (r Realm) String() string { return string(r) }
