// Package core implements the message-driven participant framework shared
// by the broadcast layer and every protocol built on top of it: identifiers,
// messages, the generic per-participant local storage, and the
// ProcessOutcome type protocol handlers return from each message they
// process.
package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ParticipantIdentifier uniquely names a party taking part in a protocol
// run. It is opaque and carries no ordering; participants are only ever
// compared for equality.
type ParticipantIdentifier [16]byte

// NewParticipantIdentifier generates a fresh, random identifier.
func NewParticipantIdentifier() ParticipantIdentifier {
	var id ParticipantIdentifier
	if _, err := rand.Read(id[:]); err != nil {
		panic(fmt.Errorf("core: failed to generate participant identifier: %w", err))
	}
	return id
}

func (p ParticipantIdentifier) String() string {
	return hex.EncodeToString(p[:])
}

// IsZero reports whether p is the zero identifier, used as a sentinel when
// a stored value has no particular owner (e.g. broadcast's vote table,
// which is keyed by session rather than by participant).
func (p ParticipantIdentifier) IsZero() bool {
	return p == ParticipantIdentifier{}
}

// Identifier names a single run ("session") of a protocol, scoping the
// messages and local storage belonging to it.
type Identifier [32]byte

// NewIdentifier generates a fresh, random session identifier.
func NewIdentifier() Identifier {
	var id Identifier
	if _, err := rand.Read(id[:]); err != nil {
		panic(fmt.Errorf("core: failed to generate session identifier: %w", err))
	}
	return id
}

func (id Identifier) String() string {
	return hex.EncodeToString(id[:])
}
