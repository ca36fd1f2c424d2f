package core

import "sync"

// storageKey identifies one slot of per-participant, per-session state. tag
// plays the role that a distinct Rust TypeTag type plays in the original:
// it namespaces values of different shapes so that a single map can hold
// all of them without collision. owner is the zero ParticipantIdentifier
// for values that are scoped to the session as a whole rather than to one
// participant (e.g. broadcast's vote table).
type storageKey struct {
	tag     string
	session Identifier
	owner   ParticipantIdentifier
}

// LocalStorage is a typed heterogeneous map, scoped by session and
// participant, used by protocol participants to stash state between
// message-processing calls. Go's lack of a dependent-typed "TypeTag" trait
// is worked around with generic accessor functions keyed by a string tag:
// every call site is expected to use a package-level constant for tag, so
// that Store/Retrieve pairs agree on the stored type V.
type LocalStorage struct {
	mu   sync.Mutex
	data map[storageKey]any
}

// NewLocalStorage returns an empty LocalStorage.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{data: make(map[storageKey]any)}
}

// Store records value under (tag, session, owner), overwriting any existing
// entry.
func Store[V any](ls *LocalStorage, tag string, session Identifier, owner ParticipantIdentifier, value V) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.data[storageKey{tag, session, owner}] = value
}

// Retrieve fetches the value stored under (tag, session, owner), reporting
// whether one was present.
func Retrieve[V any](ls *LocalStorage, tag string, session Identifier, owner ParticipantIdentifier) (V, bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	var zero V
	raw, ok := ls.data[storageKey{tag, session, owner}]
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// GetOrInsertDefault returns the value stored under (tag, session, owner),
// inserting the result of makeDefault if nothing is stored yet. Since Go
// maps and slices are reference types, a caller that gets back a map or
// slice can mutate it in place and have that mutation visible on the next
// GetOrInsertDefault call, mirroring the Rust original's `&mut` access
// pattern.
func GetOrInsertDefault[V any](ls *LocalStorage, tag string, session Identifier, owner ParticipantIdentifier, makeDefault func() V) V {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	key := storageKey{tag, session, owner}
	raw, ok := ls.data[key]
	if ok {
		return raw.(V)
	}
	v := makeDefault()
	ls.data[key] = v
	return v
}

// Remove deletes the value stored under (tag, session, owner), if any.
func Remove(ls *LocalStorage, tag string, session Identifier, owner ParticipantIdentifier) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	delete(ls.data, storageKey{tag, session, owner})
}

// Contains reports whether a value is stored under (tag, session, owner).
func Contains(ls *LocalStorage, tag string, session Identifier, owner ParticipantIdentifier) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	_, ok := ls.data[storageKey{tag, session, owner}]
	return ok
}

// ContainsForAllIDs reports whether a value is stored under (tag, session,
// owner) for every owner in owners, used to check whether every
// participant's contribution to a round has arrived.
func ContainsForAllIDs(ls *LocalStorage, tag string, session Identifier, owners []ParticipantIdentifier) bool {
	for _, owner := range owners {
		if !Contains(ls, tag, session, owner) {
			return false
		}
	}
	return true
}
