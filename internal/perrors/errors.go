// Package perrors defines the sentinel errors shared across the protocol
// participant framework, the broadcast layer, and the zero-knowledge proofs.
package perrors

// Error is a sentinel error type, following the same pattern as a typed
// string constant: comparable with ==, usable with errors.Is, and cheap to
// construct without allocating.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrMisroutedMessage is returned when a message is handed to a
	// participant it was not addressed to, or that addresses a session or
	// round the participant is not expecting.
	ErrMisroutedMessage Error = "message is misrouted: wrong recipient, session, or round"

	// ErrMissingState is returned when local storage is queried for a value
	// that has not yet been stored, where the caller expected it to exist.
	ErrMissingState Error = "required local state is missing"

	// ErrInternalInvariantFailed is returned when code detects that one of
	// its own invariants has been violated. It should never surface in
	// practice; if it does, it indicates a bug in this module rather than
	// a malicious participant.
	ErrInternalInvariantFailed Error = "internal invariant violated"

	// ErrFailedToVerifyProof is returned when a zero-knowledge proof fails
	// verification.
	ErrFailedToVerifyProof Error = "failed to verify zero-knowledge proof"

	// ErrProtocolError is returned when the protocol itself detects
	// divergence between participants that it cannot recover from, such as
	// a non-unanimous broadcast tally.
	ErrProtocolError Error = "protocol error: participants disagree on broadcast value"

	// ErrCouldNotGenerateProof is returned when a prover cannot construct a
	// valid zero-knowledge proof, typically because an input violated a
	// precondition the prover assumed (e.g. a composite modulus that turns
	// out not to be a product of two Blum primes).
	ErrCouldNotGenerateProof Error = "could not generate zero-knowledge proof"

	// ErrProtocolAlreadyTerminated is returned when a message is processed
	// for a participant whose protocol has already finished.
	ErrProtocolAlreadyTerminated Error = "protocol has already terminated for this participant"

	// ErrCallerError is returned when the caller of an exported function
	// violates its documented preconditions (nil arguments, empty
	// participant sets, and so on).
	ErrCallerError Error = "caller violated function preconditions"

	// ErrUnknownBroadcastTag names a broadcast tag this participant does not
	// recognize. No code in this module returns it: keygen reports a
	// broadcast output under a foreign tag as ErrMisroutedMessage.
	ErrUnknownBroadcastTag Error = "unrecognized broadcast tag"

	// ErrDuplicateMessage names a second, conflicting vote for a broadcast
	// index that already has one. No code in this module returns it: the
	// broadcast participant keeps the first vote and ignores later ones.
	ErrDuplicateMessage Error = "received conflicting duplicate message"
)
