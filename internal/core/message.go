package core

// MessageType discriminates the payload carried by a Message. The broadcast
// variants (Disperse, Redisperse) wrap an arbitrary inner message type,
// recorded separately inside the broadcast envelope; every other variant
// names a concrete protocol message.
type MessageType uint8

const (
	// MessageTypeBroadcastDisperse is a leader's initial fan-out of a value
	// it wants everyone to agree it sent.
	MessageTypeBroadcastDisperse MessageType = iota
	// MessageTypeBroadcastRedisperse is a participant echoing what it
	// received from the leader to every other participant.
	MessageTypeBroadcastRedisperse

	// MessageTypeKeygenReady announces that a participant has entered the
	// key generation protocol and is ready to begin round one.
	MessageTypeKeygenReady
	// MessageTypeKeygenR1CommitHash carries a participant's round-one
	// commitment, always sent via reliable broadcast.
	MessageTypeKeygenR1CommitHash
	// MessageTypeKeygenR2Decommit carries a participant's round-two
	// decommitment, sent directly to every other participant.
	MessageTypeKeygenR2Decommit
	// MessageTypeKeygenR3Proofs carries a participant's round-three
	// Schnorr proof of knowledge of its share.
	MessageTypeKeygenR3Proofs
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeBroadcastDisperse:
		return "Broadcast(Disperse)"
	case MessageTypeBroadcastRedisperse:
		return "Broadcast(Redisperse)"
	case MessageTypeKeygenReady:
		return "Keygen(Ready)"
	case MessageTypeKeygenR1CommitHash:
		return "Keygen(R1CommitHash)"
	case MessageTypeKeygenR2Decommit:
		return "Keygen(R2Decommit)"
	case MessageTypeKeygenR3Proofs:
		return "Keygen(R3Proofs)"
	default:
		return "Unknown"
	}
}

// Message is the unit of communication between participants: every
// protocol round, whether broadcast or direct, is expressed as one or more
// Messages exchanged between parties in the same session.
type Message struct {
	Type    MessageType
	Session Identifier
	From    ParticipantIdentifier
	To      ParticipantIdentifier
	Payload []byte
}

// NewMessage constructs a Message, CBOR-encoding payload is the caller's
// responsibility so that this type stays agnostic to what it carries.
func NewMessage(t MessageType, session Identifier, from, to ParticipantIdentifier, payload []byte) *Message {
	return &Message{Type: t, Session: session, From: from, To: to, Payload: payload}
}
