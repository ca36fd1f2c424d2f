// Package broadcast implements reliable broadcast via an echo protocol: a
// leader disperses a value to everyone, and every participant redisperses
// what it received to everyone else. A participant accepts the leader's
// value once every other participant has echoed back an identical copy,
// and aborts the whole run if the echoes ever disagree.
//
// This is used as a sub-protocol by key generation (and would be by any
// protocol) wherever a value must be delivered identically to every
// participant despite a potentially malicious leader — see Figure 3 of
// CGGMP21 ("UC Non-Interactive, Proactive, Threshold ECDSA with
// Identifiable Aborts").
package broadcast

import (
	"fmt"

	"github.com/boltlabs-inc/tss-ecdsa/internal/core"
	"github.com/boltlabs-inc/tss-ecdsa/internal/perrors"
	"github.com/fxamacker/cbor/v2"
)

// Tag names the higher-level round a broadcast value belongs to, so that
// votes for unrelated broadcasts (even within the same session) never mix.
type Tag uint8

const (
	// TagAuxInfoR1CommitHash is reserved for an auxiliary-info protocol's
	// round-one commitment broadcast; this module does not implement that
	// protocol, but keeps the tag so wire formats stay forward compatible.
	TagAuxInfoR1CommitHash Tag = iota
	// TagKeyGenR1CommitHash is key generation's round-one commitment
	// broadcast.
	TagKeyGenR1CommitHash
	// TagPresignR1Ciphertexts is reserved for a presigning protocol's
	// round-one ciphertext broadcast; likewise not implemented here.
	TagPresignR1Ciphertexts
)

// index identifies one (tag, leader, voter) vote slot in the vote table.
type index struct {
	Tag     Tag
	Leader  core.ParticipantIdentifier
	OtherID core.ParticipantIdentifier
}

// data is the envelope a leader disperses and participants redisperse.
type data struct {
	Leader  core.ParticipantIdentifier
	Tag     Tag
	Inner   core.MessageType
	Payload []byte
}

// Output is what a broadcast run produces: the tag it was running under,
// and the reconstructed inner message, with its original type restored so
// the host protocol can dispatch on it normally.
type Output struct {
	Tag     Tag
	Message core.Message
}

const (
	storageVotes          = "broadcast:votes"
	storageRedispersedSet = "broadcast:redispersed"
)

// Participant runs the echo-broadcast protocol on behalf of a single party.
// A protocol that needs reliable broadcast embeds one Participant per
// session and forwards every Broadcast-typed message to it.
type Participant struct {
	id       core.ParticipantIdentifier
	otherIDs []core.ParticipantIdentifier
	storage  *core.LocalStorage
}

// NewParticipant constructs a broadcast Participant for id, with otherIDs
// naming every other party in the session.
func NewParticipant(id core.ParticipantIdentifier, otherIDs []core.ParticipantIdentifier) *Participant {
	return &Participant{id: id, otherIDs: otherIDs, storage: core.NewLocalStorage()}
}

var _ core.ProtocolParticipant[struct{}, Output] = (*Participant)(nil)

// ID implements core.ProtocolParticipant.
func (p *Participant) ID() core.ParticipantIdentifier { return p.id }

// OtherIDs implements core.ProtocolParticipant.
func (p *Participant) OtherIDs() []core.ParticipantIdentifier { return p.otherIDs }

// GenRoundOneMessages wraps payload (an encoded message of type inner) for
// dispersal under tag, returning one Disperse message addressed to every
// other participant.
func (p *Participant) GenRoundOneMessages(session core.Identifier, inner core.MessageType, payload []byte, tag Tag) ([]core.Message, error) {
	encoded, err := cbor.Marshal(data{Leader: p.id, Tag: tag, Inner: inner, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("broadcast: encoding round one message: %w", err)
	}
	messages := make([]core.Message, 0, len(p.otherIDs))
	for _, other := range p.otherIDs {
		messages = append(messages, *core.NewMessage(core.MessageTypeBroadcastDisperse, session, p.id, other, encoded))
	}
	return messages, nil
}

// ProcessMessage implements core.ProtocolParticipant, dispatching on whether
// message is a leader's initial dispersal or a peer's echo. Broadcast needs
// no out-of-band input to advance, so Input is struct{}.
func (p *Participant) ProcessMessage(message *core.Message, _ struct{}) (core.ProcessOutcome[Output], error) {
	switch message.Type {
	case core.MessageTypeBroadcastDisperse:
		return p.handleRoundOne(message)
	case core.MessageTypeBroadcastRedisperse:
		return p.handleRoundTwo(message)
	default:
		return core.ProcessOutcome[Output]{}, perrors.ErrMisroutedMessage
	}
}

func decode(message *core.Message) (data, error) {
	var d data
	if err := cbor.Unmarshal(message.Payload, &d); err != nil {
		return data{}, fmt.Errorf("broadcast: decoding message: %w", err)
	}
	return d, nil
}

func (p *Participant) handleRoundOne(message *core.Message) (core.ProcessOutcome[Output], error) {
	d, err := decode(message)
	if err != nil {
		return core.ProcessOutcome[Output]{}, err
	}

	// A participant may receive every Redisperse echo before it receives
	// the leader's original Disperse, in which case this vote alone can
	// already complete the tally.
	outcome, err := p.processVote(d, message.Session, message.From)
	if err != nil {
		return core.ProcessOutcome[Output]{}, err
	}

	redisperse, err := p.genRoundTwoMessagesOnce(message.Session, d, message.From)
	if err != nil {
		return core.ProcessOutcome[Output]{}, err
	}

	return outcome.WithMessages(redisperse), nil
}

func (p *Participant) handleRoundTwo(message *core.Message) (core.ProcessOutcome[Output], error) {
	d, err := decode(message)
	if err != nil {
		return core.ProcessOutcome[Output]{}, err
	}
	// A participant's own Redisperse of its leader copy echoes back to it;
	// it has nothing to learn from its own vote.
	if d.Leader == p.id {
		return core.Incomplete[Output](), nil
	}
	return p.processVote(d, message.Session, message.From)
}

// processVote records voter's copy of the broadcast value, and once every
// other participant's copy has been recorded, tallies them. If every copy is
// byte-identical, the broadcast terminates with that value as Output;
// otherwise the run aborts, since no value achieved unanimous agreement.
func (p *Participant) processVote(d data, session core.Identifier, voter core.ParticipantIdentifier) (core.ProcessOutcome[Output], error) {
	votes := core.GetOrInsertDefault(p.storage, storageVotes, session, core.ParticipantIdentifier{}, func() map[index][]byte {
		return make(map[index][]byte)
	})

	idx := index{Tag: d.Tag, Leader: d.Leader, OtherID: voter}
	if _, ok := votes[idx]; ok {
		return core.Incomplete[Output](), nil
	}
	votes[idx] = d.Payload

	collected := make([][]byte, 0, len(p.otherIDs))
	for _, other := range p.otherIDs {
		v, ok := votes[index{Tag: d.Tag, Leader: d.Leader, OtherID: other}]
		if !ok {
			return core.Incomplete[Output](), nil
		}
		collected = append(collected, v)
	}

	tally := make(map[string]int, len(collected))
	for _, v := range collected {
		tally[string(v)]++
	}

	for raw, count := range tally {
		if count == len(p.otherIDs) {
			msg := *core.NewMessage(d.Inner, session, d.Leader, p.id, []byte(raw))
			return core.Terminated(Output{Tag: d.Tag, Message: msg}), nil
		}
	}

	return core.ProcessOutcome[Output]{}, perrors.ErrProtocolError
}

// genRoundTwoMessagesOnce redisperses d to every participant other than its
// leader, exactly once per (session, tag, leader): later calls for the same
// broadcast return no messages, since the first call already fanned them
// out.
func (p *Participant) genRoundTwoMessagesOnce(session core.Identifier, d data, leader core.ParticipantIdentifier) ([]core.Message, error) {
	sent := core.GetOrInsertDefault(p.storage, storageRedispersedSet, session, core.ParticipantIdentifier{}, func() map[index]bool {
		return make(map[index]bool)
	})
	key := index{Tag: d.Tag, Leader: d.Leader}
	if sent[key] {
		return nil, nil
	}
	sent[key] = true

	encoded, err := cbor.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("broadcast: encoding round two message: %w", err)
	}

	messages := make([]core.Message, 0, len(p.otherIDs))
	for _, other := range p.otherIDs {
		if other == leader {
			continue
		}
		messages = append(messages, *core.NewMessage(core.MessageTypeBroadcastRedisperse, session, p.id, other, encoded))
	}
	return messages, nil
}
