package keygen

import (
	"crypto/rand"

	"github.com/boltlabs-inc/tss-ecdsa/internal/broadcast"
	"github.com/boltlabs-inc/tss-ecdsa/internal/core"
	"github.com/boltlabs-inc/tss-ecdsa/internal/perrors"
	"github.com/boltlabs-inc/tss-ecdsa/internal/writer"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/math/curve"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/math/sample"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/transcript"
	zksch "github.com/boltlabs-inc/tss-ecdsa/pkg/zk/sch"
)

const (
	storageCommit         = "keygen:commit"
	storageDecommit       = "keygen:decommit"
	storageSchnorrPrecom  = "keygen:schnorr-precommit"
	storagePrivateShare   = "keygen:private-share"
	storagePublicShare    = "keygen:public-share"
	storageGlobalRid      = "keygen:global-rid"
	storageStash          = "keygen:stash"
	storageReadyOnce      = "keygen:ready-once"
	storageRoundTwoOnce   = "keygen:round-two-once"
	storageRoundThreeOnce = "keygen:round-three-once"
)

// Participant runs key generation on behalf of a single party.
type Participant struct {
	id       core.ParticipantIdentifier
	otherIDs []core.ParticipantIdentifier
	group    curve.Curve
	storage  *core.LocalStorage
	bcast    *broadcast.Participant
	status   core.Status
}

// NewParticipant constructs a key-generation Participant for id, with
// otherIDs naming every other party in the session, over group.
func NewParticipant(id core.ParticipantIdentifier, otherIDs []core.ParticipantIdentifier, group curve.Curve) *Participant {
	return &Participant{
		id:       id,
		otherIDs: otherIDs,
		group:    group,
		storage:  core.NewLocalStorage(),
		bcast:    broadcast.NewParticipant(id, otherIDs),
		status:   core.StatusNotReady,
	}
}

var _ core.ProtocolParticipant[struct{}, Output] = (*Participant)(nil)

// ID implements core.ProtocolParticipant.
func (p *Participant) ID() core.ParticipantIdentifier { return p.id }

// OtherIDs implements core.ProtocolParticipant.
func (p *Participant) OtherIDs() []core.ParticipantIdentifier { return p.otherIDs }

// Status reports this participant's current progress through the protocol.
func (p *Participant) Status() core.Status { return p.status }

// allIDs returns every participant, including this one.
func (p *Participant) allIDs() []core.ParticipantIdentifier {
	return append([]core.ParticipantIdentifier{p.id}, p.otherIDs...)
}

// ReadyMessage builds the message a caller sends to itself to kick off a
// key-generation run for session.
func ReadyMessage(session core.Identifier, id core.ParticipantIdentifier) *core.Message {
	return core.NewMessage(core.MessageTypeKeygenReady, session, id, id, nil)
}

// markOnce reports whether (tag, session, owner) had already been marked,
// and marks it if not — the run-once guard used to make sure each round's
// message-generating step only ever executes a single time.
func markOnce(storage *core.LocalStorage, tag string, session core.Identifier, owner core.ParticipantIdentifier) bool {
	if core.Contains(storage, tag, session, owner) {
		return true
	}
	core.Store(storage, tag, session, owner, true)
	return false
}

// ProcessMessage implements core.ProtocolParticipant.
func (p *Participant) ProcessMessage(message *core.Message, _ struct{}) (core.ProcessOutcome[Output], error) {
	if p.status == core.StatusTerminatedSuccessfully {
		return core.ProcessOutcome[Output]{}, perrors.ErrProtocolAlreadyTerminated
	}

	if p.status == core.StatusNotReady && message.Type != core.MessageTypeKeygenReady {
		p.stash(message)
		return core.Incomplete[Output](), nil
	}

	switch message.Type {
	case core.MessageTypeKeygenReady:
		return p.handleReady(message)
	case core.MessageTypeBroadcastDisperse, core.MessageTypeBroadcastRedisperse:
		return p.handleBroadcast(message)
	case core.MessageTypeKeygenR2Decommit:
		return p.handleRoundTwo(message)
	case core.MessageTypeKeygenR3Proofs:
		return p.handleRoundThree(message)
	default:
		return core.ProcessOutcome[Output]{}, perrors.ErrMisroutedMessage
	}
}

func (p *Participant) stash(message *core.Message) {
	stashed := core.GetOrInsertDefault(p.storage, storageStash, message.Session, p.id, func() map[core.MessageType][]core.Message {
		return make(map[core.MessageType][]core.Message)
	})
	stashed[message.Type] = append(stashed[message.Type], *message)
}

func (p *Participant) takeStashed(session core.Identifier, t core.MessageType) []core.Message {
	stashed, ok := core.Retrieve[map[core.MessageType][]core.Message](p.storage, storageStash, session, p.id)
	if !ok {
		return nil
	}
	messages := stashed[t]
	delete(stashed, t)
	return messages
}

// relayOnly converts a broadcast outcome with no keygen output into the
// equivalent keygen-typed outcome, carrying over only its messages.
func relayOnly(outcome core.ProcessOutcome[broadcast.Output]) core.ProcessOutcome[Output] {
	messages := outcome.Messages()
	if len(messages) == 0 {
		return core.Incomplete[Output]()
	}
	return core.Processed[Output](messages)
}

func (p *Participant) handleReady(message *core.Message) (core.ProcessOutcome[Output], error) {
	p.status = core.StatusInitialized
	if markOnce(p.storage, storageReadyOnce, message.Session, p.id) {
		return core.Incomplete[Output](), nil
	}
	messages, err := p.genRoundOneMessages(message.Session)
	if err != nil {
		return core.ProcessOutcome[Output]{}, err
	}
	outcome := core.Processed[Output](messages)
	for _, t := range []core.MessageType{core.MessageTypeBroadcastDisperse, core.MessageTypeBroadcastRedisperse, core.MessageTypeKeygenR2Decommit, core.MessageTypeKeygenR3Proofs} {
		for _, stashedMessage := range p.takeStashed(message.Session, t) {
			stashedOutcome, err := p.ProcessMessage(&stashedMessage, struct{}{})
			if err != nil {
				return core.ProcessOutcome[Output]{}, err
			}
			outcome = outcome.WithMessages(stashedOutcome.Messages())
			if out, ok := stashedOutcome.Output(); ok {
				return core.Terminated(out).WithMessages(outcome.Messages()), nil
			}
		}
	}
	return outcome, nil
}

// genRoundOneMessages samples this participant's key share and Schnorr
// precommitment, stores them, and broadcasts a commitment to both.
func (p *Participant) genRoundOneMessages(session core.Identifier) ([]core.Message, error) {
	private, public := sample.ScalarPointPair(rand.Reader, p.group)
	precom := zksch.NewRandomness(rand.Reader, p.group)

	decom := newDecommit(session, p.id, public, *precom.Commitment())
	commit, err := decom.commit()
	if err != nil {
		return nil, err
	}

	core.Store(p.storage, storageCommit, session, p.id, commit)
	core.Store(p.storage, storageDecommit, session, p.id, decom)
	core.Store(p.storage, storageSchnorrPrecom, session, p.id, precom)
	core.Store(p.storage, storagePrivateShare, session, p.id, NewSharePrivate(private))
	core.Store(p.storage, storagePublicShare, session, p.id, SharePublic{Participant: p.id, Share: public})

	payload, err := marshalCommit(commit)
	if err != nil {
		return nil, err
	}
	return p.bcast.GenRoundOneMessages(session, core.MessageTypeKeygenR1CommitHash, payload, broadcast.TagKeyGenR1CommitHash)
}

func (p *Participant) handleBroadcast(message *core.Message) (core.ProcessOutcome[Output], error) {
	outcome, err := p.bcast.ProcessMessage(message, struct{}{})
	if err != nil {
		return core.ProcessOutcome[Output]{}, err
	}
	out, ok := outcome.Output()
	if !ok {
		return relayOnly(outcome), nil
	}
	if out.Tag != broadcast.TagKeyGenR1CommitHash {
		return core.ProcessOutcome[Output]{}, perrors.ErrMisroutedMessage
	}

	roundOneOutcome, err := p.handleRoundOne(&out.Message)
	if err != nil {
		return core.ProcessOutcome[Output]{}, err
	}
	return roundOneOutcome.WithMessages(outcome.Messages()), nil
}

// handleRoundOne records a unanimously broadcast commitment. Once every
// other participant's commitment has arrived, round two begins. The check
// uses otherIDs because this participant's own commitment never arrives
// through broadcast: genRoundOneMessages stores it when Ready is handled,
// and messages that arrive before Ready are stashed until then.
func (p *Participant) handleRoundOne(message *core.Message) (core.ProcessOutcome[Output], error) {
	commit, err := unmarshalCommit(message.Payload)
	if err != nil {
		return core.ProcessOutcome[Output]{}, err
	}
	core.Store(p.storage, storageCommit, message.Session, message.From, commit)

	if !core.ContainsForAllIDs(p.storage, storageCommit, message.Session, p.otherIDs) {
		return core.Incomplete[Output](), nil
	}

	messages, err := p.genRoundTwoMessagesOnce(message.Session)
	if err != nil {
		return core.ProcessOutcome[Output]{}, err
	}
	if p.status == core.StatusInitialized {
		p.status = core.StatusParticipantCompletedBroadcast
	}

	stashed := p.takeStashed(message.Session, core.MessageTypeKeygenR2Decommit)
	outcome := core.Processed[Output](messages)
	for _, stashedMessage := range stashed {
		stashedOutcome, err := p.handleRoundTwo(&stashedMessage)
		if err != nil {
			return core.ProcessOutcome[Output]{}, err
		}
		outcome = outcome.WithMessages(stashedOutcome.Messages())
		if out, ok := stashedOutcome.Output(); ok {
			return core.Terminated(out).WithMessages(outcome.Messages()), nil
		}
	}
	return outcome, nil
}

func (p *Participant) genRoundTwoMessagesOnce(session core.Identifier) ([]core.Message, error) {
	if markOnce(p.storage, storageRoundTwoOnce, session, p.id) {
		return nil, nil
	}

	decom, ok := core.Retrieve[*decommit](p.storage, storageDecommit, session, p.id)
	if !ok {
		return nil, perrors.ErrMissingState
	}
	payload, err := decom.MarshalBinary()
	if err != nil {
		return nil, err
	}

	messages := make([]core.Message, 0, len(p.otherIDs))
	for _, other := range p.otherIDs {
		messages = append(messages, *core.NewMessage(core.MessageTypeKeygenR2Decommit, session, p.id, other, payload))
	}
	return messages, nil
}

// handleRoundTwo checks an opened commitment against the value recorded in
// round one. If any commitment (including this participant's own) is still
// missing, the message is stashed and replayed once round one completes.
func (p *Participant) handleRoundTwo(message *core.Message) (core.ProcessOutcome[Output], error) {
	if !core.ContainsForAllIDs(p.storage, storageCommit, message.Session, p.allIDs()) {
		p.stash(message)
		return core.Incomplete[Output](), nil
	}

	decom := &decommit{}
	if err := decom.UnmarshalBinary(p.group, message.Payload); err != nil {
		return core.ProcessOutcome[Output]{}, err
	}

	expected, ok := core.Retrieve[Commit](p.storage, storageCommit, message.Session, message.From)
	if !ok {
		return core.ProcessOutcome[Output]{}, perrors.ErrMissingState
	}
	actual, err := decom.commit()
	if err != nil {
		return core.ProcessOutcome[Output]{}, err
	}
	if !actual.Equal(expected) {
		return core.ProcessOutcome[Output]{}, perrors.ErrFailedToVerifyProof
	}

	core.Store(p.storage, storageDecommit, message.Session, message.From, decom)

	if !core.ContainsForAllIDs(p.storage, storageDecommit, message.Session, p.allIDs()) {
		return core.Incomplete[Output](), nil
	}

	messages, err := p.genRoundThreeMessagesOnce(message.Session)
	if err != nil {
		return core.ProcessOutcome[Output]{}, err
	}

	stashed := p.takeStashed(message.Session, core.MessageTypeKeygenR3Proofs)
	outcome := core.Processed[Output](messages)
	for _, stashedMessage := range stashed {
		stashedOutcome, err := p.handleRoundThree(&stashedMessage)
		if err != nil {
			return core.ProcessOutcome[Output]{}, err
		}
		outcome = outcome.WithMessages(stashedOutcome.Messages())
		if out, ok := stashedOutcome.Output(); ok {
			return core.Terminated(out).WithMessages(outcome.Messages()), nil
		}
	}
	return outcome, nil
}

// schnorrTranscript builds the transcript used for every participant's
// round-three Schnorr proof, seeded with the session's global rid so that
// a proof produced for one key-generation run can never be replayed
// against another.
func schnorrTranscript(globalRid [32]byte) *transcript.Transcript {
	tr := transcript.New("keygen schnorr")
	_ = tr.WriteAny(writer.BytesWithDomain{TheDomain: "keygen schnorr rid", Bytes: globalRid[:]})
	return tr
}

func (p *Participant) genRoundThreeMessagesOnce(session core.Identifier) ([]core.Message, error) {
	if markOnce(p.storage, storageRoundThreeOnce, session, p.id) {
		return nil, nil
	}

	myDecom, ok := core.Retrieve[*decommit](p.storage, storageDecommit, session, p.id)
	if !ok {
		return nil, perrors.ErrMissingState
	}
	globalRid := myDecom.Rid
	for _, other := range p.otherIDs {
		decom, ok := core.Retrieve[*decommit](p.storage, storageDecommit, session, other)
		if !ok {
			return nil, perrors.ErrMissingState
		}
		for i := range globalRid {
			globalRid[i] ^= decom.Rid[i]
		}
	}
	core.Store(p.storage, storageGlobalRid, session, p.id, globalRid)

	precom, ok := core.Retrieve[*zksch.Randomness](p.storage, storageSchnorrPrecom, session, p.id)
	if !ok {
		return nil, perrors.ErrMissingState
	}
	private, ok := core.Retrieve[*SharePrivate](p.storage, storagePrivateShare, session, p.id)
	if !ok {
		return nil, perrors.ErrMissingState
	}

	response := precom.Prove(p.group, schnorrTranscript(globalRid), myDecom.Public, private.Scalar())
	if response == nil {
		return nil, perrors.ErrCouldNotGenerateProof
	}
	proof := &zksch.Proof{C: *precom.Commitment(), Z: *response}

	payload, err := marshalSchnorrProof(proof)
	if err != nil {
		return nil, err
	}

	messages := make([]core.Message, 0, len(p.otherIDs))
	for _, other := range p.otherIDs {
		messages = append(messages, *core.NewMessage(core.MessageTypeKeygenR3Proofs, session, p.id, other, payload))
	}
	return messages, nil
}

// handleRoundThree verifies another participant's Schnorr proof of
// knowledge of its private share, and once every participant's proof
// (including this one's own share, trusted without re-proving) has been
// checked, terminates with the agreed output.
func (p *Participant) handleRoundThree(message *core.Message) (core.ProcessOutcome[Output], error) {
	globalRid, ok := core.Retrieve[[32]byte](p.storage, storageGlobalRid, message.Session, p.id)
	if !ok {
		p.stash(message)
		return core.Incomplete[Output](), nil
	}

	proof, err := unmarshalSchnorrProof(p.group, message.Payload)
	if err != nil {
		return core.ProcessOutcome[Output]{}, err
	}

	decom, ok := core.Retrieve[*decommit](p.storage, storageDecommit, message.Session, message.From)
	if !ok {
		return core.ProcessOutcome[Output]{}, perrors.ErrMissingState
	}

	if !proof.Verify(p.group, schnorrTranscript(globalRid), decom.Public) {
		return core.ProcessOutcome[Output]{}, perrors.ErrFailedToVerifyProof
	}

	core.Store(p.storage, storagePublicShare, message.Session, message.From, SharePublic{Participant: message.From, Share: decom.Public})

	if !core.ContainsForAllIDs(p.storage, storagePublicShare, message.Session, p.allIDs()) {
		return core.Incomplete[Output](), nil
	}

	publicShares := make([]SharePublic, 0, len(p.allIDs()))
	for _, id := range p.allIDs() {
		share, ok := core.Retrieve[SharePublic](p.storage, storagePublicShare, message.Session, id)
		if !ok {
			return core.ProcessOutcome[Output]{}, perrors.ErrMissingState
		}
		publicShares = append(publicShares, share)
	}
	privateShare, ok := core.Retrieve[*SharePrivate](p.storage, storagePrivateShare, message.Session, p.id)
	if !ok {
		return core.ProcessOutcome[Output]{}, perrors.ErrMissingState
	}

	p.status = core.StatusTerminatedSuccessfully
	return core.Terminated(Output{
		PublicShares: publicShares,
		PrivateShare: privateShare,
		Rid:          globalRid,
	}), nil
}

