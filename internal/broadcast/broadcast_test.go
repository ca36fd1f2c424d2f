package broadcast

import (
	"testing"

	"github.com/boltlabs-inc/tss-ecdsa/internal/core"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
)

func newTrio() (core.Identifier, []core.ParticipantIdentifier, map[core.ParticipantIdentifier]*Participant) {
	session := core.NewIdentifier()
	ids := []core.ParticipantIdentifier{
		core.NewParticipantIdentifier(),
		core.NewParticipantIdentifier(),
		core.NewParticipantIdentifier(),
	}
	participants := make(map[core.ParticipantIdentifier]*Participant, len(ids))
	for _, id := range ids {
		var others []core.ParticipantIdentifier
		for _, other := range ids {
			if other != id {
				others = append(others, other)
			}
		}
		participants[id] = NewParticipant(id, others)
	}
	return session, ids, participants
}

// deliver hands each queued message, in FIFO order, to the participant it is
// addressed to, driving the echo protocol until no participant has further messages to send,
// returning every Output produced along the way.
func deliver(t *testing.T, participants map[core.ParticipantIdentifier]*Participant, queue []core.Message) []Output {
	t.Helper()
	var outputs []Output
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]

		outcome, err := participants[msg.To].ProcessMessage(&msg, struct{}{})
		require.NoError(t, err)
		if out, ok := outcome.Output(); ok {
			outputs = append(outputs, out)
		}
		queue = append(queue, outcome.Messages()...)
	}
	return outputs
}

func TestBroadcastHappyPath(t *testing.T) {
	session, ids, participants := newTrio()
	leader := ids[0]

	payload := []byte("the value everyone should agree on")
	initial, err := participants[leader].GenRoundOneMessages(session, core.MessageTypeKeygenR1CommitHash, payload, TagKeyGenR1CommitHash)
	require.NoError(t, err)

	outputs := deliver(t, participants, initial)

	// Every non-leader participant terminates with the broadcast value.
	require.Len(t, outputs, len(ids)-1)
	for _, out := range outputs {
		require.Equal(t, TagKeyGenR1CommitHash, out.Tag)
		require.Equal(t, payload, out.Message.Payload)
		require.Equal(t, core.MessageTypeKeygenR1CommitHash, out.Message.Type)
		require.Equal(t, leader, out.Message.From)
	}
}

func TestBroadcastDisagreementAborts(t *testing.T) {
	session, ids, participants := newTrio()
	leader := ids[0]

	// The leader tells one participant something different from the
	// other, simulating a malicious or faulty leader.
	honest, err := participants[leader].GenRoundOneMessages(session, core.MessageTypeKeygenR1CommitHash, []byte("honest value"), TagKeyGenR1CommitHash)
	require.NoError(t, err)

	tampered := make([]core.Message, len(honest))
	copy(tampered, honest)
	for i := range tampered {
		if tampered[i].To == ids[1] {
			d, derr := decode(&tampered[i])
			require.NoError(t, derr)
			d.Payload = []byte("a different value")
			encoded, eerr := cbor.Marshal(d)
			require.NoError(t, eerr)
			tampered[i].Payload = encoded
		}
	}

	var sawProtocolError bool
	queue := tampered
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		outcome, err := participants[msg.To].ProcessMessage(&msg, struct{}{})
		if err != nil {
			sawProtocolError = true
			continue
		}
		queue = append(queue, outcome.Messages()...)
	}
	require.True(t, sawProtocolError, "expected a disagreeing broadcast to abort with an error")
}
