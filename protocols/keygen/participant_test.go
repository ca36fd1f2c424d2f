package keygen

import (
	"testing"

	"github.com/boltlabs-inc/tss-ecdsa/internal/core"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/math/curve"
	"github.com/stretchr/testify/require"
)

func newQuorum(group curve.Curve) (core.Identifier, []core.ParticipantIdentifier, map[core.ParticipantIdentifier]*Participant) {
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
		participants[id] = NewParticipant(id, others, group)
	}
	return session, ids, participants
}

// run delivers every queued message, in the order given, to its addressee,
// feeding back whatever new messages each processing step produces, until
// the queue drains. It returns every participant's terminal Output.
func run(t *testing.T, participants map[core.ParticipantIdentifier]*Participant, queue []core.Message) map[core.ParticipantIdentifier]Output {
	t.Helper()
	outputs := make(map[core.ParticipantIdentifier]Output)
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]

		outcome, err := participants[msg.To].ProcessMessage(&msg, struct{}{})
		require.NoError(t, err)
		if out, ok := outcome.Output(); ok {
			outputs[msg.To] = out
		}
		queue = append(queue, outcome.Messages()...)
	}
	return outputs
}

func assertValidOutputs(t *testing.T, group curve.Curve, ids []core.ParticipantIdentifier, outputs map[core.ParticipantIdentifier]Output) {
	t.Helper()
	require.Len(t, outputs, len(ids), "every participant must terminate with an output")

	var rid [32]byte
	first := true
	for _, id := range ids {
		out, ok := outputs[id]
		require.True(t, ok, "missing output for participant %s", id)
		require.Len(t, out.PublicShares, len(ids))

		if first {
			rid = out.Rid
			first = false
		} else {
			require.Equal(t, rid, out.Rid, "every participant must agree on the shared random value")
		}

		for _, other := range ids {
			share, ok := out.PublicShareFor(other)
			require.True(t, ok, "output for %s is missing a public share for %s", id, other)
			if other == id {
				require.True(t, out.PrivateShare.Scalar().ActOnBase().Equal(share.Share),
					"own public share must match the point derived from the own private share")
			}
		}
	}

	// Every participant must agree on every public share, not merely carry
	// one of the same length.
	for _, target := range ids {
		var reference curve.Point
		for _, id := range ids {
			share, ok := outputs[id].PublicShareFor(target)
			require.True(t, ok)
			if reference == nil {
				reference = share.Share
				continue
			}
			require.True(t, reference.Equal(share.Share), "disagreement on %s's public share", target)
		}
	}
}

func TestKeygenHappyPath(t *testing.T) {
	group := curve.Secp256k1{}
	session, ids, participants := newQuorum(group)

	var queue []core.Message
	for _, id := range ids {
		queue = append(queue, *ReadyMessage(session, id))
	}

	outputs := run(t, participants, queue)
	assertValidOutputs(t, group, ids, outputs)
}

// runStack delivers messages last-in-first-out rather than in FIFO order,
// forcing whichever message a processing step just produced to be
// redelivered immediately instead of waiting behind everything already
// queued. Mixed with the broadcast layer's own multi-hop echo, this
// reliably produces later-round messages (round two, round three) arriving
// at a participant before its own round-one (or round-two) completeness
// check has been satisfied, exercising the stash/takeStashed path.
func runStack(t *testing.T, participants map[core.ParticipantIdentifier]*Participant, queue []core.Message) map[core.ParticipantIdentifier]Output {
	t.Helper()
	outputs := make(map[core.ParticipantIdentifier]Output)
	for len(queue) > 0 {
		last := len(queue) - 1
		msg := queue[last]
		queue = queue[:last]

		outcome, err := participants[msg.To].ProcessMessage(&msg, struct{}{})
		require.NoError(t, err)
		if out, ok := outcome.Output(); ok {
			outputs[msg.To] = out
		}
		queue = append(queue, outcome.Messages()...)
	}
	return outputs
}

// TestKeygenStashedOutOfOrderMessages delivers every participant's Ready
// message, then drives the rest of the run with out-of-order delivery,
// forcing round-two and round-three messages to arrive at participants that
// have not yet finished the prerequisite round, and checking they are
// correctly stashed and replayed once that round completes.
func TestKeygenStashedOutOfOrderMessages(t *testing.T) {
	group := curve.Secp256k1{}
	session, ids, participants := newQuorum(group)

	var queue []core.Message
	for _, id := range ids {
		queue = append(queue, *ReadyMessage(session, id))
	}

	outputs := runStack(t, participants, queue)
	assertValidOutputs(t, group, ids, outputs)
}
