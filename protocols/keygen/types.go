// Package keygen implements the distributed key generation protocol: each
// participant contributes a private key share, and the group ends up
// agreeing on every participant's public share plus a shared random value,
// without any participant learning another's private share.
//
// The protocol runs in four message rounds, built on top of a reliable
// broadcast for the first commitment round (Figure 5 of CGGMP21, "UC
// Non-Interactive, Proactive, Threshold ECDSA with Identifiable Aborts"):
//  1. Every participant broadcasts a commitment to its public key share and
//     to a Schnorr proof precommitment.
//  2. Once every commitment has arrived, each participant opens its own.
//  3. Once every opening has arrived and been checked, each participant
//     sends a Schnorr proof that it knows the private key behind its share.
//  4. Once every proof has been checked, the protocol terminates with every
//     participant's public share, this participant's private share, and a
//     random value derived from every participant's contribution.
package keygen

import (
	"fmt"

	"github.com/boltlabs-inc/tss-ecdsa/internal/core"
	"github.com/boltlabs-inc/tss-ecdsa/internal/writer"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/math/curve"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/transcript"
	zksch "github.com/boltlabs-inc/tss-ecdsa/pkg/zk/sch"
	"github.com/fxamacker/cbor/v2"
)

// Commit is a hiding, binding commitment to a Decommit, broadcast in round
// one so that every participant's opening (sent in round two) can be
// checked against what was actually agreed on.
type Commit [32]byte

// Equal reports whether two commitments are identical.
func (c Commit) Equal(other Commit) bool { return c == other }

// SharePublic is one participant's public key share, as agreed by the whole
// group once key generation terminates.
type SharePublic struct {
	Participant core.ParticipantIdentifier
	Share       curve.Point
}

// SharePrivate is this participant's own private key share. It requires
// secure persistent storage by the caller.
type SharePrivate struct {
	scalar curve.Scalar
}

// NewSharePrivate wraps scalar as a private key share.
func NewSharePrivate(scalar curve.Scalar) *SharePrivate {
	return &SharePrivate{scalar: scalar}
}

// Scalar returns the underlying private scalar.
func (s *SharePrivate) Scalar() curve.Scalar { return s.scalar }

// Scrub replaces the held scalar with the group's zero element. Go has no
// equivalent of the zeroize crate's guaranteed non-elided memory wipe; this
// is a best-effort clear for when the caller is done with the share.
func (s *SharePrivate) Scrub(group curve.Curve) {
	s.scalar = group.NewScalar()
}

// Output is what key generation produces for a single participant: every
// participant's public share (including its own), its own private share,
// and the group's agreed random value.
type Output struct {
	PublicShares []SharePublic
	PrivateShare *SharePrivate
	Rid          [32]byte
}

// PublicShareFor returns the public share belonging to id, if present.
func (o *Output) PublicShareFor(id core.ParticipantIdentifier) (SharePublic, bool) {
	for _, share := range o.PublicShares {
		if share.Participant == id {
			return share, true
		}
	}
	return SharePublic{}, false
}

// decommit is the value a round-one commitment hides, and round two opens.
type decommit struct {
	Sid           core.Identifier
	Sender        core.ParticipantIdentifier
	Rid           [32]byte
	Public        curve.Point
	Precommitment zksch.Commitment
}

// newDecommit builds a fresh round-one decommitment for sender, sampling a
// new rid contribution.
func newDecommit(sid core.Identifier, sender core.ParticipantIdentifier, public curve.Point, precommitment zksch.Commitment) *decommit {
	var rid [32]byte
	transcript.RandomBytes(rid[:])
	return &decommit{Sid: sid, Sender: sender, Rid: rid, Public: public, Precommitment: precommitment}
}

// commit produces the commitment that hides d, by hashing every field
// through a domain-separated transcript.
func (d *decommit) commit() (Commit, error) {
	tr := transcript.New("keygen decommit commitment")
	err := tr.WriteAny(
		writer.BytesWithDomain{TheDomain: "keygen decommit sid", Bytes: d.Sid[:]},
		writer.BytesWithDomain{TheDomain: "keygen decommit sender", Bytes: d.Sender[:]},
		writer.BytesWithDomain{TheDomain: "keygen decommit rid", Bytes: d.Rid[:]},
		d.Public,
		&d.Precommitment,
	)
	if err != nil {
		return Commit{}, fmt.Errorf("keygen: committing decommit: %w", err)
	}
	var out Commit
	if _, err := tr.Digest().Read(out[:]); err != nil {
		return Commit{}, fmt.Errorf("keygen: reading commitment digest: %w", err)
	}
	return out, nil
}

// wireDecommit is decommit's on-the-wire shape: every field reduced to
// plain bytes, so it can round-trip through cbor without needing a
// registered concrete type for the curve.Point/zksch.Commitment interfaces
// it carries.
type wireDecommit struct {
	Sid           []byte
	Sender        []byte
	Rid           []byte
	Public        []byte
	Precommitment []byte
}

func (d *decommit) MarshalBinary() ([]byte, error) {
	publicBytes, err := d.Public.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("keygen: marshaling decommit public share: %w", err)
	}
	precomBytes, err := d.Precommitment.C.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("keygen: marshaling decommit precommitment: %w", err)
	}
	return cbor.Marshal(wireDecommit{
		Sid:           d.Sid[:],
		Sender:        d.Sender[:],
		Rid:           d.Rid[:],
		Public:        publicBytes,
		Precommitment: precomBytes,
	})
}

func (d *decommit) UnmarshalBinary(group curve.Curve, data []byte) error {
	var w wireDecommit
	if err := cbor.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("keygen: unmarshaling decommit: %w", err)
	}
	copy(d.Sid[:], w.Sid)
	copy(d.Sender[:], w.Sender)
	copy(d.Rid[:], w.Rid)

	public := group.NewPoint()
	if err := public.UnmarshalBinary(w.Public); err != nil {
		return fmt.Errorf("keygen: unmarshaling decommit public share: %w", err)
	}
	d.Public = public

	precommitment := group.NewPoint()
	if err := precommitment.UnmarshalBinary(w.Precommitment); err != nil {
		return fmt.Errorf("keygen: unmarshaling decommit precommitment: %w", err)
	}
	d.Precommitment = zksch.Commitment{C: precommitment}
	return nil
}
