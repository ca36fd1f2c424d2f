// Package pilog implements a zero-knowledge proof that a discrete log
// commitment and a Paillier encryption contain the same underlying
// plaintext, and that the plaintext falls within a given range.
//
// The proof is defined in Figure 25 of CGGMP21 ("UC Non-Interactive,
// Proactive, Threshold ECDSA with Identifiable Aborts"), and uses the
// Fiat-Shamir transform to make it non-interactive.
package pilog

import (
	"crypto/rand"
	"encoding/json"

	"github.com/boltlabs-inc/tss-ecdsa/internal/params"
	"github.com/boltlabs-inc/tss-ecdsa/internal/writer"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/math/arith"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/math/curve"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/math/sample"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/paillier"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/pedersen"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/transcript"
	"github.com/cronokirby/saferith"
)

// Public holds the statement being proven: that Ciphertext encrypts the
// same plaintext that DLogCommit commits to with respect to Generator, and
// that this plaintext lies in [-2^L, 2^L].
type Public struct {
	// Ciphertext = Enc_{Prover}(x; rho) (C in the paper).
	Ciphertext *paillier.Ciphertext
	// DLogCommit = x * Generator (X in the paper).
	DLogCommit curve.Point
	// Generator is the group element the discrete log is taken over (g in
	// the paper); usually the curve's base point, but kept explicit so
	// key-generation's "X_j" commitments can reuse this proof.
	Generator curve.Point

	Prover *paillier.PublicKey
	Aux    *pedersen.Parameters
}

// Private holds the prover's secret witness.
type Private struct {
	// X is the plaintext shared between the ciphertext and the discrete log
	// commitment.
	X *saferith.Int
	// Rho is the Paillier encryption nonce used to produce Public.Ciphertext.
	Rho *saferith.Nat
}

// Commitment is the first message of the Sigma protocol.
type Commitment struct {
	// S = s^x t^mu (mod Nhat): ring-Pedersen commitment to the plaintext.
	S *saferith.Nat
	// A = Enc_{Prover}(alpha; r): Paillier encryption of the mask.
	A *paillier.Ciphertext
	// Y = alpha * Generator: discrete log commitment to the mask.
	Y curve.Point
	// D = s^alpha t^gamma (mod Nhat): ring-Pedersen commitment to the mask.
	D *saferith.Nat
}

// Proof is a non-interactive PiLog proof.
type Proof struct {
	*Commitment
	// Z1 = alpha + e*x.
	Z1 *saferith.Int
	// Z2 = r * rho^e (mod N0).
	Z2 *saferith.Nat
	// Z3 = gamma + e*mu.
	Z3 *saferith.Int
}

// IsValid performs cheap structural validation of the proof's fields before
// any expensive arithmetic is attempted.
func (p *Proof) IsValid(public Public) bool {
	if p == nil || p.Commitment == nil {
		return false
	}
	if !public.Prover.ValidateCiphertexts(p.A) {
		return false
	}
	if !arith.IsValidNatModN(public.Prover.N(), p.Z2) {
		return false
	}
	if p.Y == nil {
		return false
	}
	return true
}

// NewProof produces a PiLog proof that public.Ciphertext and
// public.DLogCommit commit to the same value, using tr to derive the
// Fiat-Shamir challenge.
func NewProof(group curve.Curve, tr *transcript.Transcript, public Public, private Private) *Proof {
	N := public.Prover.N()
	NModulus := public.Prover.Modulus()

	alpha := sample.IntervalLEps(rand.Reader)
	r := sample.UnitModN(rand.Reader, N)
	mu := sample.IntervalLN(rand.Reader)
	gamma := sample.IntervalLEpsN(rand.Reader)

	A := public.Prover.EncWithNonce(alpha, r)
	alphaScalar := group.NewScalar().SetNat(alpha.Abs())
	if alpha.Sign() == -1 {
		alphaScalar = alphaScalar.Negate()
	}
	Y := alphaScalar.Act(public.Generator)

	commitment := &Commitment{
		S: public.Aux.Commit(private.X, mu),
		A: A,
		Y: Y,
		D: public.Aux.Commit(alpha, gamma),
	}

	e := challenge(tr, group, public, commitment)

	z1 := new(saferith.Int).Mul(e, private.X, -1)
	z1.Add(z1, alpha, -1)

	z2 := NModulus.ExpI(private.Rho, e)
	z2.ModMul(z2, r, N)

	z3 := new(saferith.Int).Mul(e, mu, -1)
	z3.Add(z3, gamma, -1)

	return &Proof{
		Commitment: commitment,
		Z1:         z1,
		Z2:         z2,
		Z3:         z3,
	}
}

// Verify checks that p is a valid proof of Public.
func (p *Proof) Verify(group curve.Curve, tr *transcript.Transcript, public Public) bool {
	if !p.IsValid(public) {
		return false
	}

	prover := public.Prover

	if !arith.IsInIntervalLEps(p.Z1) {
		return false
	}

	e := challenge(tr, group, public, p.Commitment)

	if !public.Aux.Verify(p.Z1, p.Z3, e, p.D, p.S) {
		return false
	}

	{
		// lhs = Enc(z1; z2)
		lhs := prover.EncWithNonce(p.Z1, p.Z2)
		// rhs = (e ⊙ Ciphertext) ⊕ A
		rhs := public.Ciphertext.Clone().Mul(prover, e).Add(prover, p.A)
		if !lhs.Equal(rhs) {
			return false
		}
	}

	{
		// lhs = z1 * Generator
		z1Abs := group.NewScalar().SetNat(p.Z1.Abs())
		if p.Z1.Sign() == -1 {
			z1Abs = z1Abs.Negate()
		}
		lhs := z1Abs.Act(public.Generator)

		// rhs = Y + e * DLogCommit
		eAbs := group.NewScalar().SetNat(e.Abs())
		if e.Sign() == -1 {
			eAbs = eAbs.Negate()
		}
		rhs := p.Y.Add(eAbs.Act(public.DLogCommit))
		if !lhs.Equal(rhs) {
			return false
		}
	}

	return true
}

func challenge(tr *transcript.Transcript, group curve.Curve, public Public, commitment *Commitment) *saferith.Int {
	t := tr.Clone()
	_ = t.WriteAny(public.Aux, public.Prover, public.Ciphertext, public.Generator, public.DLogCommit,
		writer.BytesWithDomain{TheDomain: "PiLog Commitment S", Bytes: commitment.S.Bytes()},
		commitment.A, commitment.Y,
		writer.BytesWithDomain{TheDomain: "PiLog Commitment D", Bytes: commitment.D.Bytes()})
	return sample.IntervalScalar(t.Digest(), group)
}

func (c Commitment) MarshalJSON() ([]byte, error) {
	sb, err := c.S.MarshalBinary()
	if err != nil {
		return nil, err
	}
	db, err := c.D.MarshalBinary()
	if err != nil {
		return nil, err
	}
	yb, err := c.Y.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]interface{}{
		"S": sb,
		"A": c.A,
		"Y": yb,
		"D": db,
	})
}
