package pilog

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/boltlabs-inc/tss-ecdsa/internal/params"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/math/curve"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/math/sample"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/paillier"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/transcript"
	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (curve.Curve, *paillier.SecretKey, *paillier.PublicKey, Public, Private, *saferith.Int) {
	t.Helper()
	group := curve.Secp256k1{}

	pk, sk := paillier.KeyGen()
	aux, _ := sk.GeneratePedersen()

	x := sample.IntervalL(rand.Reader)
	xScalar := group.NewScalar().SetNat(x.Abs())
	if x.Sign() == -1 {
		xScalar = xScalar.Negate()
	}
	dlogCommit := xScalar.Act(group.NewBasePoint())

	ciphertext, rho := pk.Enc(x)

	public := Public{
		Ciphertext: ciphertext,
		DLogCommit: dlogCommit,
		Generator:  group.NewBasePoint(),
		Prover:     pk,
		Aux:        aux,
	}
	private := Private{X: x, Rho: rho}
	return group, sk, pk, public, private, x
}

func TestPiLogProveVerify(t *testing.T) {
	group, _, _, public, private, _ := setup(t)

	proverTranscript := transcript.New("pilog-test")
	proof := NewProof(group, proverTranscript, public, private)
	require.NotNil(t, proof)

	verifierTranscript := transcript.New("pilog-test")
	assert.True(t, proof.Verify(group, verifierTranscript, public))
}

func TestPiLogRejectsMismatchedTranscript(t *testing.T) {
	group, _, _, public, private, _ := setup(t)

	proof := NewProof(group, transcript.New("pilog-test"), public, private)

	// A verifier that hashes a differently labeled transcript derives a
	// different challenge, and must reject.
	assert.False(t, proof.Verify(group, transcript.New("a-different-label"), public))
}

func TestPiLogRejectsTamperedCiphertext(t *testing.T) {
	group, _, pk, public, private, _ := setup(t)

	proof := NewProof(group, transcript.New("pilog-test"), public, private)

	otherX := sample.IntervalLEps(rand.Reader)
	otherCiphertext, _ := pk.Enc(otherX)
	tamperedPublic := public
	tamperedPublic.Ciphertext = otherCiphertext

	assert.False(t, proof.Verify(group, transcript.New("pilog-test"), tamperedPublic))
}

// TestPiLogRejectsOversizedWitness checks that a prover whose secret exceeds
// the claimed range (2^(L+Epsilon), 2^(L+Epsilon+1)] produces a proof that
// fails verification, since its response z1 cannot land within the bound
// Verify checks.
func TestPiLogRejectsOversizedWitness(t *testing.T) {
	group := curve.Secp256k1{}

	pk, sk := paillier.KeyGen()
	aux, _ := sk.GeneratePedersen()

	lo := new(big.Int).Lsh(big.NewInt(1), uint(params.LPlusEpsilon))
	hi := new(big.Int).Lsh(big.NewInt(1), uint(params.LPlusEpsilon+1))
	span := new(big.Int).Sub(hi, lo)
	offset, err := rand.Int(rand.Reader, span)
	require.NoError(t, err)
	xBig := new(big.Int).Add(lo, offset)
	xBig.Add(xBig, big.NewInt(1))

	x := new(saferith.Int).SetNat(new(saferith.Nat).SetBytes(xBig.Bytes()))

	xScalar := group.NewScalar().SetNat(x.Abs())
	dlogCommit := xScalar.Act(group.NewBasePoint())

	ciphertext, rho := pk.Enc(x)

	public := Public{
		Ciphertext: ciphertext,
		DLogCommit: dlogCommit,
		Generator:  group.NewBasePoint(),
		Prover:     pk,
		Aux:        aux,
	}
	private := Private{X: x, Rho: rho}

	proof := NewProof(group, transcript.New("pilog-test"), public, private)
	assert.False(t, proof.Verify(group, transcript.New("pilog-test"), public))
}
