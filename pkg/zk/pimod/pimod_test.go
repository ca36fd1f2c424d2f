package pimod

import (
	"math/big"
	"testing"

	"github.com/boltlabs-inc/tss-ecdsa/internal/params"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testP and testQ are small Blum primes (both ≡ 3 mod 4) that keep the
// helper tests' arithmetic checkable by hand. They are too small for a whole
// proof: with N = 209, one of the SecBits challenges y almost surely shares
// a factor with N, and NewProof then fails. The proof tests use blumP and
// blumQ, two Blum primes just below 2^62.
var (
	testP = big.NewInt(11)
	testQ = big.NewInt(19)

	blumP = big.NewInt(4611686018427387847)
	blumQ = big.NewInt(4611684918915759959)
	blumN = new(big.Int).Mul(blumP, blumQ)
)

func TestPiModProveVerify(t *testing.T) {
	public := Public{N: blumN}
	private := Private{P: blumP, Q: blumQ}

	proof, err := NewProof(transcript.New("pimod-test"), public, private)
	require.NoError(t, err)
	require.Len(t, proof.Elements, params.SecBits)

	assert.NoError(t, proof.Verify(transcript.New("pimod-test"), public))
}

func TestPiModRejectsMismatchedTranscript(t *testing.T) {
	public := Public{N: blumN}
	private := Private{P: blumP, Q: blumQ}

	proof, err := NewProof(transcript.New("pimod-test"), public, private)
	require.NoError(t, err)

	err = proof.Verify(transcript.New("a-different-label"), public)
	assert.ErrorIs(t, err, ErrChallengeMismatch)
}

func TestPiModRejectsWrongElementCount(t *testing.T) {
	public := Public{N: blumN}
	private := Private{P: blumP, Q: blumQ}

	proof, err := NewProof(transcript.New("pimod-test"), public, private)
	require.NoError(t, err)

	proof.Elements = proof.Elements[:len(proof.Elements)-1]
	err = proof.Verify(transcript.New("pimod-test"), public)
	assert.ErrorIs(t, err, ErrWrongElementCount)
}

func TestPiModRejectsEvenModulus(t *testing.T) {
	public := Public{N: big.NewInt(4)}
	proof := &Proof{W: big.NewInt(1), Elements: make([]element, params.SecBits)}

	err := proof.Verify(transcript.New("pimod-test"), public)
	assert.ErrorIs(t, err, ErrNIsEven)
}

func TestPiModRejectsPrimeModulus(t *testing.T) {
	public := Public{N: big.NewInt(23)}
	proof := &Proof{W: big.NewInt(1), Elements: make([]element, params.SecBits)}

	err := proof.Verify(transcript.New("pimod-test"), public)
	assert.ErrorIs(t, err, ErrNIsPrime)
}

func TestJacobiAndSquareRoots(t *testing.T) {
	// 4 is a quadratic residue mod the prime 11, with square roots 2 and 9.
	r, negR, err := squareRootsModPrime(big.NewInt(4), testP)
	require.NoError(t, err)
	assert.Equal(t, 1, jacobi(big.NewInt(4), testP))
	roots := map[string]bool{r.String(): true, negR.String(): true}
	assert.True(t, roots["2"])
	assert.True(t, roots["9"])
}

func TestChineseRemainder(t *testing.T) {
	x, err := chineseRemainder(big.NewInt(2), big.NewInt(3), testP, testQ)
	require.NoError(t, err)
	assert.Equal(t, int64(2), new(big.Int).Mod(x, testP).Int64())
	assert.Equal(t, int64(3), new(big.Int).Mod(x, testQ).Int64())
}
