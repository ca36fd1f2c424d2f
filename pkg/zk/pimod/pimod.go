// Package pimod implements a zero-knowledge proof that a Paillier modulus N
// is the product of two Blum primes (primes congruent to 3 mod 4), as
// defined in Figure 16 of CGGMP21 ("UC Non-Interactive, Proactive,
// Threshold ECDSA with Identifiable Aborts").
//
// Unlike the rest of this module's arithmetic, this proof is built on
// math/big rather than saferith: its core operations (Jacobi symbols,
// modular square roots, the extended Euclidean algorithm, and CRT
// reconstruction) have no constant-time requirement, since N, p, and q are
// either public or this is the one place p and q are used in non-constant
// time number-theoretic routines that saferith does not provide.
package pimod

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/boltlabs-inc/tss-ecdsa/internal/params"
	"github.com/boltlabs-inc/tss-ecdsa/internal/writer"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/transcript"
)

var (
	// ErrWrongElementCount is returned when a proof does not carry exactly
	// params.SecBits rounds, which would make it unsound.
	ErrWrongElementCount = errors.New("pimod: proof has the wrong number of elements")
	// ErrNIsEven is returned when the modulus under proof is even.
	ErrNIsEven = errors.New("pimod: modulus is even")
	// ErrNIsPrime is returned when the modulus under proof is prime, and so
	// cannot be a Blum modulus (a product of two distinct primes).
	ErrNIsPrime = errors.New("pimod: modulus is prime")
	// ErrChallengeMismatch is returned when the included y value does not
	// match what the Fiat-Shamir transcript derives.
	ErrChallengeMismatch = errors.New("pimod: y does not match Fiat-Shamir challenge")
	// ErrVerifyFailed is a catch-all for the per-round algebraic checks.
	ErrVerifyFailed = errors.New("pimod: verification equation failed")
	// ErrCouldNotProve is returned by the prover when its (p, q) witness
	// does not actually satisfy the properties this proof assumes.
	ErrCouldNotProve = errors.New("pimod: could not construct proof from the given witness")
)

// Public is the modulus being proven to be a Blum modulus.
type Public struct {
	N *big.Int
}

// Private is the prover's factorization of Public.N.
type Private struct {
	P, Q *big.Int
}

// element is a single round's worth of proof material: the fourth root x
// of y' = (-1)^a * w^b * y, together with the N-th root z of y itself.
type element struct {
	X    *big.Int
	A, B bool
	Z    *big.Int
	Y    *big.Int
}

// Proof is a non-interactive PiMod proof, consisting of params.SecBits
// independent Fiat-Shamir rounds.
type Proof struct {
	W        *big.Int
	Elements []element
}

func bnMod(n, m *big.Int) *big.Int {
	r := new(big.Int).Mod(n, m)
	return r
}

// jacobi computes the Jacobi symbol (numerator/denominator), where
// denominator must be positive and odd.
func jacobi(numerator, denominator *big.Int) int {
	return big.Jacobi(numerator, denominator)
}

// squareRootsModPrime finds r such that r^2 = n (mod p), for a prime p = 3
// (mod 4), along with its negation.
func squareRootsModPrime(n, p *big.Int) (*big.Int, *big.Int, error) {
	exp := new(big.Int).Add(p, big.NewInt(1))
	exp.Div(exp, big.NewInt(4))
	r := new(big.Int).Exp(n, exp, p)
	negR := new(big.Int).Neg(r)
	negR.Mod(negR, p)

	check := new(big.Int).Exp(r, big.NewInt(2), p)
	if check.Cmp(bnMod(n, p)) != 0 {
		return nil, nil, ErrCouldNotProve
	}
	return r, negR, nil
}

// extendedEuclidean finds x, y such that a*x + b*y = 1, returning an error
// if a and b are not coprime.
func extendedEuclidean(a, b *big.Int) (*big.Int, *big.Int, error) {
	gcd, x, y := new(big.Int), new(big.Int), new(big.Int)
	gcd.GCD(x, y, a, b)
	if gcd.Cmp(big.NewInt(1)) != 0 {
		return nil, nil, ErrCouldNotProve
	}
	return x, y, nil
}

// chineseRemainder finds the unique x in [0, p*q) with x = a1 (mod p) and
// x = a2 (mod q).
func chineseRemainder(a1, a2, p, q *big.Int) (*big.Int, error) {
	if a1.Sign() < 0 || a1.Cmp(p) >= 0 || a2.Sign() < 0 || a2.Cmp(q) >= 0 {
		return nil, ErrCouldNotProve
	}
	z, w, err := extendedEuclidean(p, q)
	if err != nil {
		return nil, err
	}
	x := new(big.Int)
	x.Add(x, new(big.Int).Mul(new(big.Int).Mul(a1, w), q))
	x.Add(x, new(big.Int).Mul(new(big.Int).Mul(a2, z), p))
	pq := new(big.Int).Mul(p, q)
	return bnMod(x, pq), nil
}

// squareRootsModComposite finds the (up to) four x such that x^2 = n (mod
// p*q), for distinct primes p, q = 3 (mod 4).
func squareRootsModComposite(n, p, q *big.Int) ([4]*big.Int, error) {
	var out [4]*big.Int
	y1, y2, err := squareRootsModPrime(n, p)
	if err != nil {
		return out, err
	}
	z1, z2, err := squareRootsModPrime(n, q)
	if err != nil {
		return out, err
	}
	combos := [4][2]*big.Int{{y1, z1}, {y1, z2}, {y2, z1}, {y2, z2}}
	for i, c := range combos {
		x, err := chineseRemainder(c[0], c[1], p, q)
		if err != nil {
			return out, err
		}
		out[i] = x
	}
	return out, nil
}

// fourthRootsModComposite finds every x such that x^4 = n (mod p*q).
func fourthRootsModComposite(n, p, q *big.Int) []*big.Int {
	var roots []*big.Int
	squares, err := squareRootsModComposite(n, p, q)
	if err != nil {
		return nil
	}
	for _, x := range squares {
		inner, err := squareRootsModComposite(x, p, q)
		if err != nil {
			continue
		}
		roots = append(roots, inner[:]...)
	}
	return roots
}

// yPrimeFromY computes y' = (-1)^a * w^b * y (mod N).
func yPrimeFromY(y, w *big.Int, a, b bool, n *big.Int) *big.Int {
	yPrime := new(big.Int).Set(y)
	if b {
		yPrime.Mul(yPrime, w)
		yPrime.Mod(yPrime, n)
	}
	if a {
		yPrime.Neg(yPrime)
		yPrime.Mod(yPrime, n)
	}
	return yPrime
}

// yPrimeCombinations finds the unique a, b in {0,1} such that y' = (-1)^a *
// w^b * y has a fourth root mod p*q, and returns that root together with a
// and b.
func yPrimeCombinations(w, y, p, q *big.Int) (a, b bool, x *big.Int, err error) {
	n := new(big.Int).Mul(p, q)
	found := 0
	for _, ca := range []bool{false, true} {
		for _, cb := range []bool{false, true} {
			yPrime := yPrimeFromY(y, w, ca, cb, n)
			roots := fourthRootsModComposite(yPrime, p, q)
			if len(roots) > 0 {
				found++
				a, b, x = ca, cb, roots[0]
			}
		}
	}
	if found != 1 {
		return false, false, nil, ErrCouldNotProve
	}
	return a, b, x, nil
}

// positiveFromTranscript reads a value in [0, n) from digest, with
// negligible statistical bias.
func positiveFromTranscript(digest io.Reader, n *big.Int) *big.Int {
	byteLen := (n.BitLen()+7)/8 + params.SecBits/8
	buf := make([]byte, byteLen)
	if _, err := io.ReadFull(digest, buf); err != nil {
		panic(err)
	}
	raw := new(big.Int).SetBytes(buf)
	return raw.Mod(raw, n)
}

// randomPositive samples a value in [1, n) uniformly using rnd.
func randomPositive(rnd io.Reader, n *big.Int) *big.Int {
	for {
		x, err := rand.Int(rnd, n)
		if err != nil {
			panic(err)
		}
		if x.Sign() != 0 {
			return x
		}
	}
}

// NewProof proves that public.N = private.P * private.Q, where P and Q are
// Blum primes, using tr to derive the Fiat-Shamir challenges.
func NewProof(tr *transcript.Transcript, public Public, private Private) (*Proof, error) {
	w := randomPositive(rand.Reader, public.N)
	for jacobi(w, public.N) != -1 {
		w = randomPositive(rand.Reader, public.N)
	}

	t := tr.Clone()
	t.WriteInt64("N.BitLen", int64(public.N.BitLen()))
	_ = t.WriteAny(
		writer.BytesWithDomain{TheDomain: "PiMod Modulus N", Bytes: public.N.Bytes()},
		writer.BytesWithDomain{TheDomain: "PiMod Witness W", Bytes: w.Bytes()},
	)

	phiN := new(big.Int).Mul(
		new(big.Int).Sub(private.P, big.NewInt(1)),
		new(big.Int).Sub(private.Q, big.NewInt(1)),
	)
	exp := new(big.Int).ModInverse(public.N, phiN)
	if exp == nil {
		return nil, ErrCouldNotProve
	}

	digest := t.Digest()

	elements := make([]element, params.SecBits)
	for i := 0; i < params.SecBits; i++ {
		y := positiveFromTranscript(digest, public.N)
		a, b, x, err := yPrimeCombinations(w, y, private.P, private.Q)
		if err != nil {
			return nil, fmt.Errorf("pimod: round %d: %w", i, err)
		}
		z := new(big.Int).Exp(y, exp, public.N)
		elements[i] = element{X: x, A: a, B: b, Z: z, Y: y}
	}

	return &Proof{W: w, Elements: elements}, nil
}

// Verify checks that p is a valid PiMod proof of public, using tr to
// re-derive the Fiat-Shamir challenges.
func (p *Proof) Verify(tr *transcript.Transcript, public Public) error {
	if len(p.Elements) != params.SecBits {
		return ErrWrongElementCount
	}
	if public.N.Bit(0) == 0 {
		return ErrNIsEven
	}
	if public.N.ProbablyPrime(20) {
		return ErrNIsPrime
	}

	t := tr.Clone()
	t.WriteInt64("N.BitLen", int64(public.N.BitLen()))
	_ = t.WriteAny(
		writer.BytesWithDomain{TheDomain: "PiMod Modulus N", Bytes: public.N.Bytes()},
		writer.BytesWithDomain{TheDomain: "PiMod Witness W", Bytes: p.W.Bytes()},
	)
	digest := t.Digest()

	for _, el := range p.Elements {
		y := positiveFromTranscript(digest, public.N)
		if y.Cmp(el.Y) != 0 {
			return ErrChallengeMismatch
		}

		yCandidate := new(big.Int).Exp(el.Z, public.N, public.N)
		if el.Y.Cmp(yCandidate) != 0 {
			return ErrVerifyFailed
		}

		yPrime := yPrimeFromY(el.Y, p.W, el.A, el.B, public.N)
		xFourth := new(big.Int).Exp(el.X, big.NewInt(4), public.N)
		if xFourth.Cmp(yPrime) != 0 {
			return ErrVerifyFailed
		}
	}

	return nil
}
