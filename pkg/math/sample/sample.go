// Package sample provides the various randomized sampling routines needed
// by the Paillier cryptosystem, ring-Pedersen commitments, and the PiLog /
// PiMod zero-knowledge proofs: uniformly random units mod N, integers from
// the slack intervals used to hide a prover's secret, and curve scalars.
package sample

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/boltlabs-inc/tss-ecdsa/internal/params"
	"github.com/boltlabs-inc/tss-ecdsa/pkg/math/curve"
	"github.com/cronokirby/saferith"
)

// mustReadBits reads enough random bytes to hold bits of entropy.
func mustReadBits(rnd io.Reader, bits int) []byte {
	buf := make([]byte, (bits+7)/8)
	if _, err := io.ReadFull(rnd, buf); err != nil {
		panic(err)
	}
	return buf
}

// natFromBits samples a non-negative integer uniformly from [0, 2^bits).
func natFromBits(rnd io.Reader, bits int) *saferith.Nat {
	buf := mustReadBits(rnd, bits)
	n := new(saferith.Nat).SetBytes(buf)
	n.Rsh(n, len(buf)*8-bits, -1)
	return n
}

// UnitModN samples a unit of Z_n, i.e. an element coprime to n, by repeated
// rejection sampling.
func UnitModN(rnd io.Reader, n *saferith.Modulus) *saferith.Nat {
	bits := n.Big().BitLen()
	for {
		x := natFromBits(rnd, bits)
		_, _, lt := x.CmpMod(n)
		if lt != 1 {
			continue
		}
		if x.IsUnit(n) == 1 {
			return x
		}
	}
}

// intervalSigned samples a value in [-2^bits, 2^bits], represented as a
// signed saferith.Int.
func intervalSigned(rnd io.Reader, bits int) *saferith.Int {
	magnitude := natFromBits(rnd, bits+1)
	neg := magnitude.Byte(0) & 1
	magnitude.Rsh(magnitude, 1, -1)
	return new(saferith.Int).SetNat(magnitude).Neg(int(neg & 1))
}

// IntervalLEps samples a value in the range ± 2^(L+Epsilon), the range a
// prover claims a secret exponent lies in for the Paillier-encrypted
// statements proven by PiLog.
func IntervalLEps(rnd io.Reader) *saferith.Int {
	return intervalSigned(rnd, params.LPlusEpsilon)
}

// IntervalL samples a value in the honest range ± 2^L that a prover
// generating a well-formed secret actually draws from, as opposed to the
// wider ± 2^(L+Epsilon) range the proof merely checks against.
func IntervalL(rnd io.Reader) *saferith.Int {
	return intervalSigned(rnd, params.LEll)
}

// IntervalLN samples a value in ± 2^L * N, used to mask a ring-Pedersen
// commitment's randomness.
func IntervalLN(rnd io.Reader) *saferith.Int {
	return intervalSigned(rnd, params.LEll+params.BitsPaillier)
}

// IntervalLEpsN samples a value in ± 2^(L+Epsilon) * N, used to mask the
// ring-Pedersen commitment randomness for the wider claimed interval.
func IntervalLEpsN(rnd io.Reader) *saferith.Int {
	return intervalSigned(rnd, params.LPlusEpsilon+params.BitsPaillier)
}

// Scalar samples a uniformly random element of the scalar field of group.
func Scalar(rnd io.Reader, group curve.Curve) curve.Scalar {
	buf := mustReadBits(rnd, group.ScalarBits()+params.SecBits)
	n := new(saferith.Nat).SetBytes(buf)
	return group.NewScalar().SetNat(n)
}

// IntervalScalar samples a value used as a Fiat-Shamir challenge, reduced
// modulo the order of group but returned as a plain saferith.Int so it can
// be used in both scalar-field and Z_N arithmetic (as PiLog requires).
func IntervalScalar(rnd io.Reader, group curve.Curve) *saferith.Int {
	buf := mustReadBits(rnd, group.ScalarBits()+params.SecBits)
	n := new(saferith.Nat).SetBytes(buf)
	reduced := new(saferith.Nat).Mod(n, group.Order())
	return new(saferith.Int).SetNat(reduced)
}

// PlusMinusChallenge samples a Fiat-Shamir challenge in the symmetric range
// ± 2^SecBits. Neither PiMod nor PiLog calls it: PiLog derives its
// challenge with IntervalScalar, and PiMod derives its own from the
// transcript.
func PlusMinusChallenge(rnd io.Reader) *saferith.Int {
	return intervalSigned(rnd, params.SecBits)
}

// ScalarPointPair samples a random scalar a and returns it along with the
// point a*G, where G is the generator of group.
func ScalarPointPair(rnd io.Reader, group curve.Curve) (curve.Scalar, curve.Point) {
	a := Scalar(rnd, group)
	return a, a.ActOnBase()
}

// blumPrime samples a random prime p of params.BitsBlumPrime bits such that
// p = 3 (mod 4) and (p-1)/2 is also prime (a safe prime), matching the
// requirements checked by paillier.ValidatePrime.
func blumPrime(rnd io.Reader) *saferith.Nat {
	for {
		q, err := rand.Prime(rnd, params.BitsBlumPrime-1)
		if err != nil {
			panic(err)
		}
		p := new(big.Int).Lsh(q, 1)
		p.Add(p, big.NewInt(1))
		if p.BitLen() != params.BitsBlumPrime {
			continue
		}
		if p.Bit(0) != 1 || p.Bit(1) != 1 {
			// p = 3 (mod 4) requires the two low bits to be 1, 1.
			continue
		}
		if !p.ProbablyPrime(20) {
			continue
		}
		return new(saferith.Nat).SetBytes(p.Bytes())
	}
}

// Paillier generates a pair of safe Blum primes P, Q suitable for use as a
// Paillier modulus N = P*Q.
func Paillier(rnd io.Reader) (p, q *saferith.Nat) {
	p = blumPrime(rnd)
	for {
		q = blumPrime(rnd)
		if p.Big().Cmp(q.Big()) != 0 {
			break
		}
	}
	return
}

// Pedersen generates ring-Pedersen parameters s, t = s^lambda (mod N) for a
// Paillier modulus whose totient phi is known, along with the discrete log
// lambda relating them.
func Pedersen(rnd io.Reader, phi *saferith.Nat, n *saferith.Modulus) (s, t, lambda *saferith.Nat) {
	phiMod := saferith.ModulusFromNat(phi)
	lambda = UnitModN(rnd, phiMod)

	tau := UnitModN(rnd, n)
	s = new(saferith.Nat).ModMul(tau, tau, n)
	t = new(saferith.Nat).Exp(s, lambda, n)
	return
}
