// Package arith wraps saferith.Modulus to provide accelerated exponentiation
// when the factorization of the modulus is known, following the same
// Modulus/CRT split used throughout the Paillier and Pedersen packages.
package arith

import (
	"github.com/cronokirby/saferith"
)

// Modulus wraps saferith.Modulus, optionally caching the prime factorization
// so that exponentiation can use the Chinese Remainder Theorem.
type Modulus struct {
	// Modulus is the plain modulus, usable directly for arithmetic not
	// involving exponentiation.
	Modulus *saferith.Modulus
	// p, q are the prime factors, when known. nil otherwise.
	p, q *saferith.Nat
	// pMod, qMod are moduli built from p and q, cached to avoid rebuilding
	// them on every exponentiation.
	pMod, qMod *saferith.Modulus
}

// ModulusFromN wraps an already constructed saferith.Modulus, without any
// known factorization.
func ModulusFromN(n *saferith.Modulus) *Modulus {
	return &Modulus{Modulus: n}
}

// ModulusFromFactors creates a Modulus for n = p*q, caching p and q so that
// Exp and ExpI can use the CRT to speed up exponentiation.
func ModulusFromFactors(p, q *saferith.Nat) *Modulus {
	n := new(saferith.Nat).Mul(p, q, -1)
	return &Modulus{
		Modulus: saferith.ModulusFromNat(n),
		p:       p,
		q:       q,
		pMod:    saferith.ModulusFromNat(p),
		qMod:    saferith.ModulusFromNat(q),
	}
}

// Nat returns the modulus as a saferith.Nat.
func (m *Modulus) Nat() *saferith.Nat {
	return m.Modulus.Nat()
}

// Bytes returns the big-endian encoding of the modulus.
func (m *Modulus) Bytes() []byte {
	return m.Modulus.Bytes()
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (m *Modulus) MarshalBinary() ([]byte, error) {
	return m.Modulus.MarshalBinary()
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The resulting
// Modulus has no known factorization, so exponentiation falls back to plain
// modular exponentiation.
func (m *Modulus) UnmarshalBinary(data []byte) error {
	m.Modulus = saferith.ModulusFromNat(new(saferith.Nat).SetBytes(data))
	return nil
}

// Cmp compares x to m, in the sense of saferith.Nat.CmpMod.
func (m *Modulus) Cmp(x *saferith.Nat) (int, int, int) {
	return x.CmpMod(m.Modulus)
}

// IsPrime reports whether m was recorded as a single known prime, i.e. p is
// set and q is not.
func (m *Modulus) IsPrime() bool {
	return m.p != nil && m.q == nil
}

// HasFactorization reports whether m was constructed via ModulusFromFactors.
func (m *Modulus) HasFactorization() bool {
	return m.p != nil && m.q != nil
}

// Exp calculates base^e (mod modulus), using the CRT when the factorization
// is known.
func (m *Modulus) Exp(base *saferith.Nat, e *saferith.Nat) *saferith.Nat {
	if !m.HasFactorization() {
		return new(saferith.Nat).Exp(base, e, m.Modulus)
	}
	xP := new(saferith.Nat).Exp(base, e, m.pMod)
	xQ := new(saferith.Nat).Exp(base, e, m.qMod)
	return crt(xP, xQ, m.p, m.q, m.Modulus)
}

// ExpI calculates base^e (mod modulus), for a signed exponent e.
func (m *Modulus) ExpI(base *saferith.Nat, e *saferith.Int) *saferith.Nat {
	eNeg, eAbs := e.Sign(), e.Abs()
	out := m.Exp(base, eAbs)
	if eNeg == -1 {
		out = new(saferith.Nat).ModInverse(out, m.Modulus)
	}
	return out
}

func crt(xP, xQ, p, q *saferith.Nat, n *saferith.Modulus) *saferith.Nat {
	// x = xP + p * ((xQ - xP) * p^-1 mod q)
	pMod := saferith.ModulusFromNat(q)
	pInv := new(saferith.Nat).ModInverse(p, pMod)
	diff := new(saferith.Nat).ModSub(xQ, xP, pMod)
	h := new(saferith.Nat).ModMul(diff, pInv, pMod)
	x := new(saferith.Nat).Mul(p, h, -1)
	x.Add(x, xP, -1)
	return new(saferith.Nat).Mod(x, n)
}
