package arith

import (
	"github.com/boltlabs-inc/tss-ecdsa/internal/params"
	"github.com/cronokirby/saferith"
)

// IsValidNatModN reports whether x is a valid element of Z_n, i.e. strictly
// less than n. Proofs use this to reject malformed responses before doing
// any further arithmetic with them.
func IsValidNatModN(n *saferith.Modulus, x *saferith.Nat) bool {
	if x == nil {
		return false
	}
	_, _, lt := x.CmpMod(n)
	return lt == 1
}

// IsInIntervalLEps reports whether x lies in the range claimed by a prover
// demonstrating that a secret lies in [-2^L, 2^L]: the wider range
// [-2^(L+Epsilon), 2^(L+Epsilon)].
func IsInIntervalLEps(x *saferith.Int) bool {
	if x == nil {
		return false
	}
	bound := new(saferith.Nat).SetUint64(1)
	bound.Lsh(bound, params.LPlusEpsilon, -1)
	gt, _, _ := x.Abs().Cmp(bound)
	return gt != 1
}
