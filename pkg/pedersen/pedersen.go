// Package pedersen implements ring-Pedersen commitments: commitments of the
// form S^x * T^y (mod N), where N is a Paillier-style modulus whose
// factorization need not be known to the verifier. These underpin the
// "auxiliary" commitments used by PiLog to keep its Sigma-protocol
// hiding without requiring a trusted setup beyond the prover's own key.
package pedersen

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/boltlabs-inc/tss-ecdsa/pkg/math/arith"
	"github.com/cronokirby/saferith"
)

// Parameters holds a ring-Pedersen commitment key (N, s, t).
type Parameters struct {
	n    *arith.Modulus
	s, t *saferith.Nat
}

// New constructs Parameters from a modulus and generators s, t. It does not
// check that s, t are units mod N, or that log_s(t) is unknown to the
// caller: New is used both by honest key generation (see
// paillier.SecretKey.GeneratePedersen) and when deserializing a peer's
// claimed parameters, which are validated separately by Validate.
func New(n *arith.Modulus, s, t *saferith.Nat) *Parameters {
	return &Parameters{n: n, s: s, t: t}
}

// N returns the modulus underlying these parameters.
func (p *Parameters) N() *arith.Modulus {
	return p.n
}

// S returns the s generator.
func (p *Parameters) S() *saferith.Nat {
	return p.s
}

// T returns the t generator.
func (p *Parameters) T() *saferith.Nat {
	return p.t
}

var (
	ErrParamsNil  = errors.New("ring-Pedersen parameters are nil")
	ErrSNotUnit   = errors.New("s is not a unit mod N")
	ErrTNotUnit   = errors.New("t is not a unit mod N")
	ErrSEqualsT   = errors.New("s and t must be distinct")
)

// Validate checks that s and t are units mod N, and distinct from each
// other, which is the minimum a verifier can check without knowing the
// discrete log relating them.
func (p *Parameters) Validate() error {
	if p == nil || p.n == nil || p.s == nil || p.t == nil {
		return ErrParamsNil
	}
	if p.s.IsUnit(p.n.Modulus) != 1 {
		return ErrSNotUnit
	}
	if p.t.IsUnit(p.n.Modulus) != 1 {
		return ErrTNotUnit
	}
	if p.s.Eq(p.t) == 1 {
		return ErrSEqualsT
	}
	return nil
}

// Commit computes s^x * t^y (mod N).
func (p *Parameters) Commit(x, y *saferith.Int) *saferith.Nat {
	sx := p.n.ExpI(p.s, x)
	ty := p.n.ExpI(p.t, y)
	sx.ModMul(sx, ty, p.n.Modulus)
	return sx
}

// Verify checks that s^z1 * t^z3 == commitment * opened^e (mod N), which is
// the Sigma-protocol verification equation satisfied by a correctly formed
// response (z1, z3) to challenge e, for a commitment to (alpha, gamma) and
// an earlier commitment "opened" to the secret value being range-proven.
func (p *Parameters) Verify(z1, z3, e *saferith.Int, commitment, opened *saferith.Nat) bool {
	if commitment == nil || opened == nil {
		return false
	}
	lhs := p.Commit(z1, z3)

	rhs := p.n.ExpI(opened, e)
	rhs.ModMul(rhs, commitment, p.n.Modulus)

	return lhs.Eq(rhs) == 1
}

// WriteTo implements io.WriterTo, writing N, s, and t in sequence.
func (p *Parameters) WriteTo(w io.Writer) (int64, error) {
	if p == nil {
		return 0, io.ErrUnexpectedEOF
	}
	var total int64
	for _, b := range [][]byte{p.n.Bytes(), p.s.Bytes(), p.t.Bytes()} {
		n, err := w.Write(b)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Domain implements writer.WriterToWithDomain.
func (*Parameters) Domain() string {
	return "Ring-Pedersen Parameters"
}

func (p Parameters) MarshalJSON() ([]byte, error) {
	nb, err := p.n.MarshalBinary()
	if err != nil {
		return nil, err
	}
	sb, err := p.s.MarshalBinary()
	if err != nil {
		return nil, err
	}
	tb, err := p.t.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]interface{}{
		"N": nb,
		"S": sb,
		"T": tb,
	})
}

func (p *Parameters) UnmarshalJSON(j []byte) error {
	var tmp map[string]json.RawMessage
	if err := json.Unmarshal(j, &tmp); err != nil {
		return fmt.Errorf("pedersen parameters unmarshal: %w", err)
	}
	var nb, sb, tb []byte
	if err := json.Unmarshal(tmp["N"], &nb); err != nil {
		return err
	}
	if err := json.Unmarshal(tmp["S"], &sb); err != nil {
		return err
	}
	if err := json.Unmarshal(tmp["T"], &tb); err != nil {
		return err
	}

	n := &arith.Modulus{}
	if err := n.UnmarshalBinary(nb); err != nil {
		return err
	}
	p.n = n
	p.s = new(saferith.Nat).SetBytes(sb)
	p.t = new(saferith.Nat).SetBytes(tb)
	return nil
}
