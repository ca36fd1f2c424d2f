// Package curve abstracts over the elliptic curve group used by the key
// generation protocol, so that the rest of the module never refers to
// secp256k1 types directly.
package curve

import (
	"io"

	"github.com/cronokirby/saferith"
)

// Curve represents a group in which we can do aritmetic, to be used for
// ECDSA. This interface is tailored to the secp256k1 curve, but could be
// generalized to other Weierstrass curves with minor changes.
type Curve interface {
	// NewPoint returns the identity element of the group.
	NewPoint() Point
	// NewBasePoint returns the generator of the group.
	NewBasePoint() Point
	// NewScalar returns the additive identity of the scalar field.
	NewScalar() Scalar
	// ScalarBits returns the number of bits needed to represent a scalar.
	ScalarBits() int
	// SafeScalarBytes returns the number of bytes sufficient to sample a
	// scalar with negligible bias.
	SafeScalarBytes() int
	// Order returns the order of the group, as a modulus suitable for
	// arithmetic on scalars.
	Order() *saferith.Modulus
	// Name returns a human readable, unique identifier for this curve.
	Name() string
}

// Scalar represents an element of the scalar field of a Curve.
type Scalar interface {
	Curve() Curve

	MarshalBinary() ([]byte, error)
	UnmarshalBinary([]byte) error

	Add(Scalar) Scalar
	Sub(Scalar) Scalar
	Mul(Scalar) Scalar
	Invert() Scalar
	Negate() Scalar
	IsOverHalfOrder() bool
	Equal(Scalar) bool
	IsZero() bool
	Set(Scalar) Scalar
	SetNat(*saferith.Nat) Scalar

	// Act returns the result of acting on a Point by scalar multiplication.
	Act(Point) Point
	// ActOnBase returns the result of acting on the curve's generator.
	ActOnBase() Point
}

// Point represents an element of the group defined by a Curve.
type Point interface {
	Curve() Curve

	MarshalBinary() ([]byte, error)
	UnmarshalBinary([]byte) error

	// WriteTo and Domain let a Point be fed directly into a Fiat-Shamir
	// transcript alongside other domain-separated values.
	io.WriterTo
	Domain() string

	XBytes() []byte
	YBytes() []byte

	Add(Point) Point
	Sub(Point) Point
	Set(Point) Point
	Negate() Point
	Equal(Point) bool
	IsIdentity() bool
	HasEvenY() bool

	// XScalar returns the x coordinate of this point, reduced modulo the
	// order of the group, as a Scalar. Used when deriving the Schnorr-style
	// challenge for a signature.
	XScalar() Scalar
}
