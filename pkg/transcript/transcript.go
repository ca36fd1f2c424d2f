// Package transcript implements the Fiat-Shamir transcript used to derive
// non-interactive challenges for the zero-knowledge proofs in this module.
//
// Every value fed into the transcript is written together with a domain
// label (see internal/writer), so that two different statements can never
// collide into the same byte stream even if their serializations happen to
// coincide.
package transcript

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/boltlabs-inc/tss-ecdsa/internal/writer"
	"github.com/cronokirby/saferith"
	"github.com/zeebo/blake3"
)

// Transcript accumulates domain-separated values and produces an extendable
// output (XOF) digest used to derive Fiat-Shamir challenges.
type Transcript struct {
	h *blake3.Hasher
}

// New creates a Transcript seeded with a label identifying the proof system
// using it (e.g. "pilog" or "pimod"), so that transcripts for different
// proof systems never collide.
func New(label string) *Transcript {
	t := &Transcript{h: blake3.New()}
	_, _ = t.h.Write([]byte(label))
	return t
}

// WriteAny writes every item to the transcript as "(<domain><data>)" (see
// writer.WriteWithDomain). No length prefix is written.
func (t *Transcript) WriteAny(items ...writer.WriterToWithDomain) error {
	for _, item := range items {
		if _, err := writer.WriteWithDomain(t.h, item); err != nil {
			return err
		}
	}
	return nil
}

// WriteInt64 mixes a labelled fixed-width integer into the transcript; PiMod
// uses it for the bit length of N.
func (t *Transcript) WriteInt64(label string, v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	_, _ = t.h.Write([]byte(label))
	_, _ = t.h.Write(buf[:])
}

// Digest returns an io.Reader producing the extendable output of the
// transcript so far. Reading from it does not mutate the Transcript; call
// Clone first if further writes are expected after deriving a challenge.
func (t *Transcript) Digest() io.Reader {
	return t.h.Digest()
}

// Clone returns an independent copy of the transcript's current state, so
// that a challenge can be derived without preventing further writes to the
// original.
func (t *Transcript) Clone() *Transcript {
	return &Transcript{h: t.h.Clone()}
}

// RandomBytes fills buf with fresh randomness from crypto/rand, unrelated to
// the transcript. Its only caller is keygen, which uses it for each
// participant's rid contribution; the proof packages read crypto/rand
// directly.
func RandomBytes(buf []byte) {
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		panic(err)
	}
}

// ChallengeNat reads enough bytes from digest to produce a value in
// [0, modulus) with negligible bias. Nothing in the module calls it; PiMod
// derives its challenges with its own positiveFromTranscript.
func ChallengeNat(digest io.Reader, modulus *saferith.Modulus) *saferith.Nat {
	bitLen := modulus.Big().BitLen() + 128
	byteLen := (bitLen + 7) / 8
	buf := make([]byte, byteLen)
	if _, err := io.ReadFull(digest, buf); err != nil {
		panic(err)
	}
	raw := new(saferith.Nat).SetBytes(buf)
	return new(saferith.Nat).Mod(raw, modulus)
}
