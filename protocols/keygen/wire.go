package keygen

import (
	"fmt"

	"github.com/boltlabs-inc/tss-ecdsa/pkg/math/curve"
	zksch "github.com/boltlabs-inc/tss-ecdsa/pkg/zk/sch"
	"github.com/fxamacker/cbor/v2"
)

func marshalCommit(c Commit) ([]byte, error) {
	data, err := cbor.Marshal(c[:])
	if err != nil {
		return nil, fmt.Errorf("keygen: encoding commitment: %w", err)
	}
	return data, nil
}

func unmarshalCommit(data []byte) (Commit, error) {
	var raw []byte
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return Commit{}, fmt.Errorf("keygen: decoding commitment: %w", err)
	}
	var c Commit
	copy(c[:], raw)
	return c, nil
}

// wireSchnorrProof is zksch.Proof's on-the-wire shape: its curve.Point and
// curve.Scalar fields reduced to plain bytes, for the same reason decommit
// needs wireDecommit.
type wireSchnorrProof struct {
	Commitment []byte
	Response   []byte
}

func marshalSchnorrProof(proof *zksch.Proof) ([]byte, error) {
	commitmentBytes, err := proof.C.C.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("keygen: encoding schnorr commitment: %w", err)
	}
	responseBytes, err := proof.Z.Z.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("keygen: encoding schnorr response: %w", err)
	}
	data, err := cbor.Marshal(wireSchnorrProof{Commitment: commitmentBytes, Response: responseBytes})
	if err != nil {
		return nil, fmt.Errorf("keygen: encoding schnorr proof: %w", err)
	}
	return data, nil
}

func unmarshalSchnorrProof(group curve.Curve, data []byte) (*zksch.Proof, error) {
	var w wireSchnorrProof
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("keygen: decoding schnorr proof: %w", err)
	}

	commitment := group.NewPoint()
	if err := commitment.UnmarshalBinary(w.Commitment); err != nil {
		return nil, fmt.Errorf("keygen: decoding schnorr commitment: %w", err)
	}
	response := group.NewScalar()
	if err := response.UnmarshalBinary(w.Response); err != nil {
		return nil, fmt.Errorf("keygen: decoding schnorr response: %w", err)
	}

	return &zksch.Proof{
		C: zksch.Commitment{C: commitment},
		Z: zksch.Response{Z: response},
	}, nil
}
