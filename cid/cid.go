// Package cid implements deterministic CBOR encoding and content-address
// derivation (C1). Every other component compares CIDs as the textual,
// base-encoded string returned by Sum; never compare raw bytes.
package cid

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	gocid "github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// rawCodec is the multicodec used for CIDs in this module. Records are
// opaque CBOR blobs to every consumer outside this package, so the raw
// binary codec is accurate: nothing downstream parses CID bytes as DAG-CBOR.
const rawCodec = 0x55 // raw, per the multicodec table

var encMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cid: invalid canonical cbor options: %v", err))
	}

	encMode = mode
}

// Encode deterministically serializes v as CBOR: sorted map keys,
// canonical integer encodings, no indefinite-length forms (RFC 8949
// §4.2.1). Equal inputs always yield byte-identical output.
func Encode(v any) ([]byte, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cid: failed to encode value: %w", err)
	}

	return b, nil
}

// Sum computes the content identifier of v: SHA-256 over Encode(v),
// wrapped as a CIDv1 with the raw codec.
func Sum(v any) (gocid.Cid, error) {
	b, err := Encode(v)
	if err != nil {
		return gocid.Undef, err
	}

	return SumBytes(b)
}

// SumBytes computes the CID of already-encoded bytes directly, used when
// the caller has independently-canonical bytes (e.g. encodedData).
func SumBytes(b []byte) (gocid.Cid, error) {
	digest := sha256.Sum256(b)

	mh, err := multihash.Encode(digest[:], multihash.SHA2_256)
	if err != nil {
		return gocid.Undef, fmt.Errorf("cid: failed to build multihash: %w", err)
	}

	return gocid.NewCidV1(rawCodec, mh), nil
}

// String is a convenience wrapper returning the canonical textual form
// (base32) used for every comparison elsewhere in the spec.
func String(v any) (string, error) {
	c, err := Sum(v)
	if err != nil {
		return "", err
	}

	return c.String(), nil
}

// Equal compares two textual CIDs by their canonical parsed form rather
// than raw string equality, so differing base encodings of the same CID
// still compare equal.
func Equal(a, b string) (bool, error) {
	ca, err := gocid.Decode(a)
	if err != nil {
		return false, fmt.Errorf("cid: invalid cid %q: %w", a, err)
	}

	cb, err := gocid.Decode(b)
	if err != nil {
		return false, fmt.Errorf("cid: invalid cid %q: %w", b, err)
	}

	return ca.Equals(cb), nil
}

// Less reports whether a sorts lexicographically before b as strings,
// the same ordering store.Supersedes applies directly in the conflict
// rule's CID tie-break (spec §4.7 step 7).
func Less(a, b string) bool {
	return a < b
}
