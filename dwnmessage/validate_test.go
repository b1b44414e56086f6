package dwnmessage

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dwnlabs/dwn-core/dwnerrors"
	"github.com/dwnlabs/dwn-core/jws"
)

// TestSelfValidateRejectsRootDateMismatch exercises the root branch of
// SelfValidate directly (package-internal, so it can sign a descriptor
// whose dateCreated/dateModified already diverge before CreateRoot's
// normal construction path would ever allow it).
func TestSelfValidateRejectsRootDateMismatch(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	persona := jws.Persona{DID: "did:example:alice", KeyID: "key-1", Ed25519Key: priv}

	dataCID, err := ComputeDataCID([]byte(`{"text":"hello"}`))
	require.NoError(t, err)

	descriptor := Descriptor{
		Method:       MethodCollectionsWrite,
		Recipient:    "did:example:bob",
		Schema:       "https://schemas.example/note",
		DataCID:      dataCID,
		DataFormat:   "application/json",
		DateCreated:  "2026-01-01T00:00:00.000000Z",
		DateModified: "2026-01-02T00:00:00.000000Z",
	}

	recordID, err := ComputeRootRecordID(descriptor, persona.DID)
	require.NoError(t, err)

	authorization, err := signAuthorization(descriptor, recordID, "", persona)
	require.NoError(t, err)

	msg := &Message{
		RecordID:      recordID,
		Descriptor:    descriptor,
		Authorization: authorization,
		EncodedData:   []byte(`{"text":"hello"}`),
		Author:        persona.DID,
	}

	result := SelfValidate(msg, SelfValidateOptions{})
	require.Equal(t, dwnerrors.RootDateMismatch(), result)
}
