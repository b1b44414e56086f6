package dwnmessage_test

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dwnlabs/dwn-core/dwnerrors"
	"github.com/dwnlabs/dwn-core/dwnmessage"
	"github.com/dwnlabs/dwn-core/jws"
)

func testPersona(t *testing.T) jws.Persona {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	_ = pub

	return jws.Persona{DID: "did:example:alice", KeyID: "key-1", Ed25519Key: priv}
}

func TestCreateRootSelfValidates(t *testing.T) {
	persona := testPersona(t)

	msg, err := dwnmessage.CreateRoot(dwnmessage.CreateRootOptions{
		Recipient:  "did:example:bob",
		Schema:     "https://schemas.example/note",
		DataFormat: "application/json",
		Data:       []byte(`{"text":"hello"}`),
	}, persona)
	require.NoError(t, err)
	require.NotEmpty(t, msg.RecordID)
	require.Empty(t, msg.ContextID)

	result := dwnmessage.SelfValidate(msg, dwnmessage.SelfValidateOptions{})
	require.False(t, result.IsError(), "expected OK, got %+v", result)
}

func TestCreateRootIsProtocolScoped(t *testing.T) {
	persona := testPersona(t)

	msg, err := dwnmessage.CreateRoot(dwnmessage.CreateRootOptions{
		Recipient:  "did:example:bob",
		Schema:     "https://schemas.example/note",
		DataFormat: "application/json",
		Protocol:   "https://protocols.example/chat",
		Data:       []byte(`{"text":"hello"}`),
	}, persona)
	require.NoError(t, err)
	require.NotEmpty(t, msg.ContextID)

	result := dwnmessage.SelfValidate(msg, dwnmessage.SelfValidateOptions{
		AncestorRecordIDs: []string{msg.RecordID},
	})
	require.False(t, result.IsError(), "expected OK, got %+v", result)
}

func TestCreateLineageChildPreservesRecordIDAndContext(t *testing.T) {
	persona := testPersona(t)

	root, err := dwnmessage.CreateRoot(dwnmessage.CreateRootOptions{
		Recipient:  "did:example:bob",
		Schema:     "https://schemas.example/note",
		DataFormat: "application/json",
		Data:       []byte(`{"text":"v1"}`),
	}, persona)
	require.NoError(t, err)

	child, err := dwnmessage.CreateLineageChild(root, dwnmessage.CreateLineageChildOptions{
		Data: []byte(`{"text":"v2"}`),
	}, persona)
	require.NoError(t, err)

	require.Equal(t, root.RecordID, child.RecordID)
	require.Equal(t, root.ContextID, child.ContextID)
	require.NotEmpty(t, child.LineageParent)
	require.NotEqual(t, root.Descriptor.DataCID, child.Descriptor.DataCID)
	require.NotEqual(t, root.Descriptor.DateModified, child.Descriptor.DateModified)

	result := dwnmessage.SelfValidate(child, dwnmessage.SelfValidateOptions{Root: root})
	require.False(t, result.IsError(), "expected OK, got %+v", result)
}

func TestSelfValidateRejectsImmutableFieldChange(t *testing.T) {
	persona := testPersona(t)

	root, err := dwnmessage.CreateRoot(dwnmessage.CreateRootOptions{
		Recipient:  "did:example:bob",
		Schema:     "https://schemas.example/note",
		DataFormat: "application/json",
		Data:       []byte(`{"text":"v1"}`),
	}, persona)
	require.NoError(t, err)

	child, err := dwnmessage.CreateLineageChild(root, dwnmessage.CreateLineageChildOptions{
		Data: []byte(`{"text":"v2"}`),
	}, persona)
	require.NoError(t, err)

	child.Descriptor.Schema = "https://schemas.example/other"

	// re-sign so the authorization binds the changed descriptor and the
	// immutable-field check, not the signature binding, is what rejects it
	descriptorCID, err := dwnmessage.ComputeDescriptorCID(child.Descriptor)
	require.NoError(t, err)
	payload, err := json.Marshal(dwnmessage.AuthPayload{DescriptorCID: descriptorCID, RecordID: child.RecordID, ContextID: child.ContextID})
	require.NoError(t, err)
	child.Authorization, err = jws.Sign(payload, persona)
	require.NoError(t, err)

	result := dwnmessage.SelfValidate(child, dwnmessage.SelfValidateOptions{Root: root})
	require.True(t, result.IsError())
	require.Equal(t, dwnerrors.ImmutableFieldChanged("schema"), result)
}

func TestSelfValidateRejectsDataCidMismatch(t *testing.T) {
	persona := testPersona(t)

	msg, err := dwnmessage.CreateRoot(dwnmessage.CreateRootOptions{
		Recipient:  "did:example:bob",
		Schema:     "https://schemas.example/note",
		DataFormat: "application/json",
		Data:       []byte(`{"text":"hello"}`),
	}, persona)
	require.NoError(t, err)

	msg.EncodedData = []byte(`{"text":"tampered"}`)

	result := dwnmessage.SelfValidate(msg, dwnmessage.SelfValidateOptions{})
	require.Equal(t, dwnerrors.DataCidMismatch(), result)
}

func TestSelfValidateRejectsRecordIDNotMatchingAuthorization(t *testing.T) {
	persona := testPersona(t)

	msg, err := dwnmessage.CreateRoot(dwnmessage.CreateRootOptions{
		Recipient:  "did:example:bob",
		Schema:     "https://schemas.example/note",
		DataFormat: "application/json",
		Data:       []byte(`{"text":"hello"}`),
	}, persona)
	require.NoError(t, err)

	msg.RecordID = "bafkreidifferentrecordid"

	result := dwnmessage.SelfValidate(msg, dwnmessage.SelfValidateOptions{})
	require.Equal(t, dwnerrors.AuthzRecordIdMismatch(), result)
}
