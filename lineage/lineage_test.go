package lineage_test

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dwnlabs/dwn-core/cid"
	"github.com/dwnlabs/dwn-core/dwnerrors"
	"github.com/dwnlabs/dwn-core/dwnmessage"
	"github.com/dwnlabs/dwn-core/jws"
	"github.com/dwnlabs/dwn-core/lineage"
	"github.com/dwnlabs/dwn-core/store"
)

func persona(t *testing.T) jws.Persona {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	return jws.Persona{DID: "did:example:alice", KeyID: "key-1", Ed25519Key: priv}
}

func toRecord(t *testing.T, msg *dwnmessage.Message) store.Record {
	t.Helper()

	messageCID, err := cid.String(msg)
	require.NoError(t, err)

	return store.Record{
		Message: *msg,
		IndexTags: store.IndexTags{
			RecordID:     msg.RecordID,
			ContextID:    msg.ContextID,
			DateModified: msg.Descriptor.DateModified,
			MessageCID:   messageCID,
		},
	}
}

func TestResolveReturnsNotFoundForUnknownRecord(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()

	got, ok, err := lineage.Resolve(ctx, st, "alice", "nonexistent")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, got)
}

func TestResolveFindsRootAndTip(t *testing.T) {
	ctx := context.Background()
	p := persona(t)
	st := store.NewMemStore()

	root, err := dwnmessage.CreateRoot(dwnmessage.CreateRootOptions{
		Recipient:  "did:example:bob",
		Schema:     "https://schemas.example/note",
		DataFormat: "application/json",
		Data:       []byte(`{"v":1}`),
	}, p)
	require.NoError(t, err)
	require.NoError(t, st.Put(ctx, "alice", toRecord(t, root)))

	child, err := dwnmessage.CreateLineageChild(root, dwnmessage.CreateLineageChildOptions{
		Data: []byte(`{"v":2}`),
	}, p)
	require.NoError(t, err)
	require.NoError(t, st.Put(ctx, "alice", toRecord(t, child)))

	got, ok, err := lineage.Resolve(ctx, st, "alice", root.RecordID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, root.Descriptor.DateCreated, got.Root.Descriptor.DateCreated)
	require.Equal(t, child.Descriptor.DateModified, got.Tip.Descriptor.DateModified)

	require.NoError(t, lineage.ValidateParent(child, got.Tip, got.Root))
}

// TestResolveIdentifiesRootByLineageParentNotByDate guards against
// misidentifying the root via minimum dateModified: per §9(c),
// dateModified is explicitly non-monotonic, so a later-written child
// carrying an earlier timestamp than the root must not be mistaken for
// the root itself.
func TestResolveIdentifiesRootByLineageParentNotByDate(t *testing.T) {
	ctx := context.Background()
	p := persona(t)
	st := store.NewMemStore()

	root, err := dwnmessage.CreateRoot(dwnmessage.CreateRootOptions{
		Recipient:  "did:example:bob",
		Schema:     "https://schemas.example/note",
		DataFormat: "application/json",
		Data:       []byte(`{"v":1}`),
	}, p)
	require.NoError(t, err)
	require.NoError(t, st.Put(ctx, "alice", toRecord(t, root)))

	child, err := dwnmessage.CreateLineageChild(root, dwnmessage.CreateLineageChildOptions{
		Data: []byte(`{"v":2}`),
	}, p)
	require.NoError(t, err)
	child.Descriptor.DateModified = "1999-01-01T00:00:00.000000Z" // earlier than root, non-monotonic per spec
	require.NoError(t, st.Put(ctx, "alice", toRecord(t, child)))

	got, ok, err := lineage.Resolve(ctx, st, "alice", root.RecordID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, root.Descriptor.DateCreated, got.Root.Descriptor.DateCreated)
	require.Empty(t, got.Root.LineageParent)
}

func TestValidateParentRejectsWrongLineageParent(t *testing.T) {
	p := persona(t)

	root, err := dwnmessage.CreateRoot(dwnmessage.CreateRootOptions{
		Recipient:  "did:example:bob",
		Schema:     "https://schemas.example/note",
		DataFormat: "application/json",
		Data:       []byte(`{"v":1}`),
	}, p)
	require.NoError(t, err)

	child, err := dwnmessage.CreateLineageChild(root, dwnmessage.CreateLineageChildOptions{
		Data: []byte(`{"v":2}`),
	}, p)
	require.NoError(t, err)

	child.LineageParent = "bafkrewrongcid"

	err = lineage.ValidateParent(child, root, root)
	require.Error(t, err)

	result, ok := err.(dwnerrors.Result)
	require.True(t, ok)
	require.Equal(t, 400, result.Code)
	require.Contains(t, result.Detail, root.RecordID)
}
