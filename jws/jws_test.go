package jws_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dwnlabs/dwn-core/didresolver"
	"github.com/dwnlabs/dwn-core/jws"
)

func registerEd25519(t *testing.T, resolver *didresolver.Static, did string, pub ed25519.PublicKey) {
	t.Helper()

	resolver.Register(&didresolver.Document{
		ID: did,
		VerificationMethod: []didresolver.VerificationMethod{
			{ID: did + "#key-1", Type: "JsonWebKey2020", Controller: did, PublicKeyJwk: jws.PublicKeyJWK(pub)},
		},
	})
}

func TestSignAndVerifyEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	resolver := didresolver.NewStatic()
	registerEd25519(t, resolver, "did:example:alice", pub)

	persona := jws.Persona{DID: "did:example:alice", KeyID: "key-1", Ed25519Key: priv}

	g, err := jws.Sign([]byte(`{"hello":"world"}`), persona)
	require.NoError(t, err)

	require.NoError(t, jws.Verify(context.Background(), g, resolver))

	signer, err := jws.Signer(g)
	require.NoError(t, err)
	require.Equal(t, "did:example:alice", signer)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	resolver := didresolver.NewStatic()
	registerEd25519(t, resolver, "did:example:alice", pub)

	persona := jws.Persona{DID: "did:example:alice", KeyID: "key-1", Ed25519Key: priv}

	g, err := jws.Sign([]byte(`{"hello":"world"}`), persona)
	require.NoError(t, err)

	g.Payload = g.Payload[:len(g.Payload)-2] + "xx"

	err = jws.Verify(context.Background(), g, resolver)
	require.Error(t, err)

	var verr *jws.VerifyError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "BadSignature", verr.Kind)
}

func TestVerifyRejectsUnknownKid(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	resolver := didresolver.NewStatic()
	resolver.Register(&didresolver.Document{ID: "did:example:alice"})

	persona := jws.Persona{DID: "did:example:alice", KeyID: "key-1", Ed25519Key: priv}

	g, err := jws.Sign([]byte(`payload`), persona)
	require.NoError(t, err)

	err = jws.Verify(context.Background(), g, resolver)
	require.Error(t, err)

	var verr *jws.VerifyError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "UnknownKid", verr.Kind)
}

func TestVerifyRejectsUnresolvableDid(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	resolver := didresolver.NewStatic()
	persona := jws.Persona{DID: "did:example:ghost", KeyID: "key-1", Ed25519Key: priv}

	g, err := jws.Sign([]byte(`payload`), persona)
	require.NoError(t, err)

	err = jws.Verify(context.Background(), g, resolver)
	require.Error(t, err)

	var verr *jws.VerifyError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "UnresolvableDid", verr.Kind)
}

func TestSignAndVerifyECDSARoundTrip(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	resolver := didresolver.NewStatic()
	resolver.Register(&didresolver.Document{
		ID: "did:example:carol",
		VerificationMethod: []didresolver.VerificationMethod{
			{
				ID:         "did:example:carol#key-1",
				Type:       "JsonWebKey2020",
				Controller: "did:example:carol",
				PublicKeyJwk: map[string]any{
					"kty": "EC",
					"crv": "P-256",
					"x":   encodeCoord(priv.PublicKey.X),
					"y":   encodeCoord(priv.PublicKey.Y),
				},
			},
		},
	})

	persona := jws.Persona{DID: "did:example:carol", KeyID: "key-1", ECDSAKey: priv}

	g, err := jws.Sign([]byte(`{"a":1}`), persona)
	require.NoError(t, err)
	require.NoError(t, jws.Verify(context.Background(), g, resolver))
}

func encodeCoord(i *big.Int) string {
	b := i.Bytes()
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)

	return base64.RawURLEncoding.EncodeToString(padded)
}
