// Package jws implements general-JWS signing and verification (C2) over
// arbitrary payload bytes, with keys resolved from a DID document. The
// wire shape follows RFC 7515's "general JWS JSON Serialization".
package jws

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/dwnlabs/dwn-core/didresolver"
)

// Signature is a single entry in a general JWS's "signatures" array.
type Signature struct {
	Protected string `json:"protected"`
	Signature string `json:"signature"`
}

// GeneralJWS is the wire structure signed authorization bodies use.
type GeneralJWS struct {
	Payload    string      `json:"payload"`
	Signatures []Signature `json:"signatures"`
}

// protectedHeader is the decoded form of Signature.Protected.
type protectedHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"` // did#key-id
}

// Persona bundles everything needed to produce a signature: the DID the
// signature will be attributed to, the verification-method fragment id,
// and a private key (Ed25519 or ECDSA P-256 — the two key types the
// teacher's identity layer issues).
type Persona struct {
	DID        string
	KeyID      string // fragment, e.g. "key-1"; combined with DID to form kid
	Ed25519Key ed25519.PrivateKey
	ECDSAKey   *ecdsa.PrivateKey
}

func (p Persona) kid() string {
	return fmt.Sprintf("%s#%s", p.DID, p.KeyID)
}

func b64url(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func b64urlDecode(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }

// Sign produces a general JWS over payload using persona's key. A single
// signature is added; CollectionsWrite messages carry exactly one
// authorization signature in this subsystem's scope.
func Sign(payload []byte, persona Persona) (GeneralJWS, error) {
	var alg string

	switch {
	case persona.Ed25519Key != nil:
		alg = "EdDSA"
	case persona.ECDSAKey != nil:
		alg = "ES256"
	default:
		return GeneralJWS{}, fmt.Errorf("jws: persona has no signing key")
	}

	header := protectedHeader{Alg: alg, Kid: persona.kid()}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return GeneralJWS{}, fmt.Errorf("jws: failed to encode protected header: %w", err)
	}

	protected := b64url(headerBytes)
	payloadEncoded := b64url(payload)
	signingInput := protected + "." + payloadEncoded

	sigBytes, err := sign(alg, persona, []byte(signingInput))
	if err != nil {
		return GeneralJWS{}, err
	}

	return GeneralJWS{
		Payload: payloadEncoded,
		Signatures: []Signature{
			{Protected: protected, Signature: b64url(sigBytes)},
		},
	}, nil
}

func sign(alg string, persona Persona, signingInput []byte) ([]byte, error) {
	switch alg {
	case "EdDSA":
		return ed25519.Sign(persona.Ed25519Key, signingInput), nil
	case "ES256":
		digest := sha256.Sum256(signingInput)

		r, s, err := ecdsa.Sign(rand.Reader, persona.ECDSAKey, digest[:])
		if err != nil {
			return nil, fmt.Errorf("jws: failed to sign with ecdsa key: %w", err)
		}

		return append(padTo32(r), padTo32(s)...), nil
	default:
		return nil, fmt.Errorf("jws: unsupported alg %q", alg)
	}
}

func padTo32(i *big.Int) []byte {
	b := i.Bytes()
	if len(b) >= 32 {
		return b
	}

	out := make([]byte, 32)
	copy(out[32-len(b):], b)

	return out
}

// Failure kinds returned by Verify, mapped by callers onto
// dwnerrors.BadSignature (spec §7 treats all three as 401).
type VerifyError struct {
	Kind string // "UnresolvableDid", "UnknownKid", "BadSignature"
	Err  error
}

func (e *VerifyError) Error() string { return fmt.Sprintf("jws: %s: %v", e.Kind, e.Err) }
func (e *VerifyError) Unwrap() error { return e.Err }

// Verify checks every signature in g against keys resolved via resolver.
// All signatures must verify; this subsystem only ever produces one.
func Verify(ctx context.Context, g GeneralJWS, resolver didresolver.Resolver) error {
	for _, sig := range g.Signatures {
		if err := verifyOne(ctx, g.Payload, sig, resolver); err != nil {
			return err
		}
	}

	return nil
}

// Signer returns the DID that produced g's (sole) signature, read
// straight off the protected header's kid without touching the network
// or verifying anything. Callers use this only after Verify has
// already succeeded against the same GeneralJWS.
func Signer(g GeneralJWS) (string, error) {
	if len(g.Signatures) == 0 {
		return "", fmt.Errorf("jws: no signatures present")
	}

	headerBytes, err := b64urlDecode(g.Signatures[0].Protected)
	if err != nil {
		return "", fmt.Errorf("jws: invalid protected header encoding: %w", err)
	}

	var header protectedHeader
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return "", fmt.Errorf("jws: invalid protected header json: %w", err)
	}

	i := strings.IndexByte(header.Kid, '#')
	if i < 0 {
		return "", fmt.Errorf("jws: kid %q has no fragment", header.Kid)
	}

	return header.Kid[:i], nil
}

func verifyOne(ctx context.Context, payloadEncoded string, sig Signature, resolver didresolver.Resolver) error {
	headerBytes, err := b64urlDecode(sig.Protected)
	if err != nil {
		return &VerifyError{Kind: "BadSignature", Err: fmt.Errorf("invalid protected header encoding: %w", err)}
	}

	var header protectedHeader
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return &VerifyError{Kind: "BadSignature", Err: fmt.Errorf("invalid protected header json: %w", err)}
	}

	if header.Kid == "" || !strings.Contains(header.Kid, "#") {
		return &VerifyError{Kind: "UnknownKid", Err: fmt.Errorf("protected header missing kid")}
	}

	doc, err := resolver.Resolve(ctx, header.Kid)
	if err != nil {
		return &VerifyError{Kind: "UnresolvableDid", Err: err}
	}

	method, ok := doc.FindMethod(header.Kid)
	if !ok {
		return &VerifyError{Kind: "UnknownKid", Err: fmt.Errorf("no verification method %q in did document", header.Kid)}
	}

	sigBytes, err := b64urlDecode(sig.Signature)
	if err != nil {
		return &VerifyError{Kind: "BadSignature", Err: fmt.Errorf("invalid signature encoding: %w", err)}
	}

	signingInput := []byte(sig.Protected + "." + payloadEncoded)

	if err := verifyWithMethod(header.Alg, method, signingInput, sigBytes); err != nil {
		return &VerifyError{Kind: "BadSignature", Err: err}
	}

	return nil
}

func verifyWithMethod(alg string, method *didresolver.VerificationMethod, signingInput, sig []byte) error {
	switch alg {
	case "EdDSA":
		pub, err := ed25519PublicKey(method)
		if err != nil {
			return err
		}

		if !ed25519.Verify(pub, signingInput, sig) {
			return fmt.Errorf("invalid ed25519 signature")
		}

		return nil
	case "ES256":
		pub, err := ecdsaPublicKey(method)
		if err != nil {
			return err
		}

		if len(sig) != 64 {
			return fmt.Errorf("invalid ecdsa signature length %d", len(sig))
		}

		r := new(big.Int).SetBytes(sig[:32])
		s := new(big.Int).SetBytes(sig[32:])
		digest := sha256.Sum256(signingInput)

		if !ecdsa.Verify(pub, digest[:], r, s) {
			return fmt.Errorf("invalid ecdsa signature")
		}

		return nil
	default:
		return fmt.Errorf("unsupported alg %q", alg)
	}
}

// parseJwk round-trips a publicKeyJwk map through JSON so jwx's parser
// can build a typed jwk.Key from it.
func parseJwk(m map[string]any) (jwk.Key, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode jwk map: %w", err)
	}

	key, err := jwk.ParseKey(b)
	if err != nil {
		return nil, fmt.Errorf("invalid jwk: %w", err)
	}

	return key, nil
}

func ed25519PublicKey(method *didresolver.VerificationMethod) (ed25519.PublicKey, error) {
	if method.PublicKeyJwk == nil {
		return nil, fmt.Errorf("verification method has no publicKeyJwk")
	}

	key, err := parseJwk(method.PublicKeyJwk)
	if err != nil {
		return nil, err
	}

	var raw any
	if err := key.Raw(&raw); err != nil {
		return nil, fmt.Errorf("failed to extract raw key from jwk: %w", err)
	}

	pub, ok := raw.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("jwk does not hold an ed25519 public key")
	}

	return pub, nil
}

func ecdsaPublicKey(method *didresolver.VerificationMethod) (*ecdsa.PublicKey, error) {
	if method.PublicKeyJwk == nil {
		return nil, fmt.Errorf("verification method has no publicKeyJwk")
	}

	key, err := parseJwk(method.PublicKeyJwk)
	if err != nil {
		return nil, err
	}

	var raw any
	if err := key.Raw(&raw); err != nil {
		return nil, fmt.Errorf("failed to extract raw key from jwk: %w", err)
	}

	pub, ok := raw.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("jwk does not hold an ecdsa public key")
	}

	return pub, nil
}

// publicKeyToJwk is a small helper, exported as PublicKeyJWK for tests
// and dwnctl keygen, that builds a publicKeyJwk map from a raw Ed25519 key, mirroring
// the teacher's own JWK construction in blockchain/w3c_did.go.
func publicKeyToJwk(pub ed25519.PublicKey) map[string]any {
	return map[string]any{
		"kty": "OKP",
		"crv": "Ed25519",
		"x":   b64url(pub),
	}
}

// PublicKeyJWK exports publicKeyToJwk for use outside the package (test
// fixtures, CLI demo seeding).
func PublicKeyJWK(pub ed25519.PublicKey) map[string]any { return publicKeyToJwk(pub) }
