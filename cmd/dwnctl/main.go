// Command dwnctl is a local keypair and message-construction demo tool,
// adapted from the teacher's cmd/ddi-tool (generate/proof/verify DID
// subcommands over flag.FlagSet): "keygen" takes the place of
// "generate" (mint a keypair and DID document instead of registering
// one on-chain) and "write" takes the place of "proof" (produce a
// signed CollectionsWrite envelope instead of a bearer header proof).
// Neither subcommand talks to a running node; operators pipe the
// output into an HTTP client of their choosing.
package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/dwnlabs/dwn-core/didresolver"
	"github.com/dwnlabs/dwn-core/dwnmessage"
	"github.com/dwnlabs/dwn-core/jws"
)

// keyfile is the on-disk shape dwnctl saves a persona to, and reads
// it back from for "write".
type keyfile struct {
	DID        string `json:"did"`
	KeyID      string `json:"keyId"`
	PrivateKey string `json:"privateKey"` // base64 standard, raw ed25519 seed+pub
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("expected 'keygen' or 'write' subcommand")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "keygen":
		runKeygen(os.Args[2:])
	case "write":
		runWrite(os.Args[2:])
	default:
		fmt.Println("expected 'keygen' or 'write' subcommand")
		os.Exit(1)
	}
}

func runKeygen(args []string) {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	did := fs.String("did", "", "DID to mint a key for (e.g. did:example:alice)")
	out := fs.String("out", "", "path to write the keyfile to")
	fs.Parse(args)

	if *did == "" || *out == "" {
		fmt.Println("-did and -out are required")
		fs.PrintDefaults()
		os.Exit(1)
	}

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		fmt.Println("error generating key:", err)
		os.Exit(1)
	}

	kf := keyfile{DID: *did, KeyID: "key-1", PrivateKey: base64.StdEncoding.EncodeToString(priv)}

	body, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		fmt.Println("error encoding keyfile:", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, body, 0o600); err != nil {
		fmt.Println("error writing keyfile:", err)
		os.Exit(1)
	}

	doc := didresolver.Document{
		ID: *did,
		VerificationMethod: []didresolver.VerificationMethod{
			{
				ID:           *did + "#" + kf.KeyID,
				Type:         "JsonWebKey2020",
				Controller:   *did,
				PublicKeyJwk: jws.PublicKeyJWK(pub),
			},
		},
	}

	docJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		fmt.Println("error encoding did document:", err)
		os.Exit(1)
	}

	fmt.Println("keyfile written to", *out)
	fmt.Println("register this DID document with the node's resolver:")
	fmt.Println(string(docJSON))
}

func runWrite(args []string) {
	fs := flag.NewFlagSet("write", flag.ExitOnError)
	keyPath := fs.String("key", "", "path to a keyfile produced by 'keygen'")
	recipient := fs.String("recipient", "", "recipient DID")
	schema := fs.String("schema", "", "record schema URI")
	dataFormat := fs.String("format", "application/json", "dataFormat of the payload")
	data := fs.String("data", "{}", "inline payload bytes")
	protocol := fs.String("protocol", "", "protocol URI, if protocol-scoped")
	parentID := fs.String("parent", "", "protocol parentId, if any")
	idempotencyKey := fs.String("idempotency-key", "", "client-supplied idempotency token; a fresh one is minted if omitted")
	fs.Parse(args)

	if *keyPath == "" || *recipient == "" || *schema == "" {
		fmt.Println("-key, -recipient, and -schema are required")
		fs.PrintDefaults()
		os.Exit(1)
	}

	kfBytes, err := os.ReadFile(*keyPath)
	if err != nil {
		fmt.Println("error reading keyfile:", err)
		os.Exit(1)
	}

	var kf keyfile
	if err := json.Unmarshal(kfBytes, &kf); err != nil {
		fmt.Println("error decoding keyfile:", err)
		os.Exit(1)
	}

	priv, err := base64.StdEncoding.DecodeString(kf.PrivateKey)
	if err != nil {
		fmt.Println("error decoding private key:", err)
		os.Exit(1)
	}

	persona := jws.Persona{DID: kf.DID, KeyID: kf.KeyID, Ed25519Key: ed25519.PrivateKey(priv)}

	msg, err := dwnmessage.CreateRoot(dwnmessage.CreateRootOptions{
		Recipient:  *recipient,
		Schema:     *schema,
		DataFormat: *dataFormat,
		Protocol:   *protocol,
		ParentID:   *parentID,
		Data:       []byte(*data),
	}, persona)
	if err != nil {
		fmt.Println("error constructing message:", err)
		os.Exit(1)
	}

	token := *idempotencyKey
	if token == "" {
		token = uuid.New().String()
	}

	envelope, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		fmt.Println("error encoding message:", err)
		os.Exit(1)
	}

	fmt.Println("Idempotency-Key:", token)
	fmt.Println(string(envelope))
}
