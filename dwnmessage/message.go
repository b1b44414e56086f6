// Package dwnmessage implements the CollectionsWrite message (C4):
// construction, canonicalization, deterministic recordId/contextId
// derivation, and the immutable-field self-validation contract.
package dwnmessage

import (
	"time"

	"github.com/dwnlabs/dwn-core/cid"
	"github.com/dwnlabs/dwn-core/jws"
)

const MethodCollectionsWrite = "CollectionsWrite"

// Descriptor is the canonical, signed body of a CollectionsWrite message.
type Descriptor struct {
	Method        string `json:"method"`
	Recipient     string `json:"recipient"`
	Schema        string `json:"schema"`
	Protocol      string `json:"protocol,omitempty"`
	ParentID      string `json:"parentId,omitempty"`
	DataCID       string `json:"dataCid"`
	DataFormat    string `json:"dataFormat"`
	DateCreated   string `json:"dateCreated"`
	DateModified  string `json:"dateModified"`
	Published     bool   `json:"published,omitempty"`
	DatePublished string `json:"datePublished,omitempty"`
}

// AuthPayload is the decoded JWS payload of a message's authorization:
// the three values the signature binds.
type AuthPayload struct {
	DescriptorCID string `json:"descriptorCid"`
	RecordID      string `json:"recordId"`
	ContextID     string `json:"contextId,omitempty"`
}

// Message is the full wire envelope: descriptor, its authorization JWS,
// the optional inline payload bytes, and the deterministic ids.
type Message struct {
	RecordID      string          `json:"recordId"`
	ContextID     string          `json:"contextId,omitempty"`
	Descriptor    Descriptor      `json:"descriptor"`
	Authorization jws.GeneralJWS  `json:"authorization"`
	EncodedData   []byte          `json:"encodedData,omitempty"`
	LineageParent string          `json:"lineageParent,omitempty"` // previous tip's CID; not part of the signed descriptor (see design note on parentId vs lineageParent)
	Author        string          `json:"author,omitempty"`        // DID that produced Authorization; derived from the JWS kid at verification time, any inbound value is overwritten
}

// immutableSubset is the struct whose canonical CID defines the root
// recordId (spec §3: "dateCreated, schema, dataFormat, recipient,
// protocol?, parentId?, author").
type immutableSubset struct {
	DateCreated string `cbor:"dateCreated"`
	Schema      string `cbor:"schema"`
	DataFormat  string `cbor:"dataFormat"`
	Recipient   string `cbor:"recipient"`
	Protocol    string `cbor:"protocol,omitempty"`
	ParentID    string `cbor:"parentId,omitempty"`
	Author      string `cbor:"author"`
}

// ComputeRootRecordID derives the deterministic recordId of a lineage
// root from its immutable fields and author DID.
func ComputeRootRecordID(d Descriptor, author string) (string, error) {
	return cid.String(immutableSubset{
		DateCreated: d.DateCreated,
		Schema:      d.Schema,
		DataFormat:  d.DataFormat,
		Recipient:   d.Recipient,
		Protocol:    d.Protocol,
		ParentID:    d.ParentID,
		Author:      author,
	})
}

// ComputeDataCID derives the CID of record payload bytes.
func ComputeDataCID(data []byte) (string, error) {
	c, err := cid.SumBytes(data)
	if err != nil {
		return "", err
	}

	return c.String(), nil
}

// ComputeDescriptorCID derives the CID bound into the JWS payload.
func ComputeDescriptorCID(d Descriptor) (string, error) {
	return cid.String(d)
}

// DeriveContextID hashes the ordered ancestor chain of recordIds (oldest
// first, ending with the record's own recordId) into a stable per-thread
// identifier. Only meaningful for protocol-scoped records.
func DeriveContextID(chain []string) (string, error) {
	return cid.String(chain)
}

// nowISO returns the current time formatted with microsecond precision
// in UTC "Z" form, lexicographically comparable as spec §6 requires.
func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
}
