package dwnmessage

import (
	"encoding/json"
	"fmt"

	"github.com/dwnlabs/dwn-core/cid"
	"github.com/dwnlabs/dwn-core/jws"
)

// CreateRootOptions are the caller-supplied fields of a new lineage root.
// DataCID/DateCreated/RecordID/ContextID are all derived, never supplied.
type CreateRootOptions struct {
	Recipient  string
	Schema     string
	DataFormat string
	Protocol   string // empty for a protocol-less record
	ParentID   string // structural protocol parent recordId, if any
	Data       []byte
}

// CreateRoot builds and signs the first message of a new record's
// lineage: a fresh recordId derived from the record's immutable fields,
// and a contextId when the record is protocol-scoped.
func CreateRoot(opts CreateRootOptions, persona jws.Persona) (*Message, error) {
	dateCreated := nowISO()

	dataCID, err := ComputeDataCID(opts.Data)
	if err != nil {
		return nil, fmt.Errorf("dwnmessage: failed to derive dataCid: %w", err)
	}

	descriptor := Descriptor{
		Method:       MethodCollectionsWrite,
		Recipient:    opts.Recipient,
		Schema:       opts.Schema,
		Protocol:     opts.Protocol,
		ParentID:     opts.ParentID,
		DataCID:      dataCID,
		DataFormat:   opts.DataFormat,
		DateCreated:  dateCreated,
		DateModified: dateCreated,
	}

	recordID, err := ComputeRootRecordID(descriptor, persona.DID)
	if err != nil {
		return nil, fmt.Errorf("dwnmessage: failed to derive recordId: %w", err)
	}

	var contextID string
	if descriptor.Protocol != "" {
		contextID, err = DeriveContextID([]string{recordID})
		if err != nil {
			return nil, fmt.Errorf("dwnmessage: failed to derive contextId: %w", err)
		}
	}

	authorization, err := signAuthorization(descriptor, recordID, contextID, persona)
	if err != nil {
		return nil, err
	}

	return &Message{
		RecordID:      recordID,
		ContextID:     contextID,
		Descriptor:    descriptor,
		Authorization: authorization,
		EncodedData:   opts.Data,
		Author:        persona.DID,
	}, nil
}

// CreateLineageChildOptions describes an update to an existing record.
// recordId, contextId, and every immutable field travel forward from
// parent unchanged; only dateModified, data, and publication state move.
type CreateLineageChildOptions struct {
	Data          []byte // nil to leave data unchanged
	Published     bool
	DatePublished string
}

// CreateLineageChild builds and signs the next version of parent's
// record: same recordId and contextId, a fresh dateModified, and a
// lineageParent pointing at parent's message CID.
func CreateLineageChild(parent *Message, opts CreateLineageChildOptions, persona jws.Persona) (*Message, error) {
	descriptor := parent.Descriptor
	descriptor.DateModified = nowISO()
	descriptor.Published = opts.Published
	descriptor.DatePublished = opts.DatePublished

	data := parent.EncodedData
	if opts.Data != nil {
		data = opts.Data

		dataCID, err := ComputeDataCID(data)
		if err != nil {
			return nil, fmt.Errorf("dwnmessage: failed to derive dataCid: %w", err)
		}

		descriptor.DataCID = dataCID
	}

	parentCID, err := cid.String(parent)
	if err != nil {
		return nil, fmt.Errorf("dwnmessage: failed to derive parent message cid: %w", err)
	}

	authorization, err := signAuthorization(descriptor, parent.RecordID, parent.ContextID, persona)
	if err != nil {
		return nil, err
	}

	return &Message{
		RecordID:      parent.RecordID,
		ContextID:     parent.ContextID,
		Descriptor:    descriptor,
		Authorization: authorization,
		EncodedData:   data,
		LineageParent: parentCID,
		Author:        persona.DID,
	}, nil
}

func signAuthorization(descriptor Descriptor, recordID, contextID string, persona jws.Persona) (jws.GeneralJWS, error) {
	descriptorCID, err := ComputeDescriptorCID(descriptor)
	if err != nil {
		return jws.GeneralJWS{}, fmt.Errorf("dwnmessage: failed to derive descriptorCid: %w", err)
	}

	payload, err := json.Marshal(AuthPayload{
		DescriptorCID: descriptorCID,
		RecordID:      recordID,
		ContextID:     contextID,
	})
	if err != nil {
		return jws.GeneralJWS{}, fmt.Errorf("dwnmessage: failed to encode authorization payload: %w", err)
	}

	authorization, err := jws.Sign(payload, persona)
	if err != nil {
		return jws.GeneralJWS{}, fmt.Errorf("dwnmessage: failed to sign authorization: %w", err)
	}

	return authorization, nil
}
