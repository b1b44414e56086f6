package dwnmessage

import (
	"encoding/base64"
	"encoding/json"

	"github.com/dwnlabs/dwn-core/dwnerrors"
)

// immutableFields lists the Descriptor fields a lineage child may never
// change relative to its lineage root, by json tag, for the diagnostic
// ImmutableFieldChanged detail.
var immutableFields = []struct {
	name string
	get  func(Descriptor) any
}{
	{"recipient", func(d Descriptor) any { return d.Recipient }},
	{"schema", func(d Descriptor) any { return d.Schema }},
	{"protocol", func(d Descriptor) any { return d.Protocol }},
	{"parentId", func(d Descriptor) any { return d.ParentID }},
	{"dataFormat", func(d Descriptor) any { return d.DataFormat }},
	{"dateCreated", func(d Descriptor) any { return d.DateCreated }},
}

// SelfValidateOptions carries the context SelfValidate needs beyond the
// message itself: whether msg is a lineage root, the root descriptor to
// diff immutable fields against (nil when msg is itself the root), and
// the ancestor recordId chain used to recompute a protocol-scoped
// contextId (nil for protocol-less records).
type SelfValidateOptions struct {
	Root              *Message
	AncestorRecordIDs []string
}

// SelfValidate runs the checks a message must pass on its own terms,
// before any store lookups beyond what the caller already resolved:
// decoding and cross-checking its own authorization payload, confirming
// dataCid matches the carried data, confirming immutable fields didn't
// drift from the lineage root, and (protocol-scoped records only)
// confirming contextId matches its recomputation from the ancestor
// chain.
func SelfValidate(msg *Message, opts SelfValidateOptions) dwnerrors.Result {
	payload, err := decodeAuthPayload(msg.Authorization.Payload)
	if err != nil {
		return dwnerrors.BadSignature()
	}

	descriptorCID, err := ComputeDescriptorCID(msg.Descriptor)
	if err != nil || payload.DescriptorCID != descriptorCID {
		return dwnerrors.BadSignature()
	}

	if payload.RecordID != msg.RecordID {
		return dwnerrors.AuthzRecordIdMismatch()
	}

	if payload.ContextID != msg.ContextID {
		return dwnerrors.AuthzContextIdMismatch()
	}

	dataCID, err := ComputeDataCID(msg.EncodedData)
	if err != nil || dataCID != msg.Descriptor.DataCID {
		return dwnerrors.DataCidMismatch()
	}

	if opts.Root == nil {
		recordID, err := ComputeRootRecordID(msg.Descriptor, msg.Author)
		if err != nil || recordID != msg.RecordID {
			return dwnerrors.RecordIdMismatch()
		}

		if msg.Descriptor.DateCreated != msg.Descriptor.DateModified {
			return dwnerrors.RootDateMismatch()
		}
	} else {
		for _, f := range immutableFields {
			if f.get(opts.Root.Descriptor) != f.get(msg.Descriptor) {
				return dwnerrors.ImmutableFieldChanged(f.name)
			}
		}

		if msg.Descriptor.DateCreated != opts.Root.Descriptor.DateCreated {
			return dwnerrors.RootDateMismatch()
		}
	}

	if msg.Descriptor.Protocol != "" {
		contextID, err := DeriveContextID(opts.AncestorRecordIDs)
		if err != nil || contextID != msg.ContextID {
			return dwnerrors.ContextIdMismatch()
		}
	}

	return dwnerrors.OK()
}

func decodeAuthPayload(payloadEncoded string) (AuthPayload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(payloadEncoded)
	if err != nil {
		return AuthPayload{}, err
	}

	var payload AuthPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return AuthPayload{}, err
	}

	return payload, nil
}
