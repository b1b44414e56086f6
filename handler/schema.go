package handler

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dwnlabs/dwn-core/dwnmessage"
)

// envelopeSchemaJSON is the structural shape every inbound
// CollectionsWrite message must satisfy before any of its field values
// are trusted. It catches malformed envelopes (missing recordId,
// absent authorization) before cheaper, more specific checks run.
const envelopeSchemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["recordId", "descriptor", "authorization"],
	"properties": {
		"recordId": {"type": "string", "minLength": 1},
		"contextId": {"type": "string"},
		"descriptor": {
			"type": "object",
			"required": ["method", "recipient", "schema", "dataCid", "dataFormat", "dateCreated", "dateModified"],
			"properties": {
				"method": {"const": "CollectionsWrite"},
				"recipient": {"type": "string", "minLength": 1},
				"schema": {"type": "string", "minLength": 1},
				"protocol": {"type": "string"},
				"parentId": {"type": "string"},
				"dataCid": {"type": "string", "minLength": 1},
				"dataFormat": {"type": "string", "minLength": 1},
				"dateCreated": {"type": "string", "minLength": 1},
				"dateModified": {"type": "string", "minLength": 1}
			}
		},
		"authorization": {
			"type": "object",
			"required": ["payload", "signatures"],
			"properties": {
				"payload": {"type": "string", "minLength": 1},
				"signatures": {
					"type": "array",
					"minItems": 1,
					"items": {
						"type": "object",
						"required": ["protected", "signature"],
						"properties": {
							"protected": {"type": "string", "minLength": 1},
							"signature": {"type": "string", "minLength": 1}
						}
					}
				}
			}
		}
	}
}`

var envelopeSchema = mustCompileEnvelopeSchema()

func mustCompileEnvelopeSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource("dwn-envelope.json", strings.NewReader(envelopeSchemaJSON)); err != nil {
		panic(fmt.Sprintf("handler: invalid embedded envelope schema: %v", err))
	}

	schema, err := compiler.Compile("dwn-envelope.json")
	if err != nil {
		panic(fmt.Sprintf("handler: failed to compile embedded envelope schema: %v", err))
	}

	return schema
}

// validateEnvelope re-marshals msg to JSON and checks it against
// envelopeSchema. Re-marshaling (rather than validating the wire bytes
// directly) keeps this check meaningful even when msg was constructed
// in-process by package dwnmessage rather than decoded off the wire.
func validateEnvelope(msg *dwnmessage.Message) error {
	encoded, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("handler: failed to encode message for envelope validation: %w", err)
	}

	var doc any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return fmt.Errorf("handler: failed to decode message for envelope validation: %w", err)
	}

	if err := envelopeSchema.Validate(doc); err != nil {
		return fmt.Errorf("handler: envelope validation failed: %w", err)
	}

	return nil
}
