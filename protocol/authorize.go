package protocol

import (
	"context"

	"github.com/dwnlabs/dwn-core/dwnerrors"
	"github.com/dwnlabs/dwn-core/dwnmessage"
)

// Authorize evaluates whether msg's author may write it under its
// declared protocol. ancestors is the chain ResolveAncestors returned
// for msg (oldest first); tip is the current lineage tip when msg
// updates an existing record, or nil for a first write.
//
// A message with no declared protocol is always authorized here; it is
// subject only to the DID-signature check package jws already ran.
func Authorize(ctx context.Context, registry Registry, msg *dwnmessage.Message, ancestors []*dwnmessage.Message, ancestorsComplete bool, tip *dwnmessage.Message) dwnerrors.Result {
	if msg.Descriptor.Protocol == "" {
		return dwnerrors.Accepted()
	}

	def, ok, err := registry.Lookup(ctx, msg.Descriptor.Protocol)
	if err != nil || !ok {
		return dwnerrors.NoProtocolDefinition()
	}

	node, ok := def.Types[msg.Descriptor.Schema]
	if !ok {
		return dwnerrors.SchemaNotAllowed(msg.Descriptor.Schema)
	}

	if msg.Descriptor.ParentID != "" && !ancestorsComplete {
		return dwnerrors.ParentMissing()
	}

	if node.ParentSchema == "" {
		if msg.Descriptor.ParentID != "" {
			return dwnerrors.StructureLevelNotAllowed()
		}
	} else {
		if len(ancestors) == 0 || ancestors[len(ancestors)-1].Descriptor.Schema != node.ParentSchema {
			return dwnerrors.StructureLevelNotAllowed()
		}
	}

	if result := evaluateActions(node.Actions, msg, ancestors); result.IsError() {
		return result
	}

	if tip != nil && tip.Author != msg.Author {
		return dwnerrors.AuthorMismatchOnUpdate()
	}

	return dwnerrors.Accepted()
}

// evaluateActions checks msg's author against every "write" ActionRule
// on node until one grants access, returning NoAllowRule if none do. A
// rule that names an ancestor depth past the actual chain length yields
// RecipientPathTooLong rather than silently failing closed, so callers
// can tell a misconfigured protocol from a plain denial. Once a rule's
// ancestor is located, per spec §4.6 step 6 its outcome is final: a
// schema that doesn't match the rule's declared path label fails
// SchemaMismatch, and a mismatched recipient/author fails
// UnexpectedAuthor — neither falls through to try the remaining rules
// or to the catch-all NoAllowRule.
func evaluateActions(rules []ActionRule, msg *dwnmessage.Message, ancestors []*dwnmessage.Message) dwnerrors.Result {
	sawPathTooLong := false

	for _, rule := range rules {
		if !rule.grantsWrite() {
			continue
		}

		switch rule.Who {
		case "anyone":
			return dwnerrors.Accepted()
		case "author", "recipient":
			idx := len(ancestors) - 1 - rule.Of
			if idx < 0 {
				sawPathTooLong = true
				continue
			}

			ancestor := ancestors[idx]

			if rule.OfSchema != "" && ancestor.Descriptor.Schema != rule.OfSchema {
				return dwnerrors.SchemaMismatch()
			}

			var expected string
			if rule.Who == "author" {
				expected = ancestor.Author
			} else {
				expected = ancestor.Descriptor.Recipient
			}

			if expected == msg.Author {
				return dwnerrors.Accepted()
			}

			return dwnerrors.UnexpectedAuthor()
		}
	}

	if sawPathTooLong {
		return dwnerrors.RecipientPathTooLong()
	}

	return dwnerrors.NoAllowRule()
}
