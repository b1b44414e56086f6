// Package protocol implements the protocol-scoped declarative
// authorization DSL (C6): structure levels, schema constraints, and
// allow rules evaluated against a record's ancestor chain.
package protocol

import (
	"context"
	"fmt"

	"github.com/dwnlabs/dwn-core/dwnmessage"
	"github.com/dwnlabs/dwn-core/store"
)

// ActionRule grants the "write" action (the only action CollectionsWrite
// cares about) to a class of requester.
type ActionRule struct {
	// Who is "anyone", "author", or "recipient".
	Who string
	// Of is the ancestor depth Who is evaluated against, counting 0 as
	// the record's immediate parent. Unused when Who is "anyone".
	Of int
	// OfSchema is the schema URI the ancestor at depth Of must carry —
	// the structural label on the slash path of spec §4.6's
	// "recipient.of = a/b/c" rule. "" skips the check. Unused when Who
	// is "anyone".
	OfSchema string
	// Can lists the actions this rule grants; only "write" matters here.
	Can []string
}

func (r ActionRule) grantsWrite() bool {
	for _, c := range r.Can {
		if c == "write" {
			return true
		}
	}

	return false
}

// RecordDefinition constrains one record type (keyed by schema URI) in
// a protocol: which schema's records may be its structural parent, and
// who may write it.
type RecordDefinition struct {
	// ParentSchema is the schema URI of the record type this one must
	// nest under via descriptor.parentId, or "" if this type is only
	// valid at the protocol's top level.
	ParentSchema string
	Actions      []ActionRule
}

// Definition is a protocol's full declarative ruleset, keyed by the
// schema URI of each record type it governs.
type Definition struct {
	Protocol string
	Types    map[string]RecordDefinition
}

// Registry resolves a protocol URI to its Definition. The core ships no
// built-in registry; callers (package handler, via cmd/dwnd wiring)
// supply one, typically backed by the same store as messages or a
// static in-memory map for tests.
type Registry interface {
	Lookup(ctx context.Context, protocol string) (Definition, bool, error)
}

// StaticRegistry is an in-memory Registry, used by tests and small
// deployments that configure protocols at startup rather than writing
// them as records.
type StaticRegistry struct {
	defs map[string]Definition
}

// NewStaticRegistry builds a registry from a fixed set of definitions.
func NewStaticRegistry(defs ...Definition) *StaticRegistry {
	m := make(map[string]Definition, len(defs))
	for _, d := range defs {
		m[d.Protocol] = d
	}

	return &StaticRegistry{defs: m}
}

func (r *StaticRegistry) Lookup(_ context.Context, protocol string) (Definition, bool, error) {
	d, ok := r.defs[protocol]
	return d, ok, nil
}

// ResolveAncestors walks a protocol-scoped message's descriptor.parentId
// chain, oldest first, returning the full chain of ancestor messages
// within tenant. An empty parentId yields an empty, complete chain.
// complete is false when msg (or one of its declared ancestors) names a
// parentId that does not resolve to any stored record.
func ResolveAncestors(ctx context.Context, st store.MessageStore, tenant string, msg *dwnmessage.Message) (chain []*dwnmessage.Message, complete bool, err error) {
	parentID := msg.Descriptor.ParentID
	seen := make(map[string]bool)

	for parentID != "" {
		if seen[parentID] {
			return nil, false, fmt.Errorf("protocol: cyclic parentId chain at %s", parentID)
		}
		seen[parentID] = true

		rec, ok, err := st.Get(ctx, tenant, parentID)
		if err != nil {
			return nil, false, fmt.Errorf("protocol: failed to resolve ancestor %s: %w", parentID, err)
		}

		if !ok {
			return nil, false, nil
		}

		chain = append([]*dwnmessage.Message{&rec.Message}, chain...)
		parentID = rec.Message.Descriptor.ParentID
	}

	return chain, true, nil
}
