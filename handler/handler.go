// Package handler implements CollectionsWrite request processing (C7):
// the pipeline that turns an inbound message into either a stored,
// possibly-anchored record or a rejected write, and the query path that
// reads records back out.
package handler

import (
	"context"
	"fmt"

	"github.com/dwnlabs/dwn-core/anchor"
	"github.com/dwnlabs/dwn-core/cid"
	"github.com/dwnlabs/dwn-core/didresolver"
	"github.com/dwnlabs/dwn-core/dwnerrors"
	"github.com/dwnlabs/dwn-core/dwnlog"
	"github.com/dwnlabs/dwn-core/dwnmessage"
	"github.com/dwnlabs/dwn-core/jws"
	"github.com/dwnlabs/dwn-core/lineage"
	"github.com/dwnlabs/dwn-core/protocol"
	"github.com/dwnlabs/dwn-core/store"
)

// Handler wires together every collaborator the write pipeline needs.
// Registry and Anchorer must be non-nil when HandleWrite runs; New
// fills a nil one with an empty registry (rejecting every
// protocol-scoped write) or a no-op anchorer respectively.
type Handler struct {
	Store    store.MessageStore
	Resolver didresolver.Resolver
	Registry protocol.Registry
	Anchorer anchor.Anchorer

	locks stripedLocks
}

// New builds a Handler. Pass nil for registry or anchorer to disable
// protocol-scoped writes or anchoring respectively.
func New(st store.MessageStore, resolver didresolver.Resolver, registry protocol.Registry, anchorer anchor.Anchorer) *Handler {
	if registry == nil {
		registry = protocol.NewStaticRegistry()
	}

	if anchorer == nil {
		anchorer = anchor.Noop{}
	}

	return &Handler{Store: st, Resolver: resolver, Registry: registry, Anchorer: anchorer}
}

// WriteReply is the outcome of HandleWrite.
type WriteReply struct {
	dwnerrors.Result
	MessageCID string
}

// QueryReply is the outcome of HandleQuery.
type QueryReply struct {
	dwnerrors.Result
	Records []store.Record
}

// HandleWrite runs msg through the full validation pipeline and, if it
// passes, commits it to Store. It returns a non-nil error only for
// infrastructure failures (store or CID derivation errors); rejected
// writes, including those whose DID cannot be resolved, come back as a
// WriteReply whose Result.IsError() is true.
func (h *Handler) HandleWrite(ctx context.Context, tenant string, msg *dwnmessage.Message) (WriteReply, error) {
	logger := dwnlog.ForTenant(dwnlog.From(ctx), tenant)

	if err := validateEnvelope(msg); err != nil {
		return WriteReply{Result: dwnerrors.BadRequest(err.Error())}, nil
	}

	unlock := h.locks.lock(tenant + "/" + msg.RecordID)
	defer unlock()

	if err := jws.Verify(ctx, msg.Authorization, h.Resolver); err != nil {
		logger.Warn("authorization verification failed", "recordId", msg.RecordID, "error", err)
		return WriteReply{Result: dwnerrors.BadSignature()}, nil
	}

	signer, err := jws.Signer(msg.Authorization)
	if err != nil {
		return WriteReply{Result: dwnerrors.BadSignature()}, nil
	}
	msg.Author = signer

	ancestors, ancestorsComplete, err := protocol.ResolveAncestors(ctx, h.Store, tenant, msg)
	if err != nil {
		return WriteReply{}, fmt.Errorf("handler: failed to resolve protocol ancestors: %w", err)
	}

	ancestorRecordIDs := make([]string, 0, len(ancestors)+1)
	for _, a := range ancestors {
		ancestorRecordIDs = append(ancestorRecordIDs, a.RecordID)
	}
	ancestorRecordIDs = append(ancestorRecordIDs, msg.RecordID)

	lin, exists, err := lineage.Resolve(ctx, h.Store, tenant, msg.RecordID)
	if err != nil {
		if res, ok := err.(dwnerrors.Result); ok {
			return WriteReply{Result: res}, nil
		}
		return WriteReply{}, fmt.Errorf("handler: failed to resolve lineage: %w", err)
	}

	selfOpts := dwnmessage.SelfValidateOptions{AncestorRecordIDs: ancestorRecordIDs}
	if exists {
		selfOpts.Root = lin.Root
	}

	if result := dwnmessage.SelfValidate(msg, selfOpts); result.IsError() {
		return WriteReply{Result: result}, nil
	}

	var tip *dwnmessage.Message
	if exists {
		tip = lin.Tip

		if err := lineage.ValidateParent(msg, tip, lin.Root); err != nil {
			if res, ok := err.(dwnerrors.Result); ok {
				return WriteReply{Result: res}, nil
			}
			return WriteReply{}, fmt.Errorf("handler: failed to validate lineage parent: %w", err)
		}
	}

	if result := protocol.Authorize(ctx, h.Registry, msg, ancestors, ancestorsComplete, tip); result.IsError() {
		return WriteReply{Result: result}, nil
	}

	messageCID, err := cid.String(msg)
	if err != nil {
		return WriteReply{}, fmt.Errorf("handler: failed to derive message cid: %w", err)
	}

	// §4.7 step 7: decide accept/conflict/no-op against the current tip
	// before the write ever reaches Store.Put, so a losing or duplicate
	// write never gets appended as another version.
	if tip != nil {
		tipCID, err := cid.String(tip)
		if err != nil {
			return WriteReply{}, fmt.Errorf("handler: failed to derive tip cid: %w", err)
		}

		if messageCID == tipCID {
			return WriteReply{Result: dwnerrors.Accepted(), MessageCID: messageCID}, nil
		}

		candidate := store.IndexTags{DateModified: msg.Descriptor.DateModified, MessageCID: messageCID}
		current := store.IndexTags{DateModified: tip.Descriptor.DateModified, MessageCID: tipCID}

		if !store.Supersedes(candidate, current) {
			return WriteReply{Result: dwnerrors.Conflict()}, nil
		}
	}

	rec := store.Record{
		Message: *msg,
		IndexTags: store.IndexTags{
			Tenant:       tenant,
			RecordID:     msg.RecordID,
			ContextID:    msg.ContextID,
			Protocol:     msg.Descriptor.Protocol,
			Schema:       msg.Descriptor.Schema,
			Recipient:    msg.Descriptor.Recipient,
			Author:       msg.Author,
			DateModified: msg.Descriptor.DateModified,
			MessageCID:   messageCID,
		},
	}

	if err := h.Store.Put(ctx, tenant, rec); err != nil {
		return WriteReply{}, fmt.Errorf("handler: failed to commit record: %w", err)
	}

	if receipt, err := h.Anchorer.Anchor(ctx, tenant, msg.RecordID, messageCID); err != nil {
		logger.Warn("anchoring failed, record committed unanchored", "recordId", msg.RecordID, "error", err)
	} else if receipt.TxID != "" {
		logger.Info("record anchored", "recordId", msg.RecordID, "txId", receipt.TxID)
	}

	return WriteReply{Result: dwnerrors.Accepted(), MessageCID: messageCID}, nil
}

// HandleQuery returns every stored record in tenant matching filter.
func (h *Handler) HandleQuery(ctx context.Context, tenant string, filter store.Filter) (QueryReply, error) {
	records, err := h.Store.Query(ctx, tenant, filter)
	if err != nil {
		return QueryReply{}, fmt.Errorf("handler: query failed: %w", err)
	}

	return QueryReply{Result: dwnerrors.OK(), Records: records}, nil
}
