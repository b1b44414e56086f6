// Package store defines the message store abstraction (C3): an
// append-only, tag-indexed home for CollectionsWrite messages. Concrete
// backends live in sibling packages (store/sqlstore); package cache
// wraps any MessageStore with a read-through Redis layer.
package store

import (
	"context"

	"github.com/dwnlabs/dwn-core/dwnmessage"
)

// IndexTags are the queryable attributes the store maintains alongside
// each stored message, denormalized out of the descriptor so Query does
// not need to deserialize every candidate message to filter it.
type IndexTags struct {
	Tenant       string
	RecordID     string
	ContextID    string
	Protocol     string
	Schema       string
	Recipient    string
	Author       string
	DateModified string
	MessageCID   string
	IsLatestTip  bool
}

// Record is a stored message plus its index tags, as returned by Query.
type Record struct {
	Message   dwnmessage.Message
	IndexTags IndexTags
}

// Filter narrows a Query. Zero-value fields are not applied; use the
// With* constructors to build one.
type Filter struct {
	RecordID       string
	ContextID      string
	Protocol       string
	Schema         string
	Recipient      string
	Author         string
	LatestTipsOnly bool
	Limit          int
}

// FilterOption mutates a Filter being built by NewFilter.
type FilterOption func(*Filter)

// NewFilter builds a Filter from a list of options.
func NewFilter(opts ...FilterOption) Filter {
	var f Filter
	for _, opt := range opts {
		opt(&f)
	}

	return f
}

func WithRecordID(id string) FilterOption    { return func(f *Filter) { f.RecordID = id } }
func WithContextID(id string) FilterOption   { return func(f *Filter) { f.ContextID = id } }
func WithProtocol(p string) FilterOption     { return func(f *Filter) { f.Protocol = p } }
func WithSchema(s string) FilterOption       { return func(f *Filter) { f.Schema = s } }
func WithRecipient(r string) FilterOption    { return func(f *Filter) { f.Recipient = r } }
func WithAuthor(a string) FilterOption       { return func(f *Filter) { f.Author = a } }
func WithLatestTipOnly() FilterOption        { return func(f *Filter) { f.LatestTipsOnly = true } }
func WithLimit(n int) FilterOption           { return func(f *Filter) { f.Limit = n } }

// BlockBackend is an optional external content store for raw message
// bytes, letting a MessageStore keep only index tags and a reference
// in its own tables. store/ipfsblock implements this against a real
// IPFS node (spec.md §1's "external block store", now concretely
// wireable instead of assumed).
type BlockBackend interface {
	Put(ctx context.Context, data []byte) (ref string, err error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

// MessageStore is the persistence contract every DWN tenant's message
// history is read from and written to. Implementations must be safe
// for concurrent use; callers (package handler) serialize writes to
// the same (tenant, recordId) themselves, so a backend need not.
type MessageStore interface {
	// Open prepares the backend for use (connecting, migrating).
	Open(ctx context.Context) error
	// Close releases any held resources.
	Close() error

	// Put appends a message version, replacing whichever prior record
	// shares RecordID as the "latest tip" if this one supersedes it.
	Put(ctx context.Context, tenant string, rec Record) error
	// Get returns the current latest-tip record for recordID, or
	// (Record{}, false, nil) if none exists.
	Get(ctx context.Context, tenant, recordID string) (Record, bool, error)
	// Query returns every record in tenant matching filter.
	Query(ctx context.Context, tenant string, filter Filter) ([]Record, error)
	// Delete removes every version of recordID in tenant.
	Delete(ctx context.Context, tenant, recordID string) error
	// Clear removes every record belonging to tenant. Intended for
	// tests and administrative tooling, not the write pipeline.
	Clear(ctx context.Context, tenant string) error
}
