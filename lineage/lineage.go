// Package lineage resolves the version chain of a record (C5): its
// root (first-ever message) and current tip (the version conflict
// resolution has selected as authoritative), and validates that an
// incoming update points at that tip or at the root.
package lineage

import (
	"context"
	"fmt"

	"github.com/dwnlabs/dwn-core/cid"
	"github.com/dwnlabs/dwn-core/dwnerrors"
	"github.com/dwnlabs/dwn-core/dwnmessage"
	"github.com/dwnlabs/dwn-core/store"
)

// Lineage is the resolved version chain of a single record.
type Lineage struct {
	Root *dwnmessage.Message
	Tip  *dwnmessage.Message
}

// Resolve loads every stored version of recordID and identifies its
// root and tip. It returns (nil, false, nil) when the record does not
// exist yet, which the caller treats as "this write is a new root".
func Resolve(ctx context.Context, st store.MessageStore, tenant, recordID string) (*Lineage, bool, error) {
	records, err := st.Query(ctx, tenant, store.NewFilter(store.WithRecordID(recordID)))
	if err != nil {
		return nil, false, fmt.Errorf("lineage: failed to query versions: %w", err)
	}

	if len(records) == 0 {
		return nil, false, nil
	}

	var root, tip *dwnmessage.Message

	for i := range records {
		if records[i].Message.LineageParent == "" {
			root = &records[i].Message
		}

		if records[i].IndexTags.IsLatestTip {
			tip = &records[i].Message
		}
	}

	if root == nil {
		return nil, false, dwnerrors.LineageRootMissing()
	}

	if tip == nil {
		tip = root
	}

	return &Lineage{Root: root, Tip: tip}, true, nil
}

// ValidateParent checks incoming, a write to an existing lineage. A
// message with a lineageParent must name the message CID of tip or of
// root; a lineageParent naming any other earlier version is rejected.
// A message without a lineageParent passes only when it is root itself
// (a resubmission), leaving the outcome to the conflict rule. root's
// recordId is reported in the BadLineageParent detail (spec §4.5: "the
// expected root recordId in the detail"), not a CID.
func ValidateParent(incoming *dwnmessage.Message, tip *dwnmessage.Message, root *dwnmessage.Message) error {
	rootCID, err := cid.String(root)
	if err != nil {
		return fmt.Errorf("lineage: failed to derive root cid: %w", err)
	}

	if incoming.LineageParent == "" {
		if incomingCID, err := cid.String(incoming); err != nil || incomingCID != rootCID {
			return dwnerrors.BadLineageParent(root.RecordID)
		}

		return nil
	}

	expected, err := cid.String(tip)
	if err != nil {
		return fmt.Errorf("lineage: failed to derive tip cid: %w", err)
	}

	if incoming.LineageParent != expected && incoming.LineageParent != rootCID {
		return dwnerrors.BadLineageParent(root.RecordID)
	}

	return nil
}
