// Package anchor provides an optional post-commit hook that records a
// message's CID on an external ledger. It is consulted after a write
// has already been durably stored; a failure here never unwinds the
// write, it only means the record stays unanchored; nothing retries
// the anchoring.
package anchor

import (
	"context"
	"fmt"
	"time"
)

// Receipt is what an Anchorer returns for a successfully anchored
// message: an opaque reference the caller may log or expose to callers
// wanting proof of anchoring.
type Receipt struct {
	TxID      string
	Timestamp time.Time
}

// Anchorer submits a message's CID for external anchoring.
type Anchorer interface {
	Anchor(ctx context.Context, tenant, recordID, messageCID string) (Receipt, error)
}

// Noop never anchors anything; it is the default when no anchoring
// backend is configured.
type Noop struct{}

func (Noop) Anchor(_ context.Context, _, _, _ string) (Receipt, error) { return Receipt{}, nil }

// TxLogClient anchors by submitting a transaction to a ledger client,
// adapted from the teacher's BlockchainClient.SubmitGenericTransaction:
// a single generic "submit this payload as a transaction" call rather
// than a typed per-domain method.
type TxLogClient struct {
	// Submit performs the actual submission. In the teacher this is
	// BlockchainClient.SubmitGenericTransaction; here it is injected so
	// tests can anchor against a stub instead of a live chain.
	Submit func(txType string, payload map[string]any) (txID string, err error)
}

const txType = "dwn.recordAnchor"

// Anchor submits a transaction whose payload names the record and its
// current message CID, mirroring the teacher's Transaction.Payload
// shape (a map of named fields rather than a fixed struct).
func (c *TxLogClient) Anchor(ctx context.Context, tenant, recordID, messageCID string) (Receipt, error) {
	if c.Submit == nil {
		return Receipt{}, fmt.Errorf("anchor: TxLogClient has no Submit function configured")
	}

	txID, err := c.Submit(txType, map[string]any{
		"tenant":     tenant,
		"recordId":   recordID,
		"messageCid": messageCID,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("anchor: submission failed: %w", err)
	}

	return Receipt{TxID: txID, Timestamp: time.Now()}, nil
}
