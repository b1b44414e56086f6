// Package ipfsblock is a store.BlockBackend backed by a real IPFS
// node, adapted from the teacher's ipfs.IPFSClient (ipfs/ipfs.go):
// same go-ipfs-api shell with a timeout and retry-with-backoff around
// Add/Cat, trimmed down to the two operations a BlockBackend needs and
// generalized from the teacher's Swagger-doc/file-upload use to
// storing arbitrary CollectionsWrite message bytes.
package ipfsblock

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
)

// Backend stores and retrieves raw message bytes against one IPFS
// node's HTTP API.
type Backend struct {
	shell      *shell.Shell
	maxRetries int
}

// New builds a Backend against nodeURL (e.g. "localhost:5001").
func New(nodeURL string) *Backend {
	sh := shell.NewShell(nodeURL)
	sh.SetTimeout(30 * time.Second)

	return &Backend{shell: sh, maxRetries: 3}
}

// Put implements store.BlockBackend: the returned ref is the IPFS CID
// of data.
func (b *Backend) Put(ctx context.Context, data []byte) (string, error) {
	var ref string

	err := b.withRetry(func() error {
		c, err := b.shell.Add(bytes.NewReader(data))
		if err != nil {
			return err
		}

		ref = c
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ipfsblock: failed to store block: %w", err)
	}

	return ref, nil
}

// Get implements store.BlockBackend.
func (b *Backend) Get(ctx context.Context, ref string) ([]byte, error) {
	var data []byte

	err := b.withRetry(func() error {
		r, err := b.shell.Cat(ref)
		if err != nil {
			return err
		}
		defer r.Close()

		data, err = io.ReadAll(r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ipfsblock: failed to fetch block %s: %w", ref, err)
	}

	return data, nil
}

func (b *Backend) withRetry(op func() error) error {
	var err error

	for attempt := 0; attempt < b.maxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}

		if attempt < b.maxRetries-1 {
			time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
		}
	}

	return err
}
