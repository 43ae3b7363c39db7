package ledger

import (
	"context"
)

// Snapshotter is implemented by in-memory stores. Snapshot captures the
// store's state and returns a function restoring it.
type Snapshotter interface {
	Snapshot() (restore func())
}

// MemoryBackend makes operations atomic over in-memory stores by
// snapshotting every participant before the operation and restoring them
// when it reverts.
type MemoryBackend struct {
	participants []Snapshotter
	seq          uint64
}

func NewMemoryBackend(participants ...Snapshotter) *MemoryBackend {
	return &MemoryBackend{participants: participants}
}

// Register adds participants. It must not be called while operations run.
func (b *MemoryBackend) Register(participants ...Snapshotter) {
	b.participants = append(b.participants, participants...)
}

// Seq returns the sequence number of the last committed operation.
func (b *MemoryBackend) Seq() uint64 {
	return b.seq
}

func (b *MemoryBackend) Begin(ctx context.Context) (context.Context, Tx, error) {
	restores := make([]func(), 0, len(b.participants))
	for _, p := range b.participants {
		restores = append(restores, p.Snapshot())
	}
	return ctx, &memoryTx{backend: b, restores: restores}, nil
}

type memoryTx struct {
	backend  *MemoryBackend
	restores []func()
	done     bool
}

func (t *memoryTx) NextSeq(context.Context) (uint64, error) {
	return t.backend.seq + 1, nil
}

func (t *memoryTx) Commit(_ context.Context, receipt Receipt) error {
	t.backend.seq = receipt.Seq
	t.done = true
	return nil
}

func (t *memoryTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	for i := len(t.restores) - 1; i >= 0; i-- {
		t.restores[i]()
	}
	return nil
}
