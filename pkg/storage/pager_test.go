package storage

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/adrennan/cordix/pkg/codec"
)

func TestCreateWritesHeaderBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	p, err := Create(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	root, next := p.ReadHeader()
	if root != 0 || next != 1 {
		t.Fatalf("expected (root=0, next=1), got (root=%d, next=%d)", root, next)
	}

	block, err := p.ReadBlock(0)
	if err != nil {
		t.Fatalf("unexpected error reading header block: %v", err)
	}
	if !codec.MagicOK(block) {
		t.Fatal("expected header block to carry valid magic")
	}
}

func TestCreateFailsIfFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	p, err := Create(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Close()

	if _, err := Create(path); err != ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestOpenFailsIfFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	if _, err := Open(path); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenFailsOnBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.db")

	p, err := Create(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	garbage := make([]byte, codec.BlockSize)
	copy(garbage, "NOTVALID")
	if err := p.WriteBlock(0, garbage); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Close()

	if _, err := Open(path); err != ErrBadMagic {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestAllocateIncrementsWithoutPersistingUntilWriteHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	p, err := Create(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id := p.Allocate()
	if id != 1 {
		t.Fatalf("expected first allocated id to be 1, got %d", id)
	}
	id2 := p.Allocate()
	if id2 != 2 {
		t.Fatalf("expected second allocated id to be 2, got %d", id2)
	}

	_, next := p.ReadHeader()
	if next != 3 {
		t.Fatalf("expected in-memory next-block id to be 3, got %d", next)
	}

	if err := p.WriteHeader(1, next); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error reopening: %v", err)
	}
	defer reopened.Close()

	root, gotNext := reopened.ReadHeader()
	if root != 1 || gotNext != 3 {
		t.Fatalf("expected persisted (root=1, next=3), got (root=%d, next=%d)", root, gotNext)
	}
}

func TestWriteBlockReadBlockRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	p, err := Create(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	node := &codec.Node{BlockID: 1, ParentID: 0, Keys: []uint64{5}, Values: []uint64{50}}
	block := codec.EncodeNode(node)
	if err := p.WriteBlock(1, block); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := p.ReadBlock(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, block) {
		t.Fatal("expected round-tripped block to match what was written")
	}
}

func TestWriteBlockRejectsWrongSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	p, err := Create(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	if err := p.WriteBlock(1, []byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for undersized block")
	}
}
