// Package storage implements positional, fixed-block I/O over an index
// file: one header block at offset 0, and a node block at every
// subsequent block id. All reads and writes move exactly one 512-byte
// block at a time.
package storage

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/adrennan/cordix/pkg/codec"
	"github.com/adrennan/cordix/pkg/telemetry"
)

// ErrAlreadyExists is returned by Create when the target path already
// names a file.
var ErrAlreadyExists = errors.New("storage: index file already exists")

// ErrNotFound is returned by Open when the target path does not exist.
var ErrNotFound = errors.New("storage: index file does not exist")

// ErrBadMagic is returned by Open when the file exists but its header
// block does not carry the expected magic bytes.
var ErrBadMagic = errors.New("storage: not a valid index file")

// Pager owns the open file handle and the in-memory next-block-id
// counter for one index file. It is not safe for concurrent use by
// more than one goroutine at a time; the CLI opens one Pager per
// invocation and closes it before the process exits.
type Pager struct {
	file       *os.File
	mutex      sync.Mutex
	rootID     uint64
	nextID     uint64
	headerDone bool // true once write_header has been called this session
	metrics    *telemetry.Metrics
}

// WithMetrics attaches a metrics sink to the pager; every subsequent
// ReadBlock/WriteBlock call increments its block counters. Passing
// nil (the zero value) is a no-op, matching telemetry.Metrics' own
// nil-safety.
func (p *Pager) WithMetrics(m *telemetry.Metrics) *Pager {
	p.metrics = m
	return p
}

// Create makes a brand-new index file at path: one header block with
// root_id = 0, next_block_id = 1, and a zeroed tail. It fails with
// ErrAlreadyExists if path already names a file.
func Create(path string) (*Pager, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, ErrAlreadyExists
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}

	header := codec.EncodeHeader(0, 1)
	if _, err := file.WriteAt(header, 0); err != nil {
		file.Close()
		return nil, err
	}

	return &Pager{file: file, rootID: 0, nextID: 1}, nil
}

// Open opens an existing index file at path, validating its header
// magic and loading the root id and next-block id counter into
// memory. It fails with ErrNotFound or ErrBadMagic depending on
// condition.
func Open(path string) (*Pager, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	block := make([]byte, codec.BlockSize)
	if _, err := file.ReadAt(block, 0); err != nil {
		file.Close()
		return nil, fmt.Errorf("storage: reading header block: %w", err)
	}
	if !codec.MagicOK(block) {
		file.Close()
		return nil, ErrBadMagic
	}

	rootID, nextID := codec.DecodeHeader(block)
	return &Pager{file: file, rootID: rootID, nextID: nextID}, nil
}

// ReadBlock reads the 512-byte block at id.
func (p *Pager) ReadBlock(id uint64) ([]byte, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	block := make([]byte, codec.BlockSize)
	off := int64(id) * codec.BlockSize
	if _, err := p.file.ReadAt(block, off); err != nil {
		return nil, fmt.Errorf("storage: reading block %d: %w", id, err)
	}
	p.metrics.RecordBlockRead()
	return block, nil
}

// WriteBlock writes exactly one 512-byte block at id. block must be
// codec.BlockSize bytes long.
func (p *Pager) WriteBlock(id uint64, block []byte) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(block) != codec.BlockSize {
		return fmt.Errorf("storage: block must be %d bytes, got %d", codec.BlockSize, len(block))
	}
	off := int64(id) * codec.BlockSize
	if _, err := p.file.WriteAt(block, off); err != nil {
		return fmt.Errorf("storage: writing block %d: %w", id, err)
	}
	p.metrics.RecordBlockWrite()
	return nil
}

// ReadHeader returns the in-memory root id and next-block id: as loaded
// at Open or last written by WriteHeader, with the next-block id advanced
// by every Allocate call since. It does not read the header block.
func (p *Pager) ReadHeader() (rootID, nextBlockID uint64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.rootID, p.nextID
}

// WriteHeader persists root_id and next_block_id to the header block
// and updates the in-memory counters.
func (p *Pager) WriteHeader(rootID, nextBlockID uint64) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	block := codec.EncodeHeader(rootID, nextBlockID)
	if _, err := p.file.WriteAt(block, 0); err != nil {
		return fmt.Errorf("storage: writing header: %w", err)
	}
	p.rootID = rootID
	p.nextID = nextBlockID
	p.headerDone = true
	return nil
}

// Allocate returns the current next-block id and increments the
// in-memory counter. The counter is only durable once WriteHeader is
// called; callers must write the header before returning control if
// they allocated any blocks.
func (p *Pager) Allocate() uint64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	id := p.nextID
	p.nextID++
	return id
}

// Close flushes the file to disk and closes the handle. Writes made
// via WriteBlock/WriteHeader are not required to be durable until
// Close returns.
func (p *Pager) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if err := p.file.Sync(); err != nil {
		p.file.Close()
		return fmt.Errorf("storage: syncing index file: %w", err)
	}
	return p.file.Close()
}
