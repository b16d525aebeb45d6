// Package codec implements the bit-exact 512-byte block format used by
// the index file: one header block at offset 0, and a node block for
// every block id thereafter.
package codec

import (
	"encoding/binary"
	"errors"
)

// BlockSize is the fixed size, in bytes, of every block in an index file.
const BlockSize = 512

// MaxKeys and MaxChildren are the node fanout constants. A node holds at
// most MaxKeys keys; insertion into a full node triggers a split.
const (
	MaxKeys     = 19
	MaxChildren = 20
)

// Magic is the 8 ASCII bytes that open every valid index file.
const Magic = "4348PRJ3"

// Header block field offsets.
const (
	headerMagicOffset   = 0
	headerRootOffset    = 8
	headerNextOffset    = 16
	headerReservedStart = 24
)

// Node block field offsets.
const (
	nodeBlockIDOffset  = 0
	nodeParentIDOffset = 8
	nodeNumKeysOffset  = 16
	nodeKeysOffset     = 24
	nodeValuesOffset   = nodeKeysOffset + MaxKeys*8  // 176
	nodeChildrenOffset = nodeValuesOffset + MaxKeys*8 // 328
	nodeReservedStart  = nodeChildrenOffset + MaxChildren*8
)

// ErrMalformedBlock is returned by DecodeNode when a block's declared key
// count exceeds MaxKeys.
var ErrMalformedBlock = errors.New("codec: malformed block: num_keys exceeds capacity")

// Node is the in-memory representation of one node block. Keys and
// Values always have the same length (the node's live key count).
// Children may be empty for a leaf built in memory; a freshly decoded
// node always carries MaxChildren entries, all zero for a leaf and with
// the first len(Keys)+1 non-zero for an internal node.
// During a split, callers may transiently hold an oversized Node (up to
// MaxKeys+1 keys, MaxChildren+1 children) before trimming and encoding
// the two halves — see pkg/btree.
type Node struct {
	BlockID  uint64
	ParentID uint64
	Keys     []uint64
	Values   []uint64
	Children []uint64
}

// IsLeaf reports whether the node is a leaf, per the format's rule: a
// node is a leaf iff its first child slot is zero. A freshly decoded
// node always carries 20 children slots, so Children[0] is meaningful
// even when len(Keys) is 0.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0 || n.Children[0] == 0
}

// EncodeHeader serializes the header block: magic, root id, next-block
// id, with a zeroed reserved tail.
func EncodeHeader(rootID, nextBlockID uint64) []byte {
	block := make([]byte, BlockSize)
	copy(block[headerMagicOffset:], Magic)
	binary.BigEndian.PutUint64(block[headerRootOffset:], rootID)
	binary.BigEndian.PutUint64(block[headerNextOffset:], nextBlockID)
	return block
}

// DecodeHeader parses a header block, returning the root id and
// next-block id. It does not validate the magic — callers check that
// separately since a bad magic is reported with its own error kind.
func DecodeHeader(block []byte) (rootID, nextBlockID uint64) {
	rootID = binary.BigEndian.Uint64(block[headerRootOffset:])
	nextBlockID = binary.BigEndian.Uint64(block[headerNextOffset:])
	return rootID, nextBlockID
}

// MagicOK reports whether block carries the expected 8-byte magic.
func MagicOK(block []byte) bool {
	return len(block) >= len(Magic) && string(block[headerMagicOffset:headerMagicOffset+len(Magic)]) == Magic
}

// EncodeNode serializes a node into exactly one 512-byte block. Slots
// beyond the live key/value/child count are zeroed. len(n.Children) may
// be 0 (leaf) or up to MaxChildren; anything longer is a programming
// error in the caller (the split path must trim before encoding).
func EncodeNode(n *Node) []byte {
	block := make([]byte, BlockSize)
	binary.BigEndian.PutUint64(block[nodeBlockIDOffset:], n.BlockID)
	binary.BigEndian.PutUint64(block[nodeParentIDOffset:], n.ParentID)
	binary.BigEndian.PutUint64(block[nodeNumKeysOffset:], uint64(len(n.Keys)))

	for i, k := range n.Keys {
		binary.BigEndian.PutUint64(block[nodeKeysOffset+i*8:], k)
	}
	for i, v := range n.Values {
		binary.BigEndian.PutUint64(block[nodeValuesOffset+i*8:], v)
	}
	for i, c := range n.Children {
		binary.BigEndian.PutUint64(block[nodeChildrenOffset+i*8:], c)
	}
	return block
}

// DecodeNode parses a node block. Keys and Values are sized to the
// block's declared num_keys; Children always comes back with exactly
// MaxChildren entries, verbatim, so IsLeaf can inspect Children[0].
func DecodeNode(block []byte) (*Node, error) {
	numKeys := binary.BigEndian.Uint64(block[nodeNumKeysOffset:])
	if numKeys > MaxKeys {
		return nil, ErrMalformedBlock
	}

	n := &Node{
		BlockID:  binary.BigEndian.Uint64(block[nodeBlockIDOffset:]),
		ParentID: binary.BigEndian.Uint64(block[nodeParentIDOffset:]),
		Keys:     make([]uint64, numKeys),
		Values:   make([]uint64, numKeys),
		Children: make([]uint64, MaxChildren),
	}
	for i := uint64(0); i < numKeys; i++ {
		n.Keys[i] = binary.BigEndian.Uint64(block[nodeKeysOffset+int(i)*8:])
		n.Values[i] = binary.BigEndian.Uint64(block[nodeValuesOffset+int(i)*8:])
	}
	for i := 0; i < MaxChildren; i++ {
		n.Children[i] = binary.BigEndian.Uint64(block[nodeChildrenOffset+i*8:])
	}
	return n, nil
}
