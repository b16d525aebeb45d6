// Package btree implements the on-disk B-tree engine: search,
// duplicate-aware insert with node splitting and root promotion, and
// in-order traversal. It is the core algorithm of the index; every
// method operates on blocks read through a storage.Pager and leaves
// the file in a fully consistent state before returning.
package btree

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/adrennan/cordix/pkg/codec"
	"github.com/adrennan/cordix/pkg/storage"
	"github.com/adrennan/cordix/pkg/telemetry"
)

// ErrEmptyTree is returned by Search and Traverse when the header's
// root id is zero.
var ErrEmptyTree = errors.New("btree: tree is empty")

// ErrDuplicateKey is returned by Insert when the key is already
// present. No blocks are modified when this error is returned.
var ErrDuplicateKey = errors.New("btree: key already exists")

// Tree is a handle onto one open index file's B-tree. It holds no
// state of its own beyond the pager; every operation re-reads
// whatever blocks it needs from disk.
type Tree struct {
	pager   *storage.Pager
	metrics *telemetry.Metrics
}

// New wraps an already-open pager in a Tree.
func New(pager *storage.Pager) *Tree {
	return &Tree{pager: pager}
}

// WithMetrics attaches a metrics sink; every Search, Insert, and
// Traverse records its outcome and duration, and every split
// increments the split counter. Passing nil is a no-op.
func (t *Tree) WithMetrics(m *telemetry.Metrics) *Tree {
	t.metrics = m
	return t
}

// childIndex returns the smallest i such that key < keys[i], or
// len(keys) if no such i exists. This is the single navigation rule
// shared by search and insert: internal nodes route through
// children[i], leaves route insertion position to i.
func childIndex(keys []uint64, key uint64) int {
	for i, k := range keys {
		if key < k {
			return i
		}
	}
	return len(keys)
}

// Search descends from the root looking for key. It returns
// ErrEmptyTree if the tree has no root, and (0, false, nil) if the
// descent runs off a zero child without finding the key.
func (t *Tree) Search(key uint64) (value uint64, found bool, err error) {
	start := time.Now()
	value, found, err = t.search(key)
	t.metrics.RecordTreeOperation("search", err == nil, time.Since(start))
	return value, found, err
}

func (t *Tree) search(key uint64) (value uint64, found bool, err error) {
	rootID, _ := t.pager.ReadHeader()
	if rootID == 0 {
		return 0, false, ErrEmptyTree
	}

	id := rootID
	for id != 0 {
		node, err := t.readNode(id)
		if err != nil {
			return 0, false, err
		}

		idx := 0
		for idx < len(node.Keys) {
			if key == node.Keys[idx] {
				return node.Values[idx], true, nil
			}
			if key < node.Keys[idx] {
				break
			}
			idx++
		}

		if node.IsLeaf() {
			return 0, false, nil
		}
		id = node.Children[idx]
	}
	return 0, false, nil
}

// keyExists is the duplicate-detection hook used by Insert: the same
// descent as Search, reduced to a predicate.
func (t *Tree) keyExists(rootID, key uint64) (bool, error) {
	id := rootID
	for id != 0 {
		node, err := t.readNode(id)
		if err != nil {
			return false, err
		}
		for _, k := range node.Keys {
			if k == key {
				return true, nil
			}
		}
		if node.IsLeaf() {
			return false, nil
		}
		id = node.Children[childIndex(node.Keys, key)]
	}
	return false, nil
}

// Insert adds (key, value) to the tree, rejecting duplicates and
// splitting full nodes upward as far as the root.
//
// Three shapes of the header's root id select three code paths:
//  1. Empty tree (root id 0): allocate one leaf, make it root.
//  2. Duplicate key: abort, no blocks touched.
//  3. Normal descent: walk to the target leaf, insert, and if the
//     leaf overflowed MaxKeys, split and propagate the promoted
//     median upward until some ancestor (possibly a freshly
//     allocated root) absorbs it without overflowing.
func (t *Tree) Insert(key, value uint64) error {
	start := time.Now()
	err := t.insert(key, value)
	t.metrics.RecordTreeOperation("insert", err == nil || errors.Is(err, ErrDuplicateKey), time.Since(start))
	return err
}

func (t *Tree) insert(key, value uint64) error {
	rootID, _ := t.pager.ReadHeader()

	if rootID == 0 {
		id := t.pager.Allocate()
		leaf := &codec.Node{BlockID: id, ParentID: 0, Keys: []uint64{key}, Values: []uint64{value}}
		if err := t.writeNode(leaf); err != nil {
			return err
		}
		return t.finalizeHeader(id)
	}

	exists, err := t.keyExists(rootID, key)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateKey
	}

	path, leaf, err := t.descendToLeaf(rootID, key)
	if err != nil {
		return err
	}

	idx := childIndex(leaf.Keys, key)
	leaf.Keys = insertAt(leaf.Keys, idx, key)
	leaf.Values = insertAt(leaf.Values, idx, value)

	if len(leaf.Keys) <= codec.MaxKeys {
		if err := t.writeNode(leaf); err != nil {
			return err
		}
		return t.finalizeHeader(rootID)
	}

	return t.splitAndPropagate(path, leaf, true)
}

// RootKey returns the sole key held by the root node. It is meaningful
// immediately after a split has propagated all the way to the root,
// when the freshly allocated root always holds exactly one key; callers
// use it to report which key got promoted without threading that value
// back out of the insert/split recursion.
func (t *Tree) RootKey() (uint64, error) {
	rootID, _ := t.pager.ReadHeader()
	if rootID == 0 {
		return 0, ErrEmptyTree
	}
	node, err := t.readNode(rootID)
	if err != nil {
		return 0, err
	}
	if len(node.Keys) == 0 {
		return 0, ErrEmptyTree
	}
	return node.Keys[0], nil
}

// RootID returns the header's current root block id, or 0 if the tree
// is empty.
func (t *Tree) RootID() uint64 {
	rootID, _ := t.pager.ReadHeader()
	return rootID
}

// Height returns the number of levels in the tree by descending the
// leftmost spine from the root, or 0 for an empty tree.
func (t *Tree) Height() (int, error) {
	rootID, _ := t.pager.ReadHeader()
	if rootID == 0 {
		return 0, nil
	}
	height := 0
	id := rootID
	for id != 0 {
		node, err := t.readNode(id)
		if err != nil {
			return 0, err
		}
		height++
		if node.IsLeaf() {
			break
		}
		id = node.Children[0]
	}
	return height, nil
}

// InsertShape classifies which of the three observable insert outcomes
// occurred, matching the three distinct messages the original CLI
// reports for a successful insert.
type InsertShape int

const (
	// InsertOrdinary is a leaf insert with no split, or a split that
	// some existing ancestor (the root included) absorbed without
	// overflowing.
	InsertOrdinary InsertShape = iota
	// InsertAsRoot is the very first insert into an empty tree.
	InsertAsRoot
	// InsertRootSplit is a split that propagated all the way to the
	// root, allocating a brand new root.
	InsertRootSplit
)

// InsertOutcome reports which shape a successful Insert took.
// PromotedKey is only meaningful when Shape is InsertRootSplit, where
// it holds the key that now sits alone in the new root.
type InsertOutcome struct {
	Shape       InsertShape
	PromotedKey uint64
}

// InsertReporting wraps Insert with enough before/after header state to
// classify the outcome, for callers (the CLI, the loader) that need to
// report which of the three success shapes occurred. It does not
// duplicate any split logic: it compares the header's root id before
// and after the call and, on a root change, reads the new root's sole
// key back out.
func (t *Tree) InsertReporting(key, value uint64) (InsertOutcome, error) {
	rootBefore, _ := t.pager.ReadHeader()
	if err := t.Insert(key, value); err != nil {
		return InsertOutcome{}, err
	}
	rootAfter, _ := t.pager.ReadHeader()

	switch {
	case rootBefore == 0:
		return InsertOutcome{Shape: InsertAsRoot}, nil
	case rootAfter != rootBefore:
		promoted, err := t.RootKey()
		if err != nil {
			return InsertOutcome{}, err
		}
		return InsertOutcome{Shape: InsertRootSplit, PromotedKey: promoted}, nil
	default:
		return InsertOutcome{Shape: InsertOrdinary}, nil
	}
}

// descendToLeaf walks from rootID to the leaf that would receive key,
// recording the path of block ids (root first, leaf last) for later
// split propagation.
func (t *Tree) descendToLeaf(rootID, key uint64) ([]uint64, *codec.Node, error) {
	var path []uint64
	id := rootID
	for {
		node, err := t.readNode(id)
		if err != nil {
			return nil, nil, err
		}
		path = append(path, id)
		if node.IsLeaf() {
			return path, node, nil
		}
		id = node.Children[childIndex(node.Keys, key)]
	}
}

// splitAndPropagate splits an oversized node (one that was just given
// its 20th key) and promotes the median upward, repeating against
// ancestors until one absorbs the promoted entry without overflowing,
// or the root itself splits and a new root is allocated.
//
// path holds the block ids from root to the node that just
// overflowed, inclusive; node is that node's in-memory, oversized
// state (20 keys; 21 children if isLeaf is false). isLeaf tracks
// whether the current node being split is a leaf, since a freshly
// decoded internal node's Children slice already carries the extra
// entry and must not be reinterpreted as leaf-shaped.
func (t *Tree) splitAndPropagate(path []uint64, node *codec.Node, isLeaf bool) error {
	for {
		t.metrics.RecordNodeSplit()
		mid := len(node.Keys) / 2
		promotedKey := node.Keys[mid]
		promotedValue := node.Values[mid]

		left := &codec.Node{
			BlockID:  node.BlockID,
			ParentID: node.ParentID,
			Keys:     append([]uint64(nil), node.Keys[:mid]...),
			Values:   append([]uint64(nil), node.Values[:mid]...),
		}
		rightID := t.pager.Allocate()
		right := &codec.Node{
			BlockID:  rightID,
			ParentID: node.ParentID,
			Keys:     append([]uint64(nil), node.Keys[mid+1:]...),
			Values:   append([]uint64(nil), node.Values[mid+1:]...),
		}

		if !isLeaf {
			left.Children = append([]uint64(nil), node.Children[:mid+1]...)
			right.Children = append([]uint64(nil), node.Children[mid+1:]...)
		}

		if err := t.rewriteChildParents(left); err != nil {
			return err
		}
		if err := t.rewriteChildParents(right); err != nil {
			return err
		}

		path = path[:len(path)-1] // pop the node that just split

		if len(path) == 0 {
			newRootID := t.pager.Allocate()
			left.ParentID = newRootID
			right.ParentID = newRootID
			newRoot := &codec.Node{
				BlockID:  newRootID,
				ParentID: 0,
				Keys:     []uint64{promotedKey},
				Values:   []uint64{promotedValue},
				Children: []uint64{left.BlockID, right.BlockID},
			}
			if err := t.writeNode(left); err != nil {
				return err
			}
			if err := t.writeNode(right); err != nil {
				return err
			}
			if err := t.writeNode(newRoot); err != nil {
				return err
			}
			return t.finalizeHeader(newRootID)
		}

		if err := t.writeNode(left); err != nil {
			return err
		}
		if err := t.writeNode(right); err != nil {
			return err
		}

		parentID := path[len(path)-1]
		parent, err := t.readNode(parentID)
		if err != nil {
			return err
		}

		idx := childIndex(parent.Keys, promotedKey)
		parent.Keys = insertAt(parent.Keys, idx, promotedKey)
		parent.Values = insertAt(parent.Values, idx, promotedValue)
		parent.Children[idx] = left.BlockID
		parent.Children = insertAt(parent.Children, idx+1, right.BlockID)

		if len(parent.Keys) <= codec.MaxKeys {
			// parent.Children was decoded at its fixed 20-slot width and
			// grew by one during the shift above; trim the zero-padded
			// tail back down to the meaningful n+1 entries before encoding.
			parent.Children = parent.Children[:len(parent.Keys)+1]
			if err := t.writeNode(parent); err != nil {
				return err
			}
			currentRoot, _ := t.pager.ReadHeader()
			return t.finalizeHeader(currentRoot)
		}

		node = parent
		isLeaf = false
	}
}

// rewriteChildParents updates the parent_id of every non-zero child
// of node to node.BlockID. Required after every split: the format
// stores parent pointers redundantly alongside the descent path, and
// they must never go stale.
func (t *Tree) rewriteChildParents(node *codec.Node) error {
	for _, childID := range node.Children {
		if childID == 0 {
			continue
		}
		child, err := t.readNode(childID)
		if err != nil {
			return err
		}
		child.ParentID = node.BlockID
		if err := t.writeNode(child); err != nil {
			return err
		}
	}
	return nil
}

// Traverse performs an in-order walk of the tree, writing
// "key,value\n" lines to w for every entry in ascending key order.
func (t *Tree) Traverse(w io.Writer) error {
	start := time.Now()
	rootID, _ := t.pager.ReadHeader()
	if rootID == 0 {
		t.metrics.RecordTreeOperation("traverse", false, time.Since(start))
		return ErrEmptyTree
	}
	err := t.traverseNode(rootID, w)
	t.metrics.RecordTreeOperation("traverse", err == nil, time.Since(start))
	return err
}

func (t *Tree) traverseNode(id uint64, w io.Writer) error {
	node, err := t.readNode(id)
	if err != nil {
		return err
	}

	n := len(node.Keys)
	leaf := node.IsLeaf()
	for i := 0; i < n; i++ {
		if !leaf {
			if err := t.traverseNode(node.Children[i], w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%d,%d\n", node.Keys[i], node.Values[i]); err != nil {
			return err
		}
	}
	if !leaf {
		if err := t.traverseNode(node.Children[n], w); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) readNode(id uint64) (*codec.Node, error) {
	block, err := t.pager.ReadBlock(id)
	if err != nil {
		return nil, err
	}
	return codec.DecodeNode(block)
}

func (t *Tree) writeNode(n *codec.Node) error {
	return t.pager.WriteBlock(n.BlockID, codec.EncodeNode(n))
}

// finalizeHeader persists rootID together with the pager's current
// in-memory next-block-id counter. Every mutating exit path calls
// this exactly once; read-only paths (duplicate rejection, search)
// never do.
func (t *Tree) finalizeHeader(rootID uint64) error {
	_, next := t.pager.ReadHeader()
	return t.pager.WriteHeader(rootID, next)
}

// insertAt inserts v at index i in s, shifting the tail right by one.
func insertAt[T any](s []T, i int, v T) []T {
	s = append(s, v)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
