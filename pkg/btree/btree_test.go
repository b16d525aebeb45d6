package btree

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/adrennan/cordix/pkg/storage"
)

func openTestTree(t *testing.T) (*Tree, *storage.Pager) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	pager, err := storage.Create(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { pager.Close() })
	return New(pager), pager
}

func TestSearchOnEmptyTree(t *testing.T) {
	tree, _ := openTestTree(t)

	if _, _, err := tree.Search(5); err != ErrEmptyTree {
		t.Fatalf("expected ErrEmptyTree, got %v", err)
	}
}

func TestInsertAndSearchSingleLeaf(t *testing.T) {
	tree, _ := openTestTree(t)

	if err := tree.Insert(10, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tree.Insert(20, 200); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tree.Insert(5, 50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := tree.Traverse(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "5,50\n10,100\n20,200\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}

	value, found, err := tree.Search(20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || value != 200 {
		t.Fatalf("expected (200, true), got (%d, %v)", value, found)
	}
}

func TestInsertDuplicateKeyIsRejected(t *testing.T) {
	tree, _ := openTestTree(t)

	if err := tree.Insert(7, 70); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tree.Insert(7, 71); err != ErrDuplicateKey {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestInsertDuplicateLeavesFileByteIdentical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	pager, err := storage.Create(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tree := New(pager)

	if err := tree.Insert(7, 70); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before, err := pager.ReadBlock(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	beforeLeaf, err := pager.ReadBlock(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := tree.Insert(7, 71); err != ErrDuplicateKey {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	after, err := pager.ReadBlock(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	afterLeaf, err := pager.ReadBlock(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pager.Close()

	if !bytes.Equal(before, after) {
		t.Fatal("expected header block to be byte-identical after rejected duplicate insert")
	}
	if !bytes.Equal(beforeLeaf, afterLeaf) {
		t.Fatal("expected leaf block to be byte-identical after rejected duplicate insert")
	}
}

func TestInsertTwentyKeysSplitsRootIntoTenAndNine(t *testing.T) {
	tree, pager := openTestTree(t)

	for key := uint64(1); key <= 20; key++ {
		if err := tree.Insert(key, key*10); err != nil {
			t.Fatalf("unexpected error inserting %d: %v", key, err)
		}
	}

	rootID, nextID := pager.ReadHeader()
	if rootID != 3 {
		t.Fatalf("expected new root at block 3 (1=leaf, 2=right sibling, 3=new root), got %d", rootID)
	}
	if nextID != 4 {
		t.Fatalf("expected next-block id 4, got %d", nextID)
	}

	root, err := tree.readNode(rootID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(root.Keys) != 1 || root.Keys[0] != 11 {
		t.Fatalf("expected root to hold single promoted key 11, got %v", root.Keys)
	}
	if root.IsLeaf() {
		t.Fatal("expected new root to be internal")
	}

	left, err := tree.readNode(root.Children[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	right, err := tree.readNode(root.Children[1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(left.Keys) != 10 {
		t.Fatalf("expected left sibling to hold 10 keys, got %d", len(left.Keys))
	}
	if len(right.Keys) != 9 {
		t.Fatalf("expected right sibling to hold 9 keys, got %d", len(right.Keys))
	}

	value, found, err := tree.Search(11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || value != 110 {
		t.Fatalf("expected (110, true), got (%d, %v)", value, found)
	}
}

func TestTraverseAscendingAfterManyInserts(t *testing.T) {
	tree, _ := openTestTree(t)

	for key := uint64(1); key <= 100; key++ {
		if err := tree.Insert(key, key*10); err != nil {
			t.Fatalf("unexpected error inserting %d: %v", key, err)
		}
	}

	var buf bytes.Buffer
	if err := tree.Traverse(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	if len(lines) != 100 {
		t.Fatalf("expected 100 lines, got %d", len(lines))
	}
	for i, line := range lines {
		want := []byte{}
		key := i + 1
		want = append(want, []byte(itoa(key))...)
		want = append(want, ',')
		want = append(want, []byte(itoa(key*10))...)
		if !bytes.Equal(line, want) {
			t.Fatalf("line %d: expected %q, got %q", i, want, line)
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestInsertReportingShapes(t *testing.T) {
	tree, _ := openTestTree(t)

	outcome, err := tree.InsertReporting(1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Shape != InsertAsRoot {
		t.Fatalf("expected InsertAsRoot for the first insert, got %v", outcome.Shape)
	}

	for key := uint64(2); key <= 19; key++ {
		outcome, err := tree.InsertReporting(key, key*10)
		if err != nil {
			t.Fatalf("unexpected error inserting %d: %v", key, err)
		}
		if outcome.Shape != InsertOrdinary {
			t.Fatalf("expected InsertOrdinary while the root leaf still has room, got %v for key %d", outcome.Shape, key)
		}
	}

	outcome, err = tree.InsertReporting(20, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Shape != InsertRootSplit {
		t.Fatalf("expected InsertRootSplit on the 20th key, got %v", outcome.Shape)
	}
	if outcome.PromotedKey != 11 {
		t.Fatalf("expected promoted key 11, got %d", outcome.PromotedKey)
	}

	outcome, err = tree.InsertReporting(21, 210)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Shape != InsertOrdinary {
		t.Fatalf("expected a leaf insert absorbed below the root to be InsertOrdinary, got %v", outcome.Shape)
	}
}

func TestHeightAndRootID(t *testing.T) {
	tree, _ := openTestTree(t)

	height, err := tree.Height()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if height != 0 || tree.RootID() != 0 {
		t.Fatalf("expected an empty tree to report height 0 and root id 0, got height=%d root=%d", height, tree.RootID())
	}

	for key := uint64(1); key <= 20; key++ {
		if err := tree.Insert(key, key*10); err != nil {
			t.Fatalf("unexpected error inserting %d: %v", key, err)
		}
	}

	height, err = tree.Height()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if height != 2 {
		t.Fatalf("expected height 2 after a single root split, got %d", height)
	}
	if tree.RootID() != 3 {
		t.Fatalf("expected root id 3, got %d", tree.RootID())
	}
}

func TestInsertPreservesGlobalAscendingOrderWithOutOfOrderKeys(t *testing.T) {
	tree, _ := openTestTree(t)

	keys := []uint64{50, 10, 90, 30, 70, 20, 80, 40, 60, 5}
	for _, k := range keys {
		if err := tree.Insert(k, k); err != nil {
			t.Fatalf("unexpected error inserting %d: %v", k, err)
		}
	}

	var buf bytes.Buffer
	if err := tree.Traverse(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "5,5\n10,10\n20,20\n30,30\n40,40\n50,50\n60,60\n70,70\n80,80\n90,90\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}
