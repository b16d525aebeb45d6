package loader

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrennan/cordix/pkg/btree"
	"github.com/adrennan/cordix/pkg/storage"
)

func TestLoadReportsMalformedAndDuplicateLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	pager, err := storage.Create(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer pager.Close()
	tree := btree.New(pager)

	csv := "3,30\n\nabc,def\n1,10\n3,31\n"
	results, err := Load(strings.NewReader(csv), tree)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 4 {
		t.Fatalf("expected 4 results (blank line skipped), got %d", len(results))
	}

	if results[0].Err != nil || results[0].Key != 3 || results[0].Value != 30 {
		t.Fatalf("expected line 1 to insert (3,30), got %+v", results[0])
	}
	if results[0].Outcome.Shape != btree.InsertAsRoot {
		t.Fatalf("expected first insert into an empty tree to be InsertAsRoot, got %v", results[0].Outcome.Shape)
	}
	if results[1].Line != 3 || !errors.Is(results[1].Err, ErrMalformedLine) {
		t.Fatalf("expected line 3 malformed, got %+v", results[1])
	}
	if results[2].Err != nil || results[2].Key != 1 || results[2].Value != 10 {
		t.Fatalf("expected line 4 to insert (1,10), got %+v", results[2])
	}
	if results[3].Line != 5 || results[3].Err != btree.ErrDuplicateKey {
		t.Fatalf("expected line 5 duplicate, got %+v", results[3])
	}

	var out bytes.Buffer
	if err := tree.Traverse(&out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "1,10\n3,30\n"
	if out.String() != want {
		t.Fatalf("expected %q, got %q", want, out.String())
	}
}

func TestParseLineSplitsOnFirstComma(t *testing.T) {
	key, value, err := parseLine("7, 700")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != 7 || value != 700 {
		t.Fatalf("expected (7, 700), got (%d, %d)", key, value)
	}
}

func TestParseLineRejectsMissingComma(t *testing.T) {
	if _, _, err := parseLine("no-comma-here"); !errors.Is(err, ErrMalformedLine) {
		t.Fatalf("expected ErrMalformedLine, got %v", err)
	}
}
