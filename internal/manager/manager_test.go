package manager

import (
	"compress/gzip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sagerenn/dictv/internal/index"
	"github.com/sagerenn/dictv/internal/observability"
)

// writeDictPair writes a gzip content blob and index file pair named base
// into dir.
func writeDictPair(t *testing.T, dir, base string, defs map[string]string) (string, string) {
	t.Helper()

	var blob []byte
	var idx []byte
	for w, def := range defs {
		off := len(blob)
		blob = append(blob, def...)
		idx = append(idx, fmt.Sprintf("%s\t%d\t%d\n", w, off, len(def))...)
	}

	dictPath := filepath.Join(dir, base+".dict.dz")
	f, err := os.Create(dictPath)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(blob); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	indexPath := filepath.Join(dir, base+".index")
	if err := os.WriteFile(indexPath, idx, 0o644); err != nil {
		t.Fatal(err)
	}
	return dictPath, indexPath
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := New(t.TempDir(), observability.New("error"))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestImportLocal(t *testing.T) {
	m := newTestManager(t)
	src := t.TempDir()
	dictPath, indexPath := writeDictPair(t, src, "mydict", map[string]string{
		"Haus": "house, building",
		"Auto": "car",
	})

	n, err := m.ImportLocal(dictPath, indexPath, "de-en")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("imported %d entries, want 2", n)
	}

	ix, err := index.Open(m.IndexDir())
	if err != nil {
		t.Fatal(err)
	}
	if ix.Len() != 2 {
		t.Fatalf("index has %d postings, want 2", ix.Len())
	}
	if len(ix.Lookup("haus")) != 1 {
		t.Fatal("imported word not found")
	}
}

func TestImportLocalBadLanguage(t *testing.T) {
	m := newTestManager(t)
	_, err := m.ImportLocal("x.dict.dz", "x.index", "fr-en")
	if !errors.Is(err, ErrUnknownLanguage) {
		t.Fatalf("expected ErrUnknownLanguage, got %v", err)
	}
}

func TestRebuildCombinesSources(t *testing.T) {
	m := newTestManager(t)
	src := t.TempDir()

	dictPath, indexPath := writeDictPair(t, src, "deu-eng-one", map[string]string{
		"Haus": "house",
	})
	if _, err := m.ImportLocal(dictPath, indexPath, "de-en"); err != nil {
		t.Fatal(err)
	}

	dictPath, indexPath = writeDictPair(t, src, "eng-deu-two", map[string]string{
		"house": "Haus",
	})
	if _, err := m.ImportLocal(dictPath, indexPath, "en-de"); err != nil {
		t.Fatal(err)
	}

	stats, err := m.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalEntries != 2 {
		t.Fatalf("total = %d, want 2", stats.TotalEntries)
	}
	if stats.ByLanguage["de-en"] != 1 || stats.ByLanguage["en-de"] != 1 {
		t.Fatalf("unexpected language counts: %v", stats.ByLanguage)
	}
	if stats.IndexSizeBytes <= 0 {
		t.Fatalf("index size = %d, want > 0", stats.IndexSizeBytes)
	}
}

func TestRebuildRecoversLanguageFromFileName(t *testing.T) {
	m := newTestManager(t)
	src := t.TempDir()

	// Import under a name with no language marker; the stored name must
	// gain one so a later rebuild keeps the direction.
	dictPath, indexPath := writeDictPair(t, src, "plain", map[string]string{
		"Tür": "door",
	})
	if _, err := m.ImportLocal(dictPath, indexPath, "de-en"); err != nil {
		t.Fatal(err)
	}

	if err := m.Rebuild(); err != nil {
		t.Fatal(err)
	}

	ix, err := index.Open(m.IndexDir())
	if err != nil {
		t.Fatal(err)
	}
	ps := ix.Lookup("tur")
	if len(ps) != 1 || ps[0].Language != "de-en" {
		t.Fatalf("language lost across rebuild: %+v", ps)
	}
}

func TestStatsWithoutIndex(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Stats()
	if !errors.Is(err, index.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
