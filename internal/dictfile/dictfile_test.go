package dictfile

import (
	"compress/gzip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/ianlewis/go-dictzip"
)

const b64alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

func encodeB64(n uint64) string {
	if n == 0 {
		return "A"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{b64alphabet[n&63]}, digits...)
		n >>= 6
	}
	return string(digits)
}

// writeFixture writes a gzip content blob and matching index file into dir
// and returns their paths. Index offsets are written by format: "dec" or
// "b64".
func writeFixture(t *testing.T, dir, format string, defs map[string]string) (string, string) {
	t.Helper()

	words := make([]string, 0, len(defs))
	for w := range defs {
		words = append(words, w)
	}
	// Deterministic blob layout.
	sort.Strings(words)

	var blob strings.Builder
	var index strings.Builder
	for _, w := range words {
		off := uint64(blob.Len())
		blob.WriteString(defs[w])
		length := uint64(blob.Len()) - off
		switch format {
		case "b64":
			fmt.Fprintf(&index, "%s\t%s\t%s\n", w, encodeB64(off), encodeB64(length))
		default:
			fmt.Fprintf(&index, "%s\t%d\t%d\n", w, off, length)
		}
	}

	contentPath := filepath.Join(dir, "test.dict.dz")
	f, err := os.Create(contentPath)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(blob.String())); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	indexPath := filepath.Join(dir, "test.index")
	if err := os.WriteFile(indexPath, []byte(index.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return contentPath, indexPath
}

func TestParse(t *testing.T) {
	dir := t.TempDir()
	contentPath, indexPath := writeFixture(t, dir, "dec", map[string]string{
		"Haus": "house, building",
		"Auto": "car, automobile",
	})

	entries, err := Parse(contentPath, indexPath, "de-en")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	byWord := map[string]Entry{}
	for _, e := range entries {
		byWord[e.Word] = e
	}
	if e := byWord["Haus"]; e.Definition != "house, building" || e.Language != "de-en" {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestParseBase64Offsets(t *testing.T) {
	dir := t.TempDir()
	contentPath, indexPath := writeFixture(t, dir, "b64", map[string]string{
		"Haus": "house, building",
		"Tür":  "door",
	})

	entries, err := Parse(contentPath, indexPath, "de-en")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Definition == "" {
			t.Fatalf("empty definition for %q", e.Word)
		}
	}
}

func TestParseDictzipContent(t *testing.T) {
	dir := t.TempDir()
	contentPath := filepath.Join(dir, "test.dict.dz")
	f, err := os.Create(contentPath)
	if err != nil {
		t.Fatal(err)
	}
	zw, err := dictzip.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write([]byte("house, building")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	indexPath := filepath.Join(dir, "test.index")
	if err := os.WriteFile(indexPath, []byte("Haus\t0\t15\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := Parse(contentPath, indexPath, "de-en")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Definition != "house, building" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestParseSkipsShortLines(t *testing.T) {
	dir := t.TempDir()
	contentPath, _ := writeFixture(t, dir, "dec", map[string]string{
		"Haus": "house",
	})
	indexPath := filepath.Join(dir, "short.index")
	data := "comment line\nHaus\t0\t5\nonly\ttwo\n"
	if err := os.WriteFile(indexPath, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := Parse(contentPath, indexPath, "de-en")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Word != "Haus" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestParseDropsOutOfBoundsRecords(t *testing.T) {
	dir := t.TempDir()
	contentPath, _ := writeFixture(t, dir, "dec", map[string]string{
		"Haus": "house",
	})
	indexPath := filepath.Join(dir, "oob.index")
	data := "Haus\t0\t5\ntruncated\t3\t10000\n"
	if err := os.WriteFile(indexPath, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := Parse(contentPath, indexPath, "de-en")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Word != "Haus" {
		t.Fatalf("out-of-bounds record not dropped: %+v", entries)
	}
}

func TestParseMalformedOffset(t *testing.T) {
	dir := t.TempDir()
	contentPath, _ := writeFixture(t, dir, "dec", map[string]string{
		"Haus": "house",
	})
	indexPath := filepath.Join(dir, "bad.index")
	if err := os.WriteFile(indexPath, []byte("Haus\t!!\t5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Parse(contentPath, indexPath, "de-en")
	if !errors.Is(err, ErrMalformedOffset) {
		t.Fatalf("expected ErrMalformedOffset, got %v", err)
	}
}

func TestParseOffsetValues(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
		ok   bool
	}{
		{"0", 0, true},
		{"12345", 12345, true},
		{"A", 0, true},
		{"B", 1, true},
		{"BA", 64, true},
		{"/", 63, true},
		{"Ev", 64*4 + 47, true},
		{"", 0, false},
		{"a!b", 0, false},
		{"-3", 0, false},
	}
	for _, tc := range cases {
		got, err := parseOffset(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("parseOffset(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("parseOffset(%q) succeeded, want error", tc.in)
		}
	}
}

func TestCleanDefinition(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  house, building  \n  home  \n\n", "house, building home"},
		{`house\nbuilding\n\nhome`, "house building home"},
		{"single", "single"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := cleanDefinition(tc.in); got != tc.want {
			t.Errorf("cleanDefinition(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
