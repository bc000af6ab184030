// Package dictfile reads dictionaries in the DICT server suite's on-disk
// convention: a gzip-compressed content blob (usually .dict.dz) paired with
// a tab-separated .index file addressing byte spans inside the decompressed
// blob.
package dictfile

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Entry is one parsed dictionary record. Entries are handed to the index
// builder and not retained afterwards.
type Entry struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
	Language   string `json:"language"`
}

// Parse reads the index file at indexPath and the compressed content blob at
// contentPath and returns one entry per index record. The language tag is
// attached verbatim to every entry.
//
// Index records whose byte span does not fit inside the decompressed blob
// are dropped without error; real-world archives are frequently truncated
// and a partial import is more useful than none.
func Parse(contentPath, indexPath, language string) ([]Entry, error) {
	records, err := parseIndexFile(indexPath)
	if err != nil {
		return nil, err
	}

	content, err := readContent(contentPath)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		end := rec.offset + rec.length
		if end < rec.offset || end > uint64(len(content)) {
			continue
		}
		def := string(toValidUTF8(content[rec.offset:end]))
		entries = append(entries, Entry{
			Word:       rec.word,
			Definition: cleanDefinition(def),
			Language:   language,
		})
	}
	return entries, nil
}

// toValidUTF8 replaces invalid byte sequences with the replacement rune.
func toValidUTF8(b []byte) []byte {
	if utf8.Valid(b) {
		return b
	}
	return []byte(strings.ToValidUTF8(string(b), string(utf8.RuneError)))
}

// cleanDefinition flattens DICT definition formatting into a single line:
// lines are trimmed, empty lines dropped, and the remainder joined with
// single spaces. The literal two-character sequence `\n` that some archives
// embed is collapsed to a space, then doubled spaces to single ones. A
// single replacement pass is sufficient for the markup seen in practice.
func cleanDefinition(def string) string {
	var lines []string
	for _, line := range strings.Split(def, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	s := strings.Join(lines, " ")
	s = strings.ReplaceAll(s, `\n`, " ")
	s = strings.ReplaceAll(s, "  ", " ")
	return strings.TrimSpace(s)
}

func pathErr(op, path string, err error) error {
	return fmt.Errorf("%s %s: %w", op, path, err)
}
