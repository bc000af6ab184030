// Package index builds and opens the persistent posting index.
//
// The on-disk form is a versioned gob snapshot holding one posting per
// distinct (normalized word, language direction) pair. A build writes the
// snapshot to a temp file in the target directory, fsyncs it and renames it
// into place, so a reader sees either the previous index or the new one,
// never a partial write. Builds are destructive: the whole posting set is
// replaced on every import or rebuild.
//
// Builds are single-writer; serializing concurrent builds against the same
// directory is the caller's responsibility. An opened index is immutable
// and safe for any number of concurrent readers.
package index

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sagerenn/dictv/internal/dictfile"
	"github.com/sagerenn/dictv/internal/folding"
)

const (
	snapshotVersion = 1
	snapshotFile    = "postings.idx"
)

var (
	// ErrNotFound is returned by Open when no committed index exists at
	// the given directory.
	ErrNotFound = errors.New("no index found")

	// ErrSchemaMismatch is returned by Open when a stored snapshot was
	// written by an incompatible version of this package.
	ErrSchemaMismatch = errors.New("index schema mismatch")

	// ErrStorage wraps failures to create or write the index directory.
	ErrStorage = errors.New("index storage error")
)

// Posting is the stored record for one normalized word in one language
// direction: the lower-cased display word (diacritics kept), the
// definitions of every raw entry that normalized to it (in insertion
// order), and the language tag.
type Posting struct {
	Term        string
	Word        string
	Definitions []string
	Language    string
}

type snapshot struct {
	Version  int
	BuiltAt  int64
	Postings []Posting
}

// Index is an opened, immutable posting index.
type Index struct {
	postings []Posting // sorted by (Term, Language)
	terms    []string  // parallel to postings
	builtAt  time.Time
}

// Build writes a new index over entries into dir, replacing any previous
// snapshot there. Entries sharing a normalized word and language are merged
// into one posting, definitions in their original relative order.
func Build(dir string, entries []dictfile.Entry) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storageErr("create index dir", dir, err)
	}

	type key struct {
		term, lang string
	}
	merged := make(map[key]int)
	postings := make([]Posting, 0, len(entries))
	for _, e := range entries {
		term := folding.Normalize(e.Word)
		if term == "" {
			continue
		}
		k := key{term, e.Language}
		if i, ok := merged[k]; ok {
			postings[i].Definitions = append(postings[i].Definitions, e.Definition)
			continue
		}
		merged[k] = len(postings)
		postings = append(postings, Posting{
			Term:        term,
			Word:        strings.ToLower(e.Word),
			Definitions: []string{e.Definition},
			Language:    e.Language,
		})
	}

	sort.Slice(postings, func(i, j int) bool {
		if postings[i].Term == postings[j].Term {
			return postings[i].Language < postings[j].Language
		}
		return postings[i].Term < postings[j].Term
	})

	return writeSnapshot(dir, &snapshot{
		Version:  snapshotVersion,
		BuiltAt:  time.Now().UnixNano(),
		Postings: postings,
	})
}

func writeSnapshot(dir string, snap *snapshot) error {
	path := filepath.Join(dir, snapshotFile)
	tmp, err := os.CreateTemp(dir, snapshotFile+".tmp.*")
	if err != nil {
		return storageErr("create temp snapshot", dir, err)
	}
	tmpName := tmp.Name()
	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return storageErr("encode snapshot", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return storageErr("sync snapshot", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return storageErr("close snapshot", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return storageErr("commit snapshot", path, err)
	}
	return nil
}

// Open reads the committed snapshot in dir into an immutable in-memory
// index.
func Open(dir string) (*Index, error) {
	path := filepath.Join(dir, snapshotFile)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dir)
		}
		return nil, storageErr("open snapshot", path, err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrSchemaMismatch, path, err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: %s has version %d, this build understands %d",
			ErrSchemaMismatch, path, snap.Version, snapshotVersion)
	}

	// The snapshot is written sorted, but ordering is a lookup invariant,
	// so it is not trusted across versions of the writer.
	postings := snap.Postings
	sort.Slice(postings, func(i, j int) bool {
		if postings[i].Term == postings[j].Term {
			return postings[i].Language < postings[j].Language
		}
		return postings[i].Term < postings[j].Term
	})
	terms := make([]string, len(postings))
	for i := range postings {
		terms[i] = postings[i].Term
	}

	return &Index{
		postings: postings,
		terms:    terms,
		builtAt:  time.Unix(0, snap.BuiltAt),
	}, nil
}

// BuiltAt reports when the committed snapshot was written.
func (ix *Index) BuiltAt() time.Time {
	return ix.builtAt
}

// Len reports the number of postings.
func (ix *Index) Len() int {
	return len(ix.postings)
}

func storageErr(op, path string, err error) error {
	return fmt.Errorf("%s %s: %w", op, path, errors.Join(ErrStorage, err))
}
