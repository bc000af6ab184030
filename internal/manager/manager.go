// Package manager owns the on-disk layout of a dictv installation and
// orchestrates imports: parsing source dictionaries, rebuilding the posting
// index, and reporting aggregate statistics.
//
// Layout under the base directory:
//
//	data/       imported source dictionaries (.dict.dz/.index pairs, .ifo sets)
//	index/      the committed posting index
//	catalog.db  source catalog (download URLs, import history)
//
// Index builds are single-writer; running two imports against the same base
// directory concurrently is not supported and must be serialized by the
// caller.
package manager

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sagerenn/dictv/internal/catalog"
	"github.com/sagerenn/dictv/internal/dictfile"
	"github.com/sagerenn/dictv/internal/index"
	"github.com/sagerenn/dictv/internal/observability"
)

// ErrUnknownLanguage reports a language tag outside the two supported
// directions.
var ErrUnknownLanguage = errors.New("unknown language tag")

// Manager coordinates imports and rebuilds for one base directory.
type Manager struct {
	baseDir  string
	dataDir  string
	indexDir string
	log      *observability.Logger
}

// New creates the directory layout under baseDir if needed.
func New(baseDir string, log *observability.Logger) (*Manager, error) {
	m := &Manager{
		baseDir:  baseDir,
		dataDir:  filepath.Join(baseDir, "data"),
		indexDir: filepath.Join(baseDir, "index"),
		log:      log,
	}
	for _, dir := range []string{m.dataDir, m.indexDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return m, nil
}

// DefaultBaseDir is ~/.dictv.
func DefaultBaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".dictv"), nil
}

// BaseDir returns the base directory.
func (m *Manager) BaseDir() string { return m.baseDir }

// IndexDir returns the directory holding the committed index.
func (m *Manager) IndexDir() string { return m.indexDir }

// CatalogPath returns the source catalog database path.
func (m *Manager) CatalogPath() string { return filepath.Join(m.baseDir, "catalog.db") }

func validLanguage(lang string) bool {
	return lang == "en-de" || lang == "de-en"
}

// ImportLocal copies a .dict.dz/.index pair into the data directory and
// rebuilds the index over all known sources. The stored file name carries
// the language direction so a later rebuild can recover it.
func (m *Manager) ImportLocal(dictPath, indexPath, language string) (int, error) {
	if !validLanguage(language) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLanguage, language)
	}

	// Parse before touching data/ so a broken source never displaces a
	// working one.
	entries, err := dictfile.Parse(dictPath, indexPath, language)
	if err != nil {
		return 0, err
	}
	m.log.Info("parsed dictionary", "dict", dictPath, "entries", len(entries))

	base := storedBaseName(dictPath, language)
	if err := copyFile(dictPath, filepath.Join(m.dataDir, base+".dict.dz")); err != nil {
		return 0, err
	}
	if err := copyFile(indexPath, filepath.Join(m.dataDir, base+".index")); err != nil {
		return 0, err
	}

	if err := m.Rebuild(); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// ImportStardict copies a stardict dictionary's files into the data
// directory and rebuilds.
func (m *Manager) ImportStardict(ifoPath, language string) (int, error) {
	if !validLanguage(language) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLanguage, language)
	}

	entries, err := dictfile.ParseStardict(ifoPath, language)
	if err != nil {
		return 0, err
	}
	m.log.Info("parsed stardict dictionary", "dict", ifoPath, "entries", len(entries))

	base := storedBaseName(ifoPath, language)
	srcBase := strings.TrimSuffix(ifoPath, filepath.Ext(ifoPath))
	matches, err := filepath.Glob(srcBase + ".*")
	if err != nil {
		return 0, fmt.Errorf("glob stardict files: %w", err)
	}
	for _, src := range matches {
		suffix := strings.TrimPrefix(src, srcBase)
		if err := copyFile(src, filepath.Join(m.dataDir, base+suffix)); err != nil {
			return 0, err
		}
	}

	if err := m.Rebuild(); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// ImportArchive downloads the named catalog source (a FreeDict dictd
// .tar.xz archive), extracts it, imports the contained dictionary, and
// records the outcome in the catalog.
func (m *Manager) ImportArchive(name string) (count int, err error) {
	cat, err := catalog.Open(m.CatalogPath())
	if err != nil {
		return 0, err
	}
	defer cat.Close()

	src, err := cat.Get(name)
	if err != nil {
		return 0, err
	}
	defer func() {
		if rerr := cat.RecordImport(name, count, err); rerr != nil {
			m.log.Error("record import", "source", name, "error", rerr)
		}
	}()

	m.log.Info("downloading archive", "source", name, "url", src.URL)
	tmpDir, err := os.MkdirTemp("", "dictv-import-*")
	if err != nil {
		return 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	archivePath := filepath.Join(tmpDir, name+".tar.xz")
	if err = downloadFile(src.URL, archivePath); err != nil {
		return 0, err
	}
	if err = extractTarXz(archivePath, tmpDir); err != nil {
		return 0, err
	}

	dictPath, indexPath, err := findDictFiles(tmpDir, src.BaseName)
	if err != nil {
		return 0, err
	}
	return m.ImportLocal(dictPath, indexPath, src.Language)
}

// Rebuild re-walks every source in the data directory, re-parses them all
// and builds the index once with the concatenation. The previous index is
// replaced wholesale.
func (m *Manager) Rebuild() error {
	var all []dictfile.Entry

	dirents, err := os.ReadDir(m.dataDir)
	if err != nil {
		return fmt.Errorf("read data dir %s: %w", m.dataDir, err)
	}
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		path := filepath.Join(m.dataDir, name)
		lang := inferLanguage(name)

		switch {
		case strings.HasSuffix(name, ".dict.dz") || strings.HasSuffix(name, ".dict"):
			if lang == "" {
				m.log.Warn("skipping dictionary with unknown language", "file", name)
				continue
			}
			base := strings.TrimSuffix(strings.TrimSuffix(name, ".dz"), ".dict")
			indexPath := filepath.Join(m.dataDir, base+".index")
			if _, err := os.Stat(indexPath); err != nil {
				m.log.Warn("dictionary without index file", "file", name)
				continue
			}
			m.log.Info("parsing source", "file", name, "language", lang)
			entries, err := dictfile.Parse(path, indexPath, lang)
			if err != nil {
				return err
			}
			all = append(all, entries...)

		case strings.HasSuffix(name, ".ifo"):
			if lang == "" {
				m.log.Warn("skipping dictionary with unknown language", "file", name)
				continue
			}
			m.log.Info("parsing stardict source", "file", name, "language", lang)
			entries, err := dictfile.ParseStardict(path, lang)
			if err != nil {
				return err
			}
			all = append(all, entries...)
		}
	}

	m.log.Info("building index", "entries", len(all))
	return index.Build(m.indexDir, all)
}

// Stats reports counts from the committed index plus the on-disk size of
// the index directory.
type Stats struct {
	TotalEntries   int
	ByLanguage     map[string]int
	IndexSizeBytes int64
}

// Stats opens the committed index and aggregates counts and disk usage.
func (m *Manager) Stats() (Stats, error) {
	ix, err := index.Open(m.indexDir)
	if err != nil {
		return Stats{}, err
	}
	s := ix.Stats()
	size, err := dirSize(m.indexDir)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalEntries:   s.Total,
		ByLanguage:     s.ByLanguage,
		IndexSizeBytes: size,
	}, nil
}

// storedBaseName yields the data-directory base name for an imported
// source, prefixing the language base marker when the original name does
// not already carry one.
func storedBaseName(path, language string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".dz")
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if inferLanguage(name) != "" {
		return name
	}
	marker := "eng-deu"
	if language == "de-en" {
		marker = "deu-eng"
	}
	return marker + "-" + name
}

// inferLanguage recovers the language direction from a stored file name.
func inferLanguage(name string) string {
	switch {
	case strings.Contains(name, "eng-deu"):
		return "en-de"
	case strings.Contains(name, "deu-eng"):
		return "de-en"
	}
	return ""
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", dst, err)
	}
	return out.Close()
}

func downloadFile(url, dest string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return f.Close()
}

// extractTarXz shells out to the system tar for .tar.xz extraction.
func extractTarXz(archivePath, destDir string) error {
	out, err := exec.Command("tar", "-xJf", archivePath, "-C", destDir).CombinedOutput()
	if err != nil {
		return fmt.Errorf("extract %s: %w: %s", archivePath, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// findDictFiles locates the .dict.dz and .index pair for baseName under
// dir.
func findDictFiles(dir, baseName string) (string, string, error) {
	var dictPath, indexPath string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		name := d.Name()
		switch {
		case strings.HasSuffix(name, ".dict.dz") && strings.Contains(name, baseName):
			dictPath = path
		case strings.HasSuffix(name, ".index") && strings.Contains(name, baseName):
			indexPath = path
		}
		return nil
	})
	if err != nil {
		return "", "", fmt.Errorf("walk %s: %w", dir, err)
	}
	if dictPath == "" || indexPath == "" {
		return "", "", fmt.Errorf("no %s.dict.dz/.index pair found under %s", baseName, dir)
	}
	return dictPath, indexPath, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk %s: %w", dir, err)
	}
	return total, nil
}
