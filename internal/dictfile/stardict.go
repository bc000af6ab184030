package dictfile

import (
	"strings"

	stardict "github.com/ianlewis/go-stardict"
	"github.com/ianlewis/go-stardict/dict"
)

// ParseStardict reads a stardict dictionary (.ifo plus its .idx/.dict
// siblings) into entries, so stardict editions of bilingual dictionaries
// can be imported alongside DICT archives. Only text-typed article data is
// taken; media and markup payloads carry no definition text.
func ParseStardict(ifoPath, language string) ([]Entry, error) {
	sd, err := stardict.Open(ifoPath, nil)
	if err != nil {
		return nil, pathErr("open stardict", ifoPath, err)
	}

	d, err := sd.Dict()
	if err != nil {
		return nil, pathErr("open stardict data", ifoPath, err)
	}

	sc, err := sd.IndexScanner()
	if err != nil {
		return nil, pathErr("open stardict index", ifoPath, err)
	}
	defer sc.Close()

	var entries []Entry
	for sc.Scan() {
		w := sc.Word()
		art, err := d.Word(w)
		if err != nil {
			// Unreadable article spans are skipped like out-of-bounds
			// DICT records.
			continue
		}
		var parts []string
		for _, data := range art.Data {
			switch data.Type {
			case dict.UTFTextType, dict.LocaleTextType:
				if s := strings.TrimSpace(string(data.Data)); s != "" {
					parts = append(parts, s)
				}
			}
		}
		if len(parts) == 0 {
			continue
		}
		entries = append(entries, Entry{
			Word:       w.Word,
			Definition: cleanDefinition(strings.Join(parts, "\n")),
			Language:   language,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, pathErr("scan stardict index", ifoPath, err)
	}
	return entries, nil
}
