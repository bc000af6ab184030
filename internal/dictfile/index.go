package dictfile

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrMalformedOffset indicates an offset or length field that is neither
// decimal nor a valid DICT base64 digit string.
var ErrMalformedOffset = errors.New("malformed index offset")

type indexRecord struct {
	word   string
	offset uint64
	length uint64
}

// parseIndexFile reads a .index file: one record per line in the form
// word<TAB>offset<TAB>length. Extra tab-separated fields are ignored and
// lines with fewer than three fields are skipped.
func parseIndexFile(path string) ([]indexRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pathErr("open index file", path, err)
	}
	defer f.Close()

	var records []indexRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Split(sc.Text(), "\t")
		if len(fields) < 3 {
			continue
		}
		offset, err := parseOffset(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: offset: %w", path, line, err)
		}
		length, err := parseOffset(fields[2])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: length: %w", path, line, err)
		}
		records = append(records, indexRecord{
			word:   fields[0],
			offset: offset,
			length: length,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, pathErr("read index file", path, err)
	}
	return records, nil
}

// parseOffset decodes an offset or length field. Decimal is tried first;
// the dictd suite also writes these fields as big-endian digit strings in
// a base64 alphabet (A-Z, a-z, 0-9, +, /), most significant digit first.
func parseOffset(s string) (uint64, error) {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, nil
	}
	if s == "" {
		return 0, ErrMalformedOffset
	}
	var n uint64
	for _, r := range s {
		d := base64Digit(r)
		if d < 0 {
			return 0, fmt.Errorf("%w: %q", ErrMalformedOffset, s)
		}
		n = n<<6 | uint64(d)
	}
	return n, nil
}

func base64Digit(r rune) int {
	switch {
	case r >= 'A' && r <= 'Z':
		return int(r - 'A')
	case r >= 'a' && r <= 'z':
		return int(r-'a') + 26
	case r >= '0' && r <= '9':
		return int(r-'0') + 52
	case r == '+':
		return 62
	case r == '/':
		return 63
	}
	return -1
}
