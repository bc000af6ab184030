package dictfile

import (
	"compress/gzip"
	"io"
	"os"

	"github.com/ianlewis/go-dictzip"
)

// readContent decompresses a content blob fully into memory.
//
// FreeDict ships .dict.dz files in the dictzip format, a gzip variant with
// a random-access chunk table in the header's extra field. Blobs without
// the chunk table are read as plain gzip streams.
func readContent(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pathErr("open dict file", path, err)
	}
	defer f.Close()

	if z, err := dictzip.NewReader(f); err == nil {
		content, err := io.ReadAll(z)
		if err != nil {
			return nil, pathErr("decompress dictzip", path, err)
		}
		return content, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, pathErr("seek dict file", path, err)
	}
	z, err := gzip.NewReader(f)
	if err != nil {
		return nil, pathErr("read gzip header", path, err)
	}
	defer z.Close()
	content, err := io.ReadAll(z)
	if err != nil {
		return nil, pathErr("decompress dict file", path, err)
	}
	return content, nil
}
