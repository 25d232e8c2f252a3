// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package asset

import (
	"bytes"
	"compress/gzip"
	"io"
)

// gunzip fully decompresses r, the body of an asset whose header flag
// marks it compressed. gzip is the pack's own established idiom for
// ad hoc binary decompression (no dedicated compression library
// appears anywhere in the retrieved examples).
func gunzip(r io.Reader) ([]byte, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

func newBytesReader(b []byte) io.Reader { return bytes.NewReader(b) }
