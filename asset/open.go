// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package asset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DirOpener returns an OpenFunc that resolves a Name to
// "<root>/<name as 16 hex digits>.asset", a simple content-addressed
// loose-file layout. Production deployments with a packed archive
// format supply their own OpenFunc instead; this one exists so a
// Manager can be stood up against a plain directory during
// development and in tests.
func DirOpener(root string) OpenFunc {
	return func(n Name) (io.ReadCloser, error) {
		path := filepath.Join(root, fmt.Sprintf("%016x.asset", uint64(n)))
		return os.Open(path)
	}
}
