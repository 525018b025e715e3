// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package dump

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ReadCompressed reads the full contents of a zstd-compressed snapshot file
// (conventionally named with a .zst suffix) and returns the decompressed
// bytes. Heap-profiler output is routinely piped through zstd before being
// archived, the same way sneller's blockfmt package transparently decodes
// zstd-compressed row blocks (see klauspost/compress usage in
// ion/blockfmt). The decompressed buffer is a fresh, owned []byte — the
// zero-copy mmap path (§9) only applies to an already-uncompressed file.
func ReadCompressed(r io.Reader) ([]byte, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open zstd stream: %w", err)
	}
	defer dec.Close()
	buf, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress zstd stream: %w", err)
	}
	return buf, nil
}

// IsCompressedPath reports whether path names a zstd-compressed snapshot by
// its conventional suffix.
func IsCompressedPath(path string) bool {
	return strings.HasSuffix(path, ".zst")
}
