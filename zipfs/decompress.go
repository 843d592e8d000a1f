package zipfs

import (
	"archive/zip"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
)

// MethodZstd is the zip compression method code for zstandard, per the
// appnote method registry.
const MethodZstd uint16 = 93

// registerDecompressors installs the extra entry decoders on a parsed
// reader: a faster drop-in Deflate and zstandard. Store and the stdlib
// Deflate remain available for methods the reader handles natively.
func registerDecompressors(zr *zip.Reader) {
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
	zr.RegisterDecompressor(MethodZstd, newZstdReader)
}

func newZstdReader(r io.Reader) io.ReadCloser {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return &errReader{err: err}
	}
	return dec.IOReadCloser()
}

// errReader surfaces a decoder construction failure on first read; the
// decompressor registration API has no error return.
type errReader struct {
	err error
}

func (e *errReader) Read([]byte) (int, error) { return 0, e.err }
func (e *errReader) Close() error             { return nil }
