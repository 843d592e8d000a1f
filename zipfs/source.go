package zipfs

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/meigma/vfs/core"
)

// ByteSource provides random access to the archive bytes. Index parsing
// requires it; backend handles that cannot provide it are buffered into
// memory at construction.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// newByteSource materializes a seekable source from a backend handle.
//
// Handles are probed in order of decreasing efficiency: a handle with
// native random access is used in place; a merely seekable handle is
// wrapped in a serializing adapter; anything else (an entry stream from an
// enclosing archive) is drained into memory. The buffered return reports
// whether the memory fallback was taken.
func newByteSource(h core.File) (src ByteSource, buffered bool, err error) {
	if ra, ok := h.(io.ReaderAt); ok {
		info, statErr := h.Stat()
		if statErr == nil {
			return &readerAtSource{r: ra, size: info.Size()}, false, nil
		}
	}
	if rs, ok := h.(io.ReadSeeker); ok {
		size, seekErr := rs.Seek(0, io.SeekEnd)
		if seekErr == nil {
			if _, seekErr = rs.Seek(0, io.SeekStart); seekErr == nil {
				return &seekerSource{rs: rs, size: size}, false, nil
			}
		}
	}
	data, err := io.ReadAll(h)
	if err != nil {
		return nil, false, fmt.Errorf("buffer archive bytes: %w", err)
	}
	return bytes.NewReader(data), true, nil
}

// readerAtSource pairs a handle's native ReadAt with its stat size.
type readerAtSource struct {
	r    io.ReaderAt
	size int64
}

func (s *readerAtSource) ReadAt(p []byte, off int64) (int, error) {
	return s.r.ReadAt(p, off)
}

func (s *readerAtSource) Size() int64 { return s.size }

// seekerSource adapts a seek-only handle to ReadAt. The handle has one
// read position, so concurrent reads are serialized by the mutex.
type seekerSource struct {
	mu   sync.Mutex
	rs   io.ReadSeeker
	size int64
}

func (s *seekerSource) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := io.ReadFull(s.rs, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

func (s *seekerSource) Size() int64 { return s.size }

// bytes.Reader provides ReadAt and Size, so the memory fallback needs no
// wrapper of its own.
var _ ByteSource = (*bytes.Reader)(nil)
