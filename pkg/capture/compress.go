package capture

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

type Compression string

const (
	Identity Compression = "identity"
	Gzip     Compression = "gzip"
	Zstd     Compression = "zstd"
)

// CompressionFor picks the encoding of a text artifact from its file extension.
func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return Gzip
	case ".zst":
		return Zstd
	default:
		return Identity
	}
}

func encodingWriter(w io.Writer, compression Compression) (io.WriteCloser, error) {
	switch compression {
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	case Gzip:
		return gzip.NewWriter(w), nil
	case Identity:
		return nopCloser{w}, nil
	default:
		return nil, fmt.Errorf("content compression format not recognized: %s", compression)
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// compress encodes data with the given compression.
func compress(data []byte, compression Compression) ([]byte, error) {
	if compression == Identity {
		return data, nil
	}

	var buf bytes.Buffer
	w, err := encodingWriter(&buf, compression)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
