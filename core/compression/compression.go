// Package compression wraps encoded corpus bytes in an optional
// compression envelope.
//
// Algorithms are registered by name and by file extension. Detect
// recognizes the self-describing envelopes (gzip, zlib, xz, zstd) from
// their leading bytes; raw lzma has no magic and must be selected by name
// or extension.
package compression

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"

	"github.com/FocuswithJustin/corporeum/core/errors"
)

// Names of the built-in algorithms.
const (
	None = "none"
	Gzip = "gzip"
	Zlib = "zlib"
	XZ   = "xz"
	LZMA = "lzma"
	Zstd = "zstd"
)

// MaxDecompressedSize caps the output of Decompress (256 MiB, the same
// limit the CLI applies to input files).
var MaxDecompressedSize int64 = 256 << 20

// ErrTooLarge is wrapped in the CompressionError returned when the
// decompressed payload exceeds MaxDecompressedSize.
var ErrTooLarge = fmt.Errorf("decompressed size exceeds limit")

// Algorithm compresses and decompresses whole payloads.
type Algorithm interface {
	// Name is the registry key (e.g. "gzip").
	Name() string
	// Extension is the file suffix including the dot, or "" for none.
	Extension() string
	// Compress returns the compressed form of data.
	Compress(data []byte) ([]byte, error)
	// Decompress reverses Compress, failing on malformed input.
	Decompress(data []byte) ([]byte, error)
}

// Injectable functions for testing
var (
	gzipNewWriterLevel = gzip.NewWriterLevel
	gzipNewReader      = gzip.NewReader
	zlibNewWriterLevel = zlib.NewWriterLevel
	zlibNewReader      = zlib.NewReader
	xzNewWriter        = xz.NewWriter
	xzNewReader        = xz.NewReader
	lzmaNewWriter      = lzma.NewWriter
	lzmaNewReader      = lzma.NewReader
	zstdNewWriter      = func(w io.Writer) (*zstd.Encoder, error) {
		return zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.SpeedBestCompression),
			zstd.WithEncoderConcurrency(1),
			zstd.WithZeroFrames(true))
	}
	zstdNewReader = func(r io.Reader) (*zstd.Decoder, error) {
		return zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	}
)

// stream adapts a pair of streaming constructors to Algorithm.
type stream struct {
	name      string
	extension string
	writer    func(io.Writer) (io.WriteCloser, error)
	reader    func(io.Reader) (io.ReadCloser, error)
}

func (s *stream) Name() string      { return s.name }
func (s *stream) Extension() string { return s.extension }

func (s *stream) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := s.writer(&buf)
	if err != nil {
		return nil, errors.NewCompression(s.name, "compress", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, errors.NewCompression(s.name, "compress", err)
	}
	if err := w.Close(); err != nil {
		return nil, errors.NewCompression(s.name, "compress", err)
	}
	return buf.Bytes(), nil
}

func (s *stream) Decompress(data []byte) ([]byte, error) {
	r, err := s.reader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewCompression(s.name, "decompress", err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, MaxDecompressedSize+1))
	if err != nil {
		return nil, errors.NewCompression(s.name, "decompress", err)
	}
	if int64(len(out)) > MaxDecompressedSize {
		return nil, errors.NewCompression(s.name, "decompress",
			fmt.Errorf("%w: more than %d bytes", ErrTooLarge, MaxDecompressedSize))
	}
	return out, nil
}

type identity struct{}

func (identity) Name() string                           { return None }
func (identity) Extension() string                      { return "" }
func (identity) Compress(data []byte) ([]byte, error)   { return data, nil }
func (identity) Decompress(data []byte) ([]byte, error) { return data, nil }

var (
	registry    = make(map[string]Algorithm)
	byExtension = make(map[string]Algorithm)
)

// Register adds an algorithm, replacing any with the same name or extension.
func Register(a Algorithm) {
	if a == nil || a.Name() == "" {
		return
	}
	registry[a.Name()] = a
	if ext := a.Extension(); ext != "" {
		byExtension[strings.ToLower(ext)] = a
	}
}

// Get returns the algorithm registered under name. "" selects None.
func Get(name string) (Algorithm, error) {
	if name == "" {
		name = None
	}
	if a, ok := registry[strings.ToLower(name)]; ok {
		return a, nil
	}
	return nil, errors.NewUnsupported("compression", fmt.Sprintf("%q is not registered", name))
}

// ForExtension returns the algorithm owning ext, if any.
func ForExtension(ext string) (Algorithm, bool) {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	a, ok := byExtension[ext]
	return a, ok
}

// List returns all registered algorithms sorted by name, None included.
func List() []Algorithm {
	result := make([]Algorithm, 0, len(registry))
	for _, a := range registry {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Detect identifies a compression envelope from the leading bytes.
func Detect(data []byte) (Algorithm, bool) {
	var name string
	switch {
	case len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b:
		name = Gzip
	case len(data) >= 6 && bytes.Equal(data[:6], []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}):
		name = XZ
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{0x28, 0xb5, 0x2f, 0xfd}):
		name = Zstd
	case isZlibHeader(data):
		name = Zlib
	default:
		return nil, false
	}
	a, ok := registry[name]
	return a, ok
}

// isZlibHeader checks the RFC 1950 header: deflate method, a window of at
// most 32 KiB, and a check value making the first two bytes divisible by 31.
func isZlibHeader(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	cmf, flg := data[0], data[1]
	return cmf&0x0f == 8 && cmf>>4 <= 7 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

func init() {
	Register(identity{})
	Register(&stream{
		name:      Gzip,
		extension: ".gz",
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return gzipNewWriterLevel(w, gzip.BestCompression)
		},
		reader: func(r io.Reader) (io.ReadCloser, error) {
			return gzipNewReader(r)
		},
	})
	Register(&stream{
		name:      Zlib,
		extension: ".zz",
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return zlibNewWriterLevel(w, zlib.BestCompression)
		},
		reader: zlibNewReader,
	})
	Register(&stream{
		name:      XZ,
		extension: ".xz",
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return xzNewWriter(w)
		},
		reader: func(r io.Reader) (io.ReadCloser, error) {
			xr, err := xzNewReader(r)
			if err != nil {
				return nil, err
			}
			return io.NopCloser(xr), nil
		},
	})
	Register(&stream{
		name:      LZMA,
		extension: ".lzma",
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return lzmaNewWriter(w)
		},
		reader: func(r io.Reader) (io.ReadCloser, error) {
			lr, err := lzmaNewReader(r)
			if err != nil {
				return nil, err
			}
			return io.NopCloser(lr), nil
		},
	})
	Register(&stream{
		name:      Zstd,
		extension: ".zst",
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return zstdNewWriter(w)
		},
		reader: func(r io.Reader) (io.ReadCloser, error) {
			zr, err := zstdNewReader(r)
			if err != nil {
				return nil, err
			}
			return zr.IOReadCloser(), nil
		},
	})
}
