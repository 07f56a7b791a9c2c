// Package corpusfile binds a corpus to a file on disk.
//
// A File remembers which codec and compression algorithm its bytes use.
// Loading resolves both from, in order: explicit Options, the file name
// extensions, and (for compression only) the leading magic bytes. Saving
// rewrites the path so its extensions always record the pair actually
// written, e.g. "hello.corp" saved as cbor+xz becomes "hello.corp.cbor.xz".
//
// Writes are atomic: bytes go to a temporary file in the destination
// directory, which is synced and then renamed over the target.
package corpusfile

import (
	"context"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/corporeum/core/codec"
	"github.com/FocuswithJustin/corporeum/core/compression"
	"github.com/FocuswithJustin/corporeum/core/corpus"
	"github.com/FocuswithJustin/corporeum/core/errors"
	"github.com/FocuswithJustin/corporeum/internal/logging"
)

// SavePolicy decides what SaveAs does when the destination is missing.
type SavePolicy int

const (
	// CreateAlways creates the destination and any missing directories.
	CreateAlways SavePolicy = iota
	// ExistingOnly refuses to write a destination that does not exist yet.
	ExistingOnly
)

func (p SavePolicy) String() string {
	if p == ExistingOnly {
		return "existing-only"
	}
	return "create-always"
}

// Options configures how a File is read and written.
type Options struct {
	// Codec forces a codec by name. Empty means resolve from the path.
	Codec string
	// Compression forces an algorithm by name ("none" disables it).
	// Empty means resolve from the path, then from magic bytes on load.
	Compression string
	// SaveAs is the policy for missing destinations.
	SaveAs SavePolicy
	// Indent lays out text codecs for reading when the codec supports
	// it (see codec.Indenter). Others ignore it.
	Indent bool
	// Logger receives one record per load or save. Nil means
	// logging.GetLogger().
	Logger *slog.Logger
}

// DefaultOptions returns options that resolve everything from the path and
// create missing destinations.
func DefaultOptions() Options {
	return Options{SaveAs: CreateAlways}
}

// Injectable functions for testing
var (
	osCreateTemp = os.CreateTemp
	osRename     = os.Rename
	osReadFile   = os.ReadFile
	tempFileSync = func(f *os.File) error { return f.Sync() }
)

// File is a corpus together with the path and format it is persisted in.
// Save, SaveAs and Update on one File are serialized; the corpus itself is
// not synchronized.
type File struct {
	mu     sync.Mutex
	path   string
	corpus *corpus.Corpus
	codec  codec.Codec
	algo   compression.Algorithm
	opts   Options
}

// New returns a File holding an empty corpus that will be saved with the
// default codec and no compression, unless path's extensions say
// otherwise. Nothing is read or written.
func New(path string) *File {
	p, _ := resolve(path, Options{}, pair{codec.Default(), identity()})
	return &File{path: path, corpus: corpus.New(), codec: p.codec, algo: p.algo, opts: DefaultOptions()}
}

// NewWithOptions is New with explicit options. It fails only when opts
// names an unregistered codec or algorithm.
func NewWithOptions(path string, opts Options) (*File, error) {
	return FromCorpus(corpus.New(), path, opts)
}

// FromCorpus binds an existing corpus to path, resolving the format the
// way NewWithOptions does. Nothing is written until Save.
func FromCorpus(c *corpus.Corpus, path string, opts Options) (*File, error) {
	if c == nil {
		return nil, errors.NewValidation("corpus", "must not be nil")
	}
	p, err := resolve(path, opts, pair{codec.Default(), identity()})
	if err != nil {
		return nil, err
	}
	return &File{path: path, corpus: c, codec: p.codec, algo: p.algo, opts: opts}, nil
}

// Load reads the corpus stored at path.
func Load(path string) (*File, error) {
	return LoadWithOptions(path, DefaultOptions())
}

// LoadWithOptions is Load with explicit options.
func LoadWithOptions(path string, opts Options) (*File, error) {
	ctx := logging.StartOperation(context.Background())
	f, err := load(path, opts, func() ([]byte, error) {
		data, err := osReadFile(path)
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				return nil, errors.NewNotFound("file", path)
			}
			return nil, errors.NewIO("read", path, err)
		}
		return data, nil
	})
	if err != nil {
		logging.ConversionFailed(ctx, opts.Logger, "load", path, err)
		return nil, err
	}
	logging.CorpusLoaded(ctx, opts.Logger, path, f.codec.Name(), f.algo.Name(), len(f.corpus.Documents()))
	return f, nil
}

// Read loads a corpus from r. name supplies the extension hints a path
// would and becomes the File's path; it is never opened.
func Read(r io.Reader, name string, opts Options) (*File, error) {
	ctx := logging.StartOperation(context.Background())
	f, err := load(name, opts, func() ([]byte, error) {
		data, err := io.ReadAll(io.LimitReader(r, compression.MaxDecompressedSize+1))
		if err != nil {
			return nil, errors.NewIO("read", name, err)
		}
		if int64(len(data)) > compression.MaxDecompressedSize {
			return nil, errors.NewIO("read", name, fmt.Errorf("input exceeds %d bytes", compression.MaxDecompressedSize))
		}
		return data, nil
	})
	if err != nil {
		logging.ConversionFailed(ctx, opts.Logger, "read", name, err)
		return nil, err
	}
	logging.CorpusLoaded(ctx, opts.Logger, name, f.codec.Name(), f.algo.Name(), len(f.corpus.Documents()))
	return f, nil
}

func load(path string, opts Options, read func() ([]byte, error)) (*File, error) {
	_, extCodec, extAlgo := splitExt(path)

	c := extCodec
	if opts.Codec != "" {
		var err error
		if c, err = codec.Get(opts.Codec); err != nil {
			return nil, err
		}
	}
	if c == nil {
		return nil, errors.NewUnsupported("file extension",
			fmt.Sprintf("cannot tell the codec of %q; use a known extension or name one explicitly", path))
	}

	var algo compression.Algorithm
	if opts.Compression != "" {
		var err error
		if algo, err = compression.Get(opts.Compression); err != nil {
			return nil, err
		}
	}

	data, err := read()
	if err != nil {
		return nil, err
	}

	switch {
	case algo != nil:
	case extAlgo != nil:
		algo = extAlgo
	default:
		if sniffed, ok := compression.Detect(data); ok {
			algo = sniffed
		} else {
			algo = identity()
		}
	}

	raw, err := algo.Decompress(data)
	if err != nil {
		return nil, err
	}
	tree, err := c.Decode(raw)
	if err != nil {
		var pe *errors.ParseError
		if stderrors.As(err, &pe) && pe.Path == "" {
			pe.Path = path
		}
		return nil, err
	}
	return &File{path: path, corpus: tree, codec: c, algo: algo, opts: opts}, nil
}

// Path is where the File was loaded from or last saved to.
func (f *File) Path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.path
}

// Corpus returns the in-memory tree. Mutations through it are not locked;
// use Update when the File is shared.
func (f *File) Corpus() *corpus.Corpus { return f.corpus }

// Codec returns the name of the codec used for saving.
func (f *File) Codec() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codec.Name()
}

// Compression returns the name of the algorithm used for saving.
func (f *File) Compression() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.algo.Name()
}

// Update runs fn on the corpus while holding the File's lock.
func (f *File) Update(fn func(*corpus.Corpus) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f.corpus)
}

// Bytes returns exactly what Save would write.
func (f *File) Bytes() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.encode(pair{codec: f.codec, algo: f.algo})
}

// Digest returns the hex BLAKE3-256 digest of Bytes.
func (f *File) Digest() (string, error) {
	data, err := f.Bytes()
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// WriteTo writes the persisted form of the corpus to w.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	data, err := f.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	if err != nil {
		return int64(n), errors.NewIO("write", "", err)
	}
	return int64(n), nil
}

func (f *File) encode(p pair) ([]byte, error) {
	c := p.codec
	if in, ok := c.(codec.Indenter); ok && f.opts.Indent {
		c = in.Indented()
	}
	data, err := c.Encode(f.corpus)
	if err != nil {
		return nil, err
	}
	return p.algo.Compress(data)
}

// Save writes the corpus back to Path.
func (f *File) Save() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveLocked(f.path, pair{codec: f.codec, algo: f.algo})
}

// SaveAs writes the corpus to path and makes it the File's path. The
// codec and algorithm follow explicit Options first, then path's
// extensions, then the File's current pair. The written path carries the
// extensions of the pair actually used.
func (f *File) SaveAs(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := resolve(path, f.opts, pair{codec: f.codec, algo: f.algo})
	if err != nil {
		return err
	}
	return f.saveLocked(path, p)
}

func (f *File) saveLocked(path string, p pair) error {
	ctx := logging.StartOperation(context.Background())
	target := p.rewrite(path)

	size, err := f.write(target, p)
	if err != nil {
		logging.ConversionFailed(ctx, f.opts.Logger, "save", target, err)
		return err
	}
	f.path, f.codec, f.algo = target, p.codec, p.algo
	logging.CorpusSaved(ctx, f.opts.Logger, target, p.codec.Name(), p.algo.Name(), size)
	return nil
}

func (f *File) write(target string, p pair) (int, error) {
	data, err := f.encode(p)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(target)
	switch f.opts.SaveAs {
	case ExistingOnly:
		if _, err := os.Stat(target); err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				return 0, errors.NewNotFound("file", target)
			}
			return 0, errors.NewIO("stat", target, err)
		}
	default:
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, errors.NewIO("mkdir", dir, err)
		}
	}

	if err := writeAtomic(dir, target, data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// writeAtomic replaces target with data via a synced temporary file.
func writeAtomic(dir, target string, data []byte) error {
	tempFile, err := osCreateTemp(dir, ".corporeum-*")
	if err != nil {
		return errors.NewIO("create temp file", dir, err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return errors.NewIO("write", tempPath, err)
	}
	if err := tempFile.Chmod(0644); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return errors.NewIO("chmod", tempPath, err)
	}
	if err := tempFileSync(tempFile); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return errors.NewIO("sync", tempPath, err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return errors.NewIO("close", tempPath, err)
	}

	// Rename to final path (atomic on POSIX)
	if err := osRename(tempPath, target); err != nil {
		os.Remove(tempPath)
		return errors.NewIO("rename", target, err)
	}
	return nil
}

// pair is a codec and compression algorithm. A nil member is unresolved.
type pair struct {
	codec codec.Codec
	algo  compression.Algorithm
}

// rewrite replaces any known codec and compression extensions at the end
// of path with the ones for p.
func (p pair) rewrite(path string) string {
	stem, _, _ := splitExt(path)
	out := stem + p.codec.Extensions()[0]
	return out + p.algo.Extension()
}

// splitExt strips a trailing compression extension, then a trailing codec
// extension, and reports what it found.
func splitExt(path string) (stem string, c codec.Codec, a compression.Algorithm) {
	stem = path
	if ext := filepath.Ext(stem); ext != "" {
		if found, ok := compression.ForExtension(ext); ok {
			a = found
			stem = strings.TrimSuffix(stem, ext)
		}
	}
	if ext := filepath.Ext(stem); ext != "" {
		if found, err := codec.ForExtension(ext); err == nil {
			c = found
			stem = strings.TrimSuffix(stem, ext)
		}
	}
	return stem, c, a
}

// resolve picks the pair for saving to path: explicit options win, then
// path's extensions, then fallback. A path naming a codec but no
// compression means no compression.
func resolve(path string, opts Options, fallback pair) (pair, error) {
	_, extCodec, extAlgo := splitExt(path)
	p := fallback

	switch {
	case opts.Codec != "":
		c, err := codec.Get(opts.Codec)
		if err != nil {
			return pair{}, err
		}
		p.codec = c
	case extCodec != nil:
		p.codec = extCodec
	}

	switch {
	case opts.Compression != "":
		a, err := compression.Get(opts.Compression)
		if err != nil {
			return pair{}, err
		}
		p.algo = a
	case extAlgo != nil:
		p.algo = extAlgo
	case extCodec != nil:
		p.algo = identity()
	}
	return p, nil
}

func identity() compression.Algorithm {
	a, _ := compression.Get(compression.None)
	return a
}
