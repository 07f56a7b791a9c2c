// Package codec converts a corpus to and from bytes.
//
// Every codec implements the same logical schema (see core/schema) and is
// lossless for any valid corpus. Codecs register themselves by name and by
// file extension in init; the persistence layer picks one through Get or
// ForExtension. All encoders are deterministic: the same corpus always
// yields the same bytes.
package codec

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/FocuswithJustin/corporeum/core/corpus"
	"github.com/FocuswithJustin/corporeum/core/errors"
	"github.com/FocuswithJustin/corporeum/core/schema"
)

// DefaultName is the codec used when nothing else selects one.
const DefaultName = "cbor"

// MaxDepth bounds the nesting depth accepted by decoders. A valid corpus
// never nests deeper than about ten levels.
const MaxDepth = 64

// Codec encodes and decodes a whole corpus.
type Codec interface {
	// Name is the registry key (e.g. "cbor").
	Name() string

	// Extensions lists file extensions including the dot. The first one
	// is used when writing.
	Extensions() []string

	// Encode serializes the corpus. Failures are *errors.SerializeError.
	Encode(c *corpus.Corpus) ([]byte, error)

	// Decode parses bytes into a validated corpus. Failures are
	// *errors.ParseError.
	Decode(data []byte) (*corpus.Corpus, error)
}

// Indenter is implemented by text codecs that can lay their output out
// for people to read. The indented codec decodes the same input.
type Indenter interface {
	Indented() Codec
}

var (
	registry    = make(map[string]Codec)
	byExtension = make(map[string]Codec)
)

// Register adds a codec to the registry, replacing any codec with the
// same name or extension.
func Register(c Codec) {
	if c == nil || c.Name() == "" {
		return
	}
	registry[c.Name()] = c
	for _, ext := range c.Extensions() {
		byExtension[strings.ToLower(ext)] = c
	}
}

// Get returns the codec registered under name.
func Get(name string) (Codec, error) {
	if c, ok := registry[strings.ToLower(name)]; ok {
		return c, nil
	}
	return nil, errors.NewUnsupported("codec", fmt.Sprintf("%q is not registered", name))
}

// ForExtension returns the codec that owns ext (".json", "yaml", ...).
func ForExtension(ext string) (Codec, error) {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if c, ok := byExtension[ext]; ok {
		return c, nil
	}
	return nil, errors.NewUnsupported("extension", fmt.Sprintf("%q has no codec", ext))
}

// Default returns the default codec.
func Default() Codec {
	return registry[DefaultName]
}

// List returns all registered codecs sorted by name.
func List() []Codec {
	result := make([]Codec, 0, len(registry))
	for _, c := range registry {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

func init() {
	Register(NewCBOR())
	Register(NewMsgpack())
	Register(&JSON{})
	Register(&YAML{})
	Register(&XML{})
	Register(&Protobuf{})
}

// checkInput rejects input that no codec can decode.
func checkInput(format string, data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return &errors.ParseError{Format: format, Kind: errors.ParseIO, Offset: 0, Message: "empty input"}
	}
	return nil
}

// encodable returns the wire layout of c once every string in it passes
// valid. A failing value is reported as a SerializeError naming its field;
// encoders never repair text.
func encodable(format string, c *corpus.Corpus, valid func(string) bool) (*schema.Corpus, error) {
	sc := c.Schema()
	err := sc.EachString(func(field, value string) error {
		if !valid(value) {
			return fmt.Errorf("%s is not representable in %s", field, format)
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewSerialize(format, err)
	}
	return sc, nil
}

// build validates a decoded schema tree. Structural violations are
// reported as semantic parse errors.
func build(format string, sc *schema.Corpus) (*corpus.Corpus, error) {
	c, err := corpus.FromSchema(sc)
	if err != nil {
		return nil, errors.NewParse(format, errors.ParseSemantic, err.Error(), err)
	}
	return c, nil
}

// lineOf returns the 1-based line containing byte offset off.
func lineOf(data []byte, off int64) int {
	if off < 0 {
		return 0
	}
	if off > int64(len(data)) {
		off = int64(len(data))
	}
	return bytes.Count(data[:off], []byte{'\n'}) + 1
}
