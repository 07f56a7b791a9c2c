package codec

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"unicode/utf8"

	"github.com/FocuswithJustin/corporeum/core/corpus"
	"github.com/FocuswithJustin/corporeum/core/errors"
	"github.com/FocuswithJustin/corporeum/core/schema"
)

// JSON is the textual codec. Indent, when set, pretty-prints the output.
type JSON struct {
	Indent string
}

func (j *JSON) Name() string         { return "json" }
func (j *JSON) Extensions() []string { return []string{".json"} }

// Indented returns a JSON codec that indents nested values by two spaces.
func (j *JSON) Indented() Codec { return &JSON{Indent: "  "} }

func (j *JSON) Encode(c *corpus.Corpus) ([]byte, error) {
	sc, err := encodable(j.Name(), c, utf8.ValidString)
	if err != nil {
		return nil, err
	}
	var data []byte
	if j.Indent != "" {
		data, err = json.MarshalIndent(sc, "", j.Indent)
	} else {
		data, err = json.Marshal(sc)
	}
	if err != nil {
		return nil, errors.NewSerialize(j.Name(), err)
	}
	return data, nil
}

func (j *JSON) Decode(data []byte) (*corpus.Corpus, error) {
	if err := checkInput(j.Name(), data); err != nil {
		return nil, err
	}
	if err := scanJSON(data); err != nil {
		return nil, err
	}
	var sc schema.Corpus
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, jsonParseError(data, err)
	}
	return build(j.Name(), &sc)
}

// scanJSON walks the token stream once to enforce MaxDepth before any
// value is decoded. Syntax errors are left to json.Unmarshal, which
// reports offsets from the start of the input.
func scanJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		delim, ok := tok.(json.Delim)
		if !ok {
			continue
		}
		switch delim {
		case '{', '[':
			depth++
			if depth > MaxDepth {
				off := dec.InputOffset()
				return &errors.ParseError{
					Format:  "json",
					Kind:    errors.ParseRecursion,
					Offset:  off,
					Line:    lineOf(data, off),
					Message: "nesting exceeds the maximum depth",
				}
			}
		case '}', ']':
			depth--
		}
	}
}

func jsonParseError(data []byte, err error) *errors.ParseError {
	pe := errors.NewParse("json", errors.ParseSyntax, err.Error(), err)
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case stderrors.As(err, &syntaxErr):
		pe.Offset = syntaxErr.Offset
		pe.Line = lineOf(data, syntaxErr.Offset)
	case stderrors.As(err, &typeErr):
		pe.Kind = errors.ParseSemantic
		pe.Offset = typeErr.Offset
		pe.Line = lineOf(data, typeErr.Offset)
	case stderrors.Is(err, io.ErrUnexpectedEOF):
		pe.Kind = errors.ParseIO
		pe.Offset = int64(len(data))
	}
	return pe
}
