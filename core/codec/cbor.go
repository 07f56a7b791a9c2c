package codec

import (
	stderrors "errors"
	"io"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"

	"github.com/FocuswithJustin/corporeum/core/corpus"
	"github.com/FocuswithJustin/corporeum/core/errors"
	"github.com/FocuswithJustin/corporeum/core/schema"
)

// CBOR is the default codec: self-describing tagged binary (RFC 8949)
// written with core deterministic encoding.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBOR creates the CBOR codec.
func NewCBOR() *CBOR {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: invalid cbor encoding options: " + err.Error())
	}
	dec, err := cbor.DecOptions{
		MaxNestedLevels: MaxDepth,
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("codec: invalid cbor decoding options: " + err.Error())
	}
	return &CBOR{enc: enc, dec: dec}
}

func (c *CBOR) Name() string         { return "cbor" }
func (c *CBOR) Extensions() []string { return []string{".cbor"} }

func (c *CBOR) Encode(cp *corpus.Corpus) ([]byte, error) {
	sc, err := encodable(c.Name(), cp, utf8.ValidString)
	if err != nil {
		return nil, err
	}
	data, err := c.enc.Marshal(sc)
	if err != nil {
		return nil, errors.NewSerialize(c.Name(), err)
	}
	return data, nil
}

func (c *CBOR) Decode(data []byte) (*corpus.Corpus, error) {
	if err := checkInput(c.Name(), data); err != nil {
		return nil, err
	}
	var sc schema.Corpus
	if err := c.dec.Unmarshal(data, &sc); err != nil {
		return nil, cborParseError(err)
	}
	return build(c.Name(), &sc)
}

func cborParseError(err error) *errors.ParseError {
	kind := errors.ParseSyntax
	var (
		depthErr *cbor.MaxNestedLevelError
		typeErr  *cbor.UnmarshalTypeError
		semErr   *cbor.SemanticError
		dupErr   *cbor.DupMapKeyError
	)
	switch {
	case stderrors.Is(err, io.EOF), stderrors.Is(err, io.ErrUnexpectedEOF):
		kind = errors.ParseIO
	case stderrors.As(err, &depthErr):
		kind = errors.ParseRecursion
	case stderrors.As(err, &typeErr), stderrors.As(err, &semErr), stderrors.As(err, &dupErr):
		kind = errors.ParseSemantic
	}
	return errors.NewParse("cbor", kind, err.Error(), err)
}
