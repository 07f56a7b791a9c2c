package codec

import (
	stderrors "errors"
	"io"
	"strings"
	"unicode/utf8"

	ugcodec "github.com/ugorji/go/codec"

	"github.com/FocuswithJustin/corporeum/core/corpus"
	"github.com/FocuswithJustin/corporeum/core/errors"
	"github.com/FocuswithJustin/corporeum/core/schema"
)

// Msgpack is the compact schema-less binary codec. Struct fields are
// written as maps keyed by their json names.
type Msgpack struct {
	handle *ugcodec.MsgpackHandle
}

// NewMsgpack creates the MessagePack codec.
func NewMsgpack() *Msgpack {
	h := &ugcodec.MsgpackHandle{}
	h.WriteExt = true
	h.Canonical = true
	h.MaxDepth = MaxDepth
	return &Msgpack{handle: h}
}

func (m *Msgpack) Name() string         { return "msgpack" }
func (m *Msgpack) Extensions() []string { return []string{".msgpack", ".mpk"} }

func (m *Msgpack) Encode(c *corpus.Corpus) ([]byte, error) {
	sc, err := encodable(m.Name(), c, utf8.ValidString)
	if err != nil {
		return nil, err
	}
	var out []byte
	if err := ugcodec.NewEncoderBytes(&out, m.handle).Encode(sc); err != nil {
		return nil, errors.NewSerialize(m.Name(), err)
	}
	return out, nil
}

func (m *Msgpack) Decode(data []byte) (*corpus.Corpus, error) {
	if err := checkInput(m.Name(), data); err != nil {
		return nil, err
	}
	var sc schema.Corpus
	if err := ugcodec.NewDecoderBytes(data, m.handle).Decode(&sc); err != nil {
		return nil, msgpackParseError(err)
	}
	return build(m.Name(), &sc)
}

// The decoder reports most failures as plain formatted errors, so the
// kind is recovered from the message when no sentinel matches.
func msgpackParseError(err error) *errors.ParseError {
	msg := err.Error()
	kind := errors.ParseSyntax
	switch {
	case stderrors.Is(err, io.EOF), stderrors.Is(err, io.ErrUnexpectedEOF), strings.Contains(msg, "EOF"):
		kind = errors.ParseIO
	case strings.Contains(msg, "depth"):
		kind = errors.ParseRecursion
	case strings.Contains(msg, "cannot decode"), strings.Contains(msg, "overflow"):
		kind = errors.ParseSemantic
	}
	return errors.NewParse("msgpack", kind, msg, err)
}
