package codec

import (
	"fmt"
	"io"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/FocuswithJustin/corporeum/core/corpus"
	"github.com/FocuswithJustin/corporeum/core/errors"
	"github.com/FocuswithJustin/corporeum/core/schema"
)

// Protobuf is the fixed-schema binary codec. Messages are written by hand
// with protowire; the equivalent .proto is:
//
//	message Corpus   { Metadata metadata = 1; repeated Document documents = 2; }
//	message Metadata { repeated Author authors = 1; optional int64 created = 2;
//	                   string description = 3; optional int64 modified = 4;
//	                   string name = 5; uint32 version = 6; }
//	message Author   { string first_name = 1; string last_name = 2; string mail = 3; }
//	message Document { uint32 id = 1; string source = 2; string description = 3;
//	                   repeated Sentence sentences = 4; }
//	message Sentence { uint32 id = 1; string lang = 2; repeated Token tokens = 3;
//	                   repeated Sentence translations = 4; }
//	message Token    { uint32 id = 1; string form = 2; string lemma = 3; string upos = 4;
//	                   string xpos = 5; string feats = 6; string head = 7;
//	                   string deprel = 8; string deps = 9; string misc = 10; }
//
// Fields are emitted in field-number order and zero values are skipped,
// so output is deterministic.
type Protobuf struct{}

func (p *Protobuf) Name() string         { return "protobuf" }
func (p *Protobuf) Extensions() []string { return []string{".pb"} }

func (p *Protobuf) Encode(c *corpus.Corpus) ([]byte, error) {
	sc, err := encodable(p.Name(), c, utf8.ValidString)
	if err != nil {
		return nil, err
	}
	var b []byte
	if sc.Metadata != nil {
		b = appendMessage(b, 1, appendMetadata(nil, sc.Metadata))
	}
	for i := range sc.Documents {
		b = appendMessage(b, 2, appendDocument(nil, &sc.Documents[i]))
	}
	return b, nil
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendMetadata(b []byte, m *schema.Metadata) []byte {
	for _, a := range m.Authors {
		var ab []byte
		ab = appendString(ab, 1, a.FirstName)
		ab = appendString(ab, 2, a.LastName)
		ab = appendString(ab, 3, a.Mail)
		b = appendMessage(b, 1, ab)
	}
	if m.Created != nil {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*m.Created))
	}
	b = appendString(b, 3, m.Description)
	if m.Modified != nil {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*m.Modified))
	}
	b = appendString(b, 5, m.Name)
	return appendUint(b, 6, uint64(m.Version))
}

func appendDocument(b []byte, d *schema.Document) []byte {
	b = appendUint(b, 1, uint64(d.ID))
	b = appendString(b, 2, d.Source)
	b = appendString(b, 3, d.Description)
	for i := range d.Sentences {
		b = appendMessage(b, 4, appendSentence(nil, &d.Sentences[i]))
	}
	return b
}

func appendSentence(b []byte, s *schema.Sentence) []byte {
	b = appendUint(b, 1, uint64(s.ID))
	b = appendString(b, 2, s.Lang)
	for i := range s.Tokens {
		b = appendMessage(b, 3, appendToken(nil, &s.Tokens[i]))
	}
	for i := range s.Translations {
		b = appendMessage(b, 4, appendSentence(nil, &s.Translations[i]))
	}
	return b
}

func appendToken(b []byte, t *schema.Token) []byte {
	b = appendUint(b, 1, uint64(t.ID))
	b = appendString(b, 2, t.Form)
	b = appendString(b, 3, t.Lemma)
	b = appendString(b, 4, t.Upos)
	b = appendString(b, 5, t.Xpos)
	b = appendString(b, 6, t.Feats)
	b = appendString(b, 7, t.Head)
	b = appendString(b, 8, t.Deprel)
	b = appendString(b, 9, t.Deps)
	return appendString(b, 10, t.Misc)
}

// Decode accepts empty input: an empty corpus encodes to zero bytes.
func (p *Protobuf) Decode(data []byte) (*corpus.Corpus, error) {
	sc := &schema.Corpus{}
	err := walkFields(data, 0, 1, func(f field) error {
		switch f.num {
		case 1:
			m := &schema.Metadata{}
			if err := decodeMetadata(f, m); err != nil {
				return err
			}
			sc.Metadata = m
		case 2:
			var d schema.Document
			if err := decodeDocument(f, &d); err != nil {
				return err
			}
			sc.Documents = append(sc.Documents, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return build(p.Name(), sc)
}

// field is one decoded key/value pair. For bytes fields, raw holds the
// payload and off its position in the whole input.
type field struct {
	num   protowire.Number
	typ   protowire.Type
	raw   []byte
	v     uint64
	off   int64
	depth int
}

// walkFields calls fn for each varint and bytes field in msg, skipping
// fields of other wire types. off is msg's position in the whole input.
func walkFields(msg []byte, off int64, depth int, fn func(field) error) error {
	if depth > MaxDepth {
		return &errors.ParseError{
			Format:  "protobuf",
			Kind:    errors.ParseRecursion,
			Offset:  off,
			Message: "nesting exceeds the maximum depth",
		}
	}
	for len(msg) > 0 {
		num, typ, n := protowire.ConsumeTag(msg)
		if n < 0 {
			return protowireError(off, n)
		}
		msg, off = msg[n:], off+int64(n)

		f := field{num: num, typ: typ, off: off, depth: depth}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(msg)
		case protowire.BytesType:
			f.raw, n = protowire.ConsumeBytes(msg)
			if n >= 0 {
				f.off = off + int64(n-len(f.raw))
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, msg)
			if n < 0 {
				return protowireError(off, n)
			}
			msg, off = msg[n:], off+int64(n)
			continue
		}
		if n < 0 {
			return protowireError(off, n)
		}
		msg, off = msg[n:], off+int64(n)
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func protowireError(off int64, n int) *errors.ParseError {
	err := protowire.ParseError(n)
	kind := errors.ParseSyntax
	if err == io.ErrUnexpectedEOF {
		kind = errors.ParseIO
	}
	return &errors.ParseError{Format: "protobuf", Kind: kind, Offset: off, Message: err.Error(), Err: err}
}

// expect rejects a known field number carrying the wrong wire type.
func (f field) expect(typ protowire.Type) error {
	if f.typ == typ {
		return nil
	}
	return &errors.ParseError{
		Format:  "protobuf",
		Kind:    errors.ParseSemantic,
		Offset:  f.off,
		Message: fmt.Sprintf("field %d has wire type %d, want %d", f.num, f.typ, typ),
	}
}

func (f field) str(dst *string) error {
	if err := f.expect(protowire.BytesType); err != nil {
		return err
	}
	*dst = string(f.raw)
	return nil
}

func (f field) u32(dst *uint32) error {
	if err := f.expect(protowire.VarintType); err != nil {
		return err
	}
	if f.v > 1<<32-1 {
		return &errors.ParseError{
			Format:  "protobuf",
			Kind:    errors.ParseSemantic,
			Offset:  f.off,
			Message: fmt.Sprintf("field %d value %d overflows uint32", f.num, f.v),
		}
	}
	*dst = uint32(f.v)
	return nil
}

func (f field) nested(fn func(field) error) error {
	if err := f.expect(protowire.BytesType); err != nil {
		return err
	}
	return walkFields(f.raw, f.off, f.depth+1, fn)
}

func decodeMetadata(f field, m *schema.Metadata) error {
	return f.nested(func(f field) error {
		switch f.num {
		case 1:
			var a schema.Author
			err := f.nested(func(f field) error {
				switch f.num {
				case 1:
					return f.str(&a.FirstName)
				case 2:
					return f.str(&a.LastName)
				case 3:
					return f.str(&a.Mail)
				}
				return nil
			})
			m.Authors = append(m.Authors, a)
			return err
		case 2, 4:
			if err := f.expect(protowire.VarintType); err != nil {
				return err
			}
			v := int64(f.v)
			if f.num == 2 {
				m.Created = &v
			} else {
				m.Modified = &v
			}
		case 3:
			return f.str(&m.Description)
		case 5:
			return f.str(&m.Name)
		case 6:
			var v uint32
			if err := f.u32(&v); err != nil {
				return err
			}
			if v > 1<<16-1 {
				return &errors.ParseError{Format: "protobuf", Kind: errors.ParseSemantic, Offset: f.off,
					Message: fmt.Sprintf("version %d overflows uint16", v)}
			}
			m.Version = uint16(v)
		}
		return nil
	})
}

func decodeDocument(f field, d *schema.Document) error {
	return f.nested(func(f field) error {
		switch f.num {
		case 1:
			return f.u32(&d.ID)
		case 2:
			return f.str(&d.Source)
		case 3:
			return f.str(&d.Description)
		case 4:
			var s schema.Sentence
			if err := decodeSentence(f, &s); err != nil {
				return err
			}
			d.Sentences = append(d.Sentences, s)
		}
		return nil
	})
}

func decodeSentence(f field, s *schema.Sentence) error {
	return f.nested(func(f field) error {
		switch f.num {
		case 1:
			return f.u32(&s.ID)
		case 2:
			return f.str(&s.Lang)
		case 3:
			var t schema.Token
			if err := decodeToken(f, &t); err != nil {
				return err
			}
			s.Tokens = append(s.Tokens, t)
		case 4:
			var tr schema.Sentence
			if err := decodeSentence(f, &tr); err != nil {
				return err
			}
			s.Translations = append(s.Translations, tr)
		}
		return nil
	})
}

func decodeToken(f field, t *schema.Token) error {
	return f.nested(func(f field) error {
		switch f.num {
		case 1:
			return f.u32(&t.ID)
		case 2:
			return f.str(&t.Form)
		case 3:
			return f.str(&t.Lemma)
		case 4:
			return f.str(&t.Upos)
		case 5:
			return f.str(&t.Xpos)
		case 6:
			return f.str(&t.Feats)
		case 7:
			return f.str(&t.Head)
		case 8:
			return f.str(&t.Deprel)
		case 9:
			return f.str(&t.Deps)
		case 10:
			return f.str(&t.Misc)
		}
		return nil
	})
}
