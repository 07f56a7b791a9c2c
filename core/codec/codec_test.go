package codec

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/FocuswithJustin/corporeum/core/corpus"
	apperrors "github.com/FocuswithJustin/corporeum/core/errors"
)

// sampleCorpus builds a corpus that touches every schema field.
func sampleCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	c := corpus.New()
	m := c.InitMetadata("cats")
	m.SetDescription("sentences about cats")
	m.SetVersion(3)
	m.SetCreated(time.Unix(1700000000, 0))
	m.SetModified(time.Unix(1700003600, 0))
	if err := m.AddAuthor(corpus.NewAuthor("Ada", "Lovelace", "ada@example.org")); err != nil {
		t.Fatal(err)
	}
	if err := m.AddAuthor(corpus.NewAuthor("Charles", "Babbage", "")); err != nil {
		t.Fatal(err)
	}

	d := c.CreateDocument()
	d.SetSource("cats.conllu")
	d.SetDescription("two short lines")
	for _, line := range [][]string{{"I", "like", "cats", "."}, {"Cats", "like", "me", "."}} {
		s := d.CreateSentence("en")
		for _, form := range line {
			if err := s.AddToken(s.CreateToken(form)); err != nil {
				t.Fatal(err)
			}
		}
		d.AddSentence(s)
	}
	s, _ := d.Sentence(0)
	tok, _ := s.Token(2)
	tok.SetLemma("cat")
	tok.SetUpos("NOUN")
	tok.SetXpos("NNS")
	tok.SetFeats("Number=Plur")
	tok.SetHead("2")
	tok.SetDeprel("obj")
	tok.SetDeps("2:obj")
	tok.SetMisc("SpaceAfter=No")

	tr, err := s.CreateTranslation("cs")
	if err != nil {
		t.Fatal(err)
	}
	for _, form := range []string{"Mám", "rád", "kočky", "."} {
		tr.AddToken(tr.CreateToken(form))
	}
	if err := s.AddTranslation(tr); err != nil {
		t.Fatal(err)
	}
	if err := c.AddDocument(d); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestRegisteredCodecs(t *testing.T) {
	var names []string
	for _, c := range List() {
		names = append(names, c.Name())
	}
	want := []string{"cbor", "json", "msgpack", "protobuf", "xml", "yaml"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("List() = %v, want %v", names, want)
	}
	if Default().Name() != DefaultName {
		t.Errorf("Default() = %s, want %s", Default().Name(), DefaultName)
	}
}

func TestForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".cbor", "cbor"},
		{".json", "json"},
		{"yaml", "yaml"},
		{".YML", "yaml"},
		{".mpk", "msgpack"},
		{".msgpack", "msgpack"},
		{".xml", "xml"},
		{".pb", "protobuf"},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			c, err := ForExtension(tt.ext)
			if err != nil {
				t.Fatalf("ForExtension(%q) error = %v", tt.ext, err)
			}
			if c.Name() != tt.want {
				t.Errorf("ForExtension(%q) = %s, want %s", tt.ext, c.Name(), tt.want)
			}
		})
	}

	if _, err := ForExtension(".doc"); !errors.Is(err, apperrors.ErrUnsupported) {
		t.Errorf("ForExtension(.doc) error = %v, want ErrUnsupported", err)
	}
	if _, err := Get("bincode"); !errors.Is(err, apperrors.ErrUnsupported) {
		t.Errorf("Get(bincode) error = %v, want ErrUnsupported", err)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, c := range List() {
		t.Run(c.Name(), func(t *testing.T) {
			in := sampleCorpus(t)
			data, err := c.Encode(in)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			out, err := c.Decode(data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(in.Schema(), out.Schema()) {
				t.Errorf("round trip changed the corpus\n in: %+v\nout: %+v", in.Schema(), out.Schema())
			}

			again, err := c.Encode(out)
			if err != nil {
				t.Fatalf("second Encode() error = %v", err)
			}
			if !bytes.Equal(data, again) {
				t.Errorf("encoding is not deterministic")
			}
		})
	}
}

func TestRoundTripEmptyCorpus(t *testing.T) {
	for _, c := range List() {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Encode(corpus.New())
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			out, err := c.Decode(data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if out.Metadata() != nil || len(out.Documents()) != 0 {
				t.Errorf("decoded empty corpus is not empty")
			}
		})
	}
}

func TestDecodeTruncated(t *testing.T) {
	for _, name := range []string{"cbor", "msgpack", "json", "xml", "protobuf"} {
		t.Run(name, func(t *testing.T) {
			c, _ := Get(name)
			data, err := c.Encode(sampleCorpus(t))
			if err != nil {
				t.Fatal(err)
			}
			_, err = c.Decode(data[:len(data)/2])
			var pe *apperrors.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Decode(truncated) error = %v, want *ParseError", err)
			}
			if pe.Format != name {
				t.Errorf("Format = %q, want %q", pe.Format, name)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		codec string
		input string
		kind  apperrors.ParseKind
	}{
		{"json", `{"documents": [}`, apperrors.ParseSyntax},
		{"json", `{"documents": "nope"}`, apperrors.ParseSemantic},
		{"yaml", "documents: [\n  - id: 0\n", apperrors.ParseSyntax},
		{"yaml", "documents:\n  - id: -4\n", apperrors.ParseSemantic},
		{"xml", `<corpus><document id="0">`, apperrors.ParseSyntax},
		{"xml", `<corpus><document id="zero"/></corpus>`, apperrors.ParseSemantic},
		{"xml", `<other/>`, apperrors.ParseSemantic},
		{"cbor", "", apperrors.ParseIO},
		{"msgpack", "   ", apperrors.ParseIO},
	}
	for _, tt := range tests {
		t.Run(tt.codec+"/"+tt.input, func(t *testing.T) {
			c, _ := Get(tt.codec)
			_, err := c.Decode([]byte(tt.input))
			var pe *apperrors.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Decode() error = %v, want *ParseError", err)
			}
			if pe.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v (%v)", pe.Kind, tt.kind, err)
			}
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("error does not match ErrInvalidInput")
			}
		})
	}
}

func TestDecodePositions(t *testing.T) {
	c, _ := Get("json")
	_, err := c.Decode([]byte("{\n  \"documents\": [\n    x\n  ]\n}"))
	var pe *apperrors.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Decode() error = %v", err)
	}
	if pe.Line != 3 || pe.Offset < 0 {
		t.Errorf("position = line %d offset %d, want line 3", pe.Line, pe.Offset)
	}

	x, _ := Get("xml")
	_, err = x.Decode([]byte("<corpus>\n<document>\n</corpus>"))
	if !errors.As(err, &pe) {
		t.Fatalf("Decode() error = %v", err)
	}
	if pe.Line != 3 {
		t.Errorf("xml Line = %d, want 3", pe.Line)
	}
}

func TestDecodeStructuralViolation(t *testing.T) {
	c, _ := Get("json")
	_, err := c.Decode([]byte(`{"documents":[{"id":0,"sentences":[]}]}`))
	var pe *apperrors.ParseError
	if !errors.As(err, &pe) || pe.Kind != apperrors.ParseSemantic {
		t.Fatalf("Decode() error = %v, want semantic ParseError", err)
	}
	if !errors.Is(err, apperrors.ErrEmptyObject) {
		t.Errorf("error does not match ErrEmptyObject")
	}

	_, err = c.Decode([]byte(`{"documents":[{"id":0,"sentences":[{"id":0,"lang":"en","tokens":[{"id":0,"form":"a"}],
		"translations":[{"id":0,"lang":"cs","tokens":[{"id":0,"form":"b"}],"translations":[{"id":0,"lang":"de","tokens":[{"id":0,"form":"c"}]}]}]}]}]}`))
	if !errors.As(err, &pe) || pe.Kind != apperrors.ParseSemantic {
		t.Errorf("nested translation error = %v, want semantic ParseError", err)
	}
}

func TestDecodeDepthLimit(t *testing.T) {
	deep := MaxDepth + 10

	nestedPB := []byte(nil)
	for i := 0; i < deep; i++ {
		nestedPB = appendMessage(nil, 4, nestedPB)
	}
	nestedPB = appendMessage(nil, 2, appendMessage(nil, 4, nestedPB))

	nestedCBOR := append(bytes.Repeat([]byte{0x81}, deep), 0x00)

	tests := []struct {
		codec string
		input []byte
	}{
		{"json", []byte(strings.Repeat("[", deep) + strings.Repeat("]", deep))},
		{"yaml", []byte("documents: " + strings.Repeat("[", deep) + strings.Repeat("]", deep) + "\n")},
		{"xml", []byte("<corpus>" + strings.Repeat("<a>", deep) + strings.Repeat("</a>", deep) + "</corpus>")},
		{"cbor", nestedCBOR},
		{"protobuf", nestedPB},
	}
	for _, tt := range tests {
		t.Run(tt.codec, func(t *testing.T) {
			c, _ := Get(tt.codec)
			_, err := c.Decode(tt.input)
			var pe *apperrors.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Decode() error = %v, want *ParseError", err)
			}
			if pe.Kind != apperrors.ParseRecursion {
				t.Errorf("Kind = %v, want recursion limit (%v)", pe.Kind, err)
			}
		})
	}
}

func TestProtobufSkipsUnknownFields(t *testing.T) {
	c, _ := Get("protobuf")
	data, err := c.Encode(sampleCorpus(t))
	if err != nil {
		t.Fatal(err)
	}
	extra := protowire.AppendTag(nil, 15, protowire.Fixed32Type)
	extra = protowire.AppendFixed32(extra, 7)
	extra = appendString(extra, 16, "future field")
	out, err := c.Decode(append(data, extra...))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out.TokenCount() != 12 {
		t.Errorf("TokenCount() = %d, want 12", out.TokenCount())
	}
}

func TestJSONIndent(t *testing.T) {
	c, _ := Get("json")
	in, ok := c.(Indenter)
	if !ok {
		t.Fatal("json codec does not implement Indenter")
	}
	pretty := in.Indented()
	if pretty.Name() != "json" {
		t.Errorf("Indented().Name() = %s, want json", pretty.Name())
	}
	data, err := pretty.Encode(sampleCorpus(t))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("\n  \"documents\"")) {
		t.Errorf("indented output missing expected layout:\n%s", data)
	}
	if _, err := pretty.Decode(data); err != nil {
		t.Errorf("Decode(indented) error = %v", err)
	}
}

func TestEncodeRejectsInvalidUTF8(t *testing.T) {
	for _, c := range List() {
		t.Run(c.Name(), func(t *testing.T) {
			in := sampleCorpus(t)
			d, _ := in.Document(0)
			s, _ := d.Sentence(1)
			tok, _ := s.Token(0)
			tok.SetLemma("a\xffb")

			data, err := c.Encode(in)
			var se *apperrors.SerializeError
			if !errors.As(err, &se) || !errors.Is(err, apperrors.ErrInternal) {
				t.Fatalf("Encode() = %d bytes, error %v, want SerializeError", len(data), err)
			}
			if !strings.Contains(err.Error(), "document 0 sentence 1 token 0 lemma") {
				t.Errorf("error %q does not name the field", err)
			}
		})
	}
}

func TestXMLRejectsControlCharacters(t *testing.T) {
	tests := []struct {
		codec   string
		wantErr bool
	}{
		{"xml", true},
		{"json", false},
		{"cbor", false},
	}
	for _, tt := range tests {
		t.Run(tt.codec, func(t *testing.T) {
			c, err := Get(tt.codec)
			if err != nil {
				t.Fatal(err)
			}
			in := sampleCorpus(t)
			d, _ := in.Document(0)
			s, _ := d.Sentence(0)
			tok, _ := s.Token(1)
			if err := tok.SetForm("a\x01b"); err != nil {
				t.Fatal(err)
			}

			data, err := c.Encode(in)
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrInternal) {
					t.Errorf("Encode() error = %v, want ErrInternal", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			out, err := c.Decode(data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(in.Schema(), out.Schema()) {
				t.Errorf("round trip changed the control character")
			}
		})
	}
}

func TestTimestampsRoundTripExactly(t *testing.T) {
	stamp := time.Date(2024, 3, 1, 13, 30, 15, 123_456_789, time.FixedZone("CET", 3600))
	for _, c := range List() {
		t.Run(c.Name(), func(t *testing.T) {
			in := corpus.New()
			m := in.InitMetadata("stamped")
			m.SetCreated(stamp)
			m.SetModified(stamp.Add(time.Hour))

			data, err := c.Encode(in)
			if err != nil {
				t.Fatal(err)
			}
			out, err := c.Decode(data)
			if err != nil {
				t.Fatal(err)
			}
			got := out.Metadata()
			if !got.Created().Equal(m.Created()) || !got.Modified().Equal(m.Modified()) {
				t.Errorf("timestamps %v / %v decoded as %v / %v",
					m.Created(), m.Modified(), got.Created(), got.Modified())
			}
			if !reflect.DeepEqual(in.Schema(), out.Schema()) {
				t.Errorf("round trip changed the corpus")
			}
		})
	}
}
