package codec

import (
	"bytes"
	"encoding/xml"
	stderrors "errors"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/corporeum/core/corpus"
	"github.com/FocuswithJustin/corporeum/core/errors"
	"github.com/FocuswithJustin/corporeum/core/schema"
)

// XML is the markup codec. Scalars are attributes; lists are repeated
// child elements:
//
//	<corpus>
//	  <metadata name="c" version="1"><author first_name="Ada" last_name="Lovelace"/></metadata>
//	  <document id="0">
//	    <sentence id="0" lang="en">
//	      <token id="0" form="Hi"/>
//	      <translation id="0" lang="cs"><token id="0" form="Ahoj"/></translation>
//	    </sentence>
//	  </document>
//	</corpus>
type XML struct{}

type xmlCorpus struct {
	XMLName   xml.Name      `xml:"corpus"`
	Metadata  *xmlMetadata  `xml:"metadata,omitempty"`
	Documents []xmlDocument `xml:"document"`
}

type xmlMetadata struct {
	Name        string      `xml:"name,attr"`
	Version     uint16      `xml:"version,attr"`
	Created     *int64      `xml:"created,attr,omitempty"`
	Modified    *int64      `xml:"modified,attr,omitempty"`
	Description string      `xml:"description,attr,omitempty"`
	Authors     []xmlAuthor `xml:"author"`
}

type xmlAuthor struct {
	FirstName string `xml:"first_name,attr"`
	LastName  string `xml:"last_name,attr"`
	Mail      string `xml:"mail,attr,omitempty"`
}

type xmlDocument struct {
	ID          uint32        `xml:"id,attr"`
	Source      string        `xml:"source,attr,omitempty"`
	Description string        `xml:"description,attr,omitempty"`
	Sentences   []xmlSentence `xml:"sentence"`
}

type xmlSentence struct {
	ID           uint32        `xml:"id,attr"`
	Lang         string        `xml:"lang,attr"`
	Tokens       []xmlToken    `xml:"token"`
	Translations []xmlSentence `xml:"translation"`
}

type xmlToken struct {
	ID     uint32 `xml:"id,attr"`
	Form   string `xml:"form,attr"`
	Lemma  string `xml:"lemma,attr,omitempty"`
	Upos   string `xml:"upos,attr,omitempty"`
	Xpos   string `xml:"xpos,attr,omitempty"`
	Feats  string `xml:"feats,attr,omitempty"`
	Head   string `xml:"head,attr,omitempty"`
	Deprel string `xml:"deprel,attr,omitempty"`
	Deps   string `xml:"deps,attr,omitempty"`
	Misc   string `xml:"misc,attr,omitempty"`
}

func (x *XML) Name() string         { return "xml" }
func (x *XML) Extensions() []string { return []string{".xml"} }

func (x *XML) Encode(c *corpus.Corpus) ([]byte, error) {
	sc, err := encodable(x.Name(), c, xmlText)
	if err != nil {
		return nil, err
	}
	body, err := xml.MarshalIndent(toXML(sc), "", "  ")
	if err != nil {
		return nil, errors.NewSerialize(x.Name(), err)
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	return append(out, '\n'), nil
}

// xmlText reports whether s is valid UTF-8 made only of characters XML 1.0
// can hold. encoding/xml would replace the others with U+FFFD.
func xmlText(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		switch {
		case r == 0x09 || r == 0x0A || r == 0x0D:
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= 0x10FFFF:
		default:
			return false
		}
	}
	return true
}

func toXML(sc *schema.Corpus) *xmlCorpus {
	out := &xmlCorpus{}
	if m := sc.Metadata; m != nil {
		xm := &xmlMetadata{
			Name:        m.Name,
			Version:     m.Version,
			Created:     m.Created,
			Modified:    m.Modified,
			Description: m.Description,
		}
		for _, a := range m.Authors {
			xm.Authors = append(xm.Authors, xmlAuthor(a))
		}
		out.Metadata = xm
	}
	for _, d := range sc.Documents {
		xd := xmlDocument{ID: d.ID, Source: d.Source, Description: d.Description}
		for i := range d.Sentences {
			xd.Sentences = append(xd.Sentences, toXMLSentence(&d.Sentences[i]))
		}
		out.Documents = append(out.Documents, xd)
	}
	return out
}

func toXMLSentence(s *schema.Sentence) xmlSentence {
	out := xmlSentence{ID: s.ID, Lang: s.Lang}
	for _, t := range s.Tokens {
		out.Tokens = append(out.Tokens, xmlToken(t))
	}
	for i := range s.Translations {
		out.Translations = append(out.Translations, toXMLSentence(&s.Translations[i]))
	}
	return out
}

var (
	xpCorpus       = xpath.MustCompile("/corpus")
	xpMetadata     = xpath.MustCompile("metadata")
	xpAuthors      = xpath.MustCompile("author")
	xpDocuments    = xpath.MustCompile("document")
	xpSentences    = xpath.MustCompile("sentence")
	xpTokens       = xpath.MustCompile("token")
	xpTranslations = xpath.MustCompile("translation")
)

// Decode parses the document tree with xmlquery and walks it with
// precompiled XPath selectors. Unknown elements and attributes are ignored.
func (x *XML) Decode(data []byte) (*corpus.Corpus, error) {
	if err := checkInput(x.Name(), data); err != nil {
		return nil, err
	}
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, xmlParseError(err)
	}
	if xmlDepth(doc) > MaxDepth {
		return nil, errors.NewParse(x.Name(), errors.ParseRecursion, "nesting exceeds the maximum depth", nil)
	}
	root := xmlquery.QuerySelector(doc, xpCorpus)
	if root == nil {
		return nil, errors.NewParse(x.Name(), errors.ParseSemantic, "missing <corpus> root element", nil)
	}

	r := &xmlReader{}
	sc := &schema.Corpus{}
	if m := xmlquery.QuerySelector(root, xpMetadata); m != nil {
		sc.Metadata = r.metadata(m)
	}
	for _, d := range xmlquery.QuerySelectorAll(root, xpDocuments) {
		sc.Documents = append(sc.Documents, r.document(d))
	}
	if r.err != nil {
		return nil, r.err
	}
	return build(x.Name(), sc)
}

// xmlReader keeps the first attribute conversion error so the tree walk
// stays linear.
type xmlReader struct {
	err error
}

func (r *xmlReader) metadata(n *xmlquery.Node) *schema.Metadata {
	m := &schema.Metadata{
		Name:        n.SelectAttr("name"),
		Description: n.SelectAttr("description"),
		Version:     uint16(r.number(n, "version", 16)),
		Created:     r.int64Ptr(n, "created"),
		Modified:    r.int64Ptr(n, "modified"),
	}
	for _, a := range xmlquery.QuerySelectorAll(n, xpAuthors) {
		m.Authors = append(m.Authors, schema.Author{
			FirstName: a.SelectAttr("first_name"),
			LastName:  a.SelectAttr("last_name"),
			Mail:      a.SelectAttr("mail"),
		})
	}
	return m
}

func (r *xmlReader) document(n *xmlquery.Node) schema.Document {
	d := schema.Document{
		ID:          uint32(r.number(n, "id", 32)),
		Source:      n.SelectAttr("source"),
		Description: n.SelectAttr("description"),
	}
	for _, s := range xmlquery.QuerySelectorAll(n, xpSentences) {
		d.Sentences = append(d.Sentences, r.sentence(s))
	}
	return d
}

func (r *xmlReader) sentence(n *xmlquery.Node) schema.Sentence {
	s := schema.Sentence{
		ID:   uint32(r.number(n, "id", 32)),
		Lang: n.SelectAttr("lang"),
	}
	for _, t := range xmlquery.QuerySelectorAll(n, xpTokens) {
		s.Tokens = append(s.Tokens, schema.Token{
			ID:     uint32(r.number(t, "id", 32)),
			Form:   t.SelectAttr("form"),
			Lemma:  t.SelectAttr("lemma"),
			Upos:   t.SelectAttr("upos"),
			Xpos:   t.SelectAttr("xpos"),
			Feats:  t.SelectAttr("feats"),
			Head:   t.SelectAttr("head"),
			Deprel: t.SelectAttr("deprel"),
			Deps:   t.SelectAttr("deps"),
			Misc:   t.SelectAttr("misc"),
		})
	}
	for _, tr := range xmlquery.QuerySelectorAll(n, xpTranslations) {
		s.Translations = append(s.Translations, r.sentence(tr))
	}
	return s
}

func (r *xmlReader) number(n *xmlquery.Node, attr string, bits int) uint64 {
	raw, ok := xmlAttr(n, attr)
	if !ok {
		return 0
	}
	v, err := strconv.ParseUint(raw, 10, bits)
	if err != nil && r.err == nil {
		r.err = errors.NewParse("xml", errors.ParseSemantic,
			"<"+n.Data+"> attribute "+attr+"="+strconv.Quote(raw)+" is not a valid number", err)
	}
	return v
}

func (r *xmlReader) int64Ptr(n *xmlquery.Node, attr string) *int64 {
	raw, ok := xmlAttr(n, attr)
	if !ok {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if r.err == nil {
			r.err = errors.NewParse("xml", errors.ParseSemantic,
				"<"+n.Data+"> attribute "+attr+"="+strconv.Quote(raw)+" is not a valid timestamp", err)
		}
		return nil
	}
	return &v
}

func xmlAttr(n *xmlquery.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func xmlDepth(n *xmlquery.Node) int {
	deepest := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		deepest = max(deepest, xmlDepth(c))
		if deepest > MaxDepth {
			break
		}
	}
	if n.Type == xmlquery.ElementNode {
		return deepest + 1
	}
	return deepest
}

func xmlParseError(err error) *errors.ParseError {
	pe := errors.NewParse("xml", errors.ParseSyntax, err.Error(), err)
	var syntaxErr *xml.SyntaxError
	switch {
	case stderrors.As(err, &syntaxErr):
		pe.Line = syntaxErr.Line
	case stderrors.Is(err, io.ErrUnexpectedEOF):
		pe.Kind = errors.ParseIO
	}
	return pe
}
