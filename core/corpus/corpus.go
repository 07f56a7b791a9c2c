// Package corpus is the in-memory entity model of a linguistic corpus.
//
// A Corpus owns Documents, a Document owns source Sentences, a source
// Sentence owns Tokens and target Sentences (translations), and a target
// Sentence owns Tokens. Every parent hands out ids from its own monotonic
// counter.
//
// Children are built in two phases. CreateX reserves an id and returns a
// detached value; AddX validates the value and attaches it. A child that
// would be empty when attached is rejected with an EmptyObjectError and
// the parent is left untouched. The same error guards removals: the last
// sentence of a document and the last token of a sentence cannot be
// removed. Ids are stable: removing a child never renumbers its siblings.
//
// Text must be valid UTF-8. AddX rejects invalid strings with a
// ValidationError.
//
// The tree is not safe for concurrent use. Wrap it in a corpusfile.File
// when several goroutines share it.
package corpus

import (
	"math"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/FocuswithJustin/corporeum/core/errors"
)

// counter hands out monotonically increasing ids within one parent.
type counter struct {
	next uint32
}

func (c *counter) reserve() uint32 {
	id := c.next
	if c.next < math.MaxUint32 {
		c.next++
	}
	return id
}

// observe raises the counter past an id that was not reserved here.
func (c *counter) observe(id uint32) {
	if id < c.next {
		return
	}
	if id == math.MaxUint32 {
		c.next = id
		return
	}
	c.next = id + 1
}

func formatID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

// checkUTF8 rejects any value that is not valid UTF-8. Every string in the
// tree is text; encoders must never see raw bytes.
func checkUTF8(field string, values ...string) error {
	for _, v := range values {
		if !utf8.ValidString(v) {
			return errors.NewValidation(field, "not valid UTF-8")
		}
	}
	return nil
}

// Corpus is the root of the entity tree.
type Corpus struct {
	metadata  *Metadata
	documents []*Document
	docIDs    counter
}

// New creates an empty corpus without metadata.
func New() *Corpus {
	return &Corpus{}
}

// Metadata returns the corpus metadata, or nil if none was set.
func (c *Corpus) Metadata() *Metadata {
	return c.metadata
}

// SetMetadata replaces the corpus metadata. Passing nil removes it.
func (c *Corpus) SetMetadata(m *Metadata) {
	c.metadata = m
}

// InitMetadata replaces the corpus metadata with a fresh record for name
// and returns it.
func (c *Corpus) InitMetadata(name string) *Metadata {
	c.metadata = NewMetadata(name)
	return c.metadata
}

// Documents returns the attached documents in insertion order.
func (c *Corpus) Documents() []*Document {
	return slices.Clone(c.documents)
}

// Document returns the attached document with the given id.
func (c *Corpus) Document(id uint32) (*Document, error) {
	if i := c.indexOf(id); i >= 0 {
		return c.documents[i], nil
	}
	return nil, errors.NewNotFound("document", formatID(id))
}

// CreateDocument reserves the next document id and returns a detached,
// empty document carrying it. The corpus itself is not changed.
func (c *Corpus) CreateDocument() *Document {
	return &Document{id: c.docIDs.reserve()}
}

// AddDocument attaches a document. It fails if the document has no
// sentences or if its id is already in use.
func (c *Corpus) AddDocument(d *Document) error {
	if d == nil {
		return errors.NewValidation("document", "must not be nil")
	}
	if len(d.sentences) == 0 {
		return errors.NewEmptyObject("document", formatID(d.id))
	}
	if err := checkUTF8("document", d.source, d.description); err != nil {
		return err
	}
	if c.indexOf(d.id) >= 0 {
		return errors.NewDuplicate("document", "id "+formatID(d.id)+" already attached")
	}
	c.docIDs.observe(d.id)
	c.documents = append(c.documents, d)
	return nil
}

// RemoveDocument detaches the document with the given id together with
// everything it owns.
func (c *Corpus) RemoveDocument(id uint32) error {
	i := c.indexOf(id)
	if i < 0 {
		return errors.NewNotFound("document", formatID(id))
	}
	c.documents = slices.Delete(c.documents, i, i+1)
	return nil
}

// SentenceCount returns the number of source sentences in the corpus.
// Translations are not counted.
func (c *Corpus) SentenceCount() int {
	n := 0
	for _, d := range c.documents {
		n += len(d.sentences)
	}
	return n
}

// TokenCount returns the number of tokens across all source sentences and
// their translations.
func (c *Corpus) TokenCount() int {
	n := 0
	for _, d := range c.documents {
		for _, s := range d.sentences {
			n += len(s.tokens)
			for _, t := range s.translations {
				n += len(t.tokens)
			}
		}
	}
	return n
}

func (c *Corpus) indexOf(id uint32) int {
	return slices.IndexFunc(c.documents, func(d *Document) bool { return d.id == id })
}
