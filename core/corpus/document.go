package corpus

import (
	"slices"

	"github.com/FocuswithJustin/corporeum/core/errors"
)

// Document groups source sentences that come from one text.
type Document struct {
	id          uint32
	source      string
	description string
	sentences   []*Sentence
	sentenceIDs counter
}

func (d *Document) ID() uint32 { return d.id }

// Source returns where the text came from, "" if unknown.
func (d *Document) Source() string { return d.source }

// SetSource sets the document source. "" clears it.
func (d *Document) SetSource(source string) { d.source = source }

func (d *Document) Description() string     { return d.description }
func (d *Document) SetDescription(s string) { d.description = s }

// Sentences returns the attached sentences in insertion order.
func (d *Document) Sentences() []*Sentence {
	return slices.Clone(d.sentences)
}

// Sentence returns the attached sentence with the given id.
func (d *Document) Sentence(id uint32) (*Sentence, error) {
	if i := d.indexOf(id); i >= 0 {
		return d.sentences[i], nil
	}
	return nil, errors.NewNotFound("sentence", formatID(id))
}

// CreateSentence reserves the next sentence id and returns a detached
// source sentence in language lang.
func (d *Document) CreateSentence(lang string) *Sentence {
	return &Sentence{id: d.sentenceIDs.reserve(), role: RoleSource, lang: lang}
}

// AddSentence attaches a source sentence. It fails if the sentence has no
// tokens, is a translation, or reuses an attached id.
func (d *Document) AddSentence(s *Sentence) error {
	if s == nil {
		return errors.NewValidation("sentence", "must not be nil")
	}
	if s.role != RoleSource {
		return errors.NewValidation("sentence", "a translation cannot be attached to a document")
	}
	if len(s.tokens) == 0 {
		return errors.NewEmptyObject("sentence", formatID(s.id))
	}
	if err := checkUTF8("sentence", s.lang); err != nil {
		return err
	}
	if d.indexOf(s.id) >= 0 {
		return errors.NewDuplicate("sentence", "id "+formatID(s.id)+" already attached")
	}
	d.sentenceIDs.observe(s.id)
	d.sentences = append(d.sentences, s)
	return nil
}

// RemoveSentence detaches a sentence together with its tokens and
// translations. The last sentence cannot be removed; remove the document
// instead.
func (d *Document) RemoveSentence(id uint32) error {
	i := d.indexOf(id)
	if i < 0 {
		return errors.NewNotFound("sentence", formatID(id))
	}
	if len(d.sentences) == 1 {
		return errors.NewEmptyRemoval("document", formatID(d.id))
	}
	d.sentences = slices.Delete(d.sentences, i, i+1)
	return nil
}

func (d *Document) indexOf(id uint32) int {
	return slices.IndexFunc(d.sentences, func(s *Sentence) bool { return s.id == id })
}
