// Package schema defines the logical wire layout of a corpus.
//
// These types carry no invariants of their own; they are the
// field-presence contract shared by every key-based codec (cbor, msgpack,
// json, yaml). Optional fields are omitted when empty and tolerated when
// absent. The corpus package converts between this layout and the
// validated entity tree.
package schema

import "fmt"

// Corpus is the root of a persisted corpus.
type Corpus struct {
	Metadata  *Metadata  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Documents []Document `json:"documents" yaml:"documents"`
}

// Metadata describes the corpus as a whole. Timestamps are Unix seconds.
type Metadata struct {
	Authors     []Author `json:"authors,omitempty" yaml:"authors,omitempty"`
	Created     *int64   `json:"created,omitempty" yaml:"created,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Modified    *int64   `json:"modified,omitempty" yaml:"modified,omitempty"`
	Name        string   `json:"name" yaml:"name"`
	Version     uint16   `json:"version" yaml:"version"`
}

// Author identifies a contributor.
type Author struct {
	FirstName string `json:"first_name" yaml:"first_name"`
	LastName  string `json:"last_name" yaml:"last_name"`
	Mail      string `json:"mail,omitempty" yaml:"mail,omitempty"`
}

// Document is an ordered list of source sentences.
type Document struct {
	ID          uint32     `json:"id" yaml:"id"`
	Source      string     `json:"source,omitempty" yaml:"source,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Sentences   []Sentence `json:"sentences" yaml:"sentences"`
}

// Sentence is used for both source sentences and their translations.
// A translation never carries translations of its own.
type Sentence struct {
	ID           uint32     `json:"id" yaml:"id"`
	Lang         string     `json:"lang" yaml:"lang"`
	Tokens       []Token    `json:"tokens" yaml:"tokens"`
	Translations []Sentence `json:"translations,omitempty" yaml:"translations,omitempty"`
}

// Token is one word form with optional CoNLL-U style annotations.
type Token struct {
	ID     uint32 `json:"id" yaml:"id"`
	Form   string `json:"form" yaml:"form"`
	Lemma  string `json:"lemma,omitempty" yaml:"lemma,omitempty"`
	Upos   string `json:"upos,omitempty" yaml:"upos,omitempty"`
	Xpos   string `json:"xpos,omitempty" yaml:"xpos,omitempty"`
	Feats  string `json:"feats,omitempty" yaml:"feats,omitempty"`
	Head   string `json:"head,omitempty" yaml:"head,omitempty"`
	Deprel string `json:"deprel,omitempty" yaml:"deprel,omitempty"`
	Deps   string `json:"deps,omitempty" yaml:"deps,omitempty"`
	Misc   string `json:"misc,omitempty" yaml:"misc,omitempty"`
}

// Depth returns the nesting depth of a sentence: 1 for a sentence without
// translations, 2 when it has translations, and so on.
func (s *Sentence) Depth() int {
	deepest := 0
	for i := range s.Translations {
		deepest = max(deepest, s.Translations[i].Depth())
	}
	return deepest + 1
}

// EachString calls fn for every string value in the tree, depth first,
// and stops at the first error. field locates the value, for example
// "document 0 sentence 1 token 2 form".
func (c *Corpus) EachString(fn func(field, value string) error) error {
	if m := c.Metadata; m != nil {
		if err := each(fn, "metadata", "name", m.Name, "description", m.Description); err != nil {
			return err
		}
		for i, a := range m.Authors {
			at := fmt.Sprintf("metadata author %d", i)
			if err := each(fn, at, "first_name", a.FirstName, "last_name", a.LastName, "mail", a.Mail); err != nil {
				return err
			}
		}
	}
	for i := range c.Documents {
		d := &c.Documents[i]
		at := fmt.Sprintf("document %d", d.ID)
		if err := each(fn, at, "source", d.Source, "description", d.Description); err != nil {
			return err
		}
		for j := range d.Sentences {
			if err := d.Sentences[j].eachString(at+" sentence", fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Sentence) eachString(prefix string, fn func(field, value string) error) error {
	at := fmt.Sprintf("%s %d", prefix, s.ID)
	if err := each(fn, at, "lang", s.Lang); err != nil {
		return err
	}
	for _, t := range s.Tokens {
		err := each(fn, fmt.Sprintf("%s token %d", at, t.ID),
			"form", t.Form, "lemma", t.Lemma, "upos", t.Upos, "xpos", t.Xpos, "feats", t.Feats,
			"head", t.Head, "deprel", t.Deprel, "deps", t.Deps, "misc", t.Misc)
		if err != nil {
			return err
		}
	}
	for i := range s.Translations {
		if err := s.Translations[i].eachString(at+" translation", fn); err != nil {
			return err
		}
	}
	return nil
}

// each calls fn on name/value pairs.
func each(fn func(field, value string) error, at string, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := fn(at+" "+pairs[i], pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}
