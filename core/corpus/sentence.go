package corpus

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/FocuswithJustin/corporeum/core/errors"
)

// Role tells a source sentence apart from a translation.
type Role int

const (
	// RoleSource is a sentence owned by a Document.
	RoleSource Role = iota
	// RoleTarget is a translation owned by a source sentence.
	RoleTarget
)

func (r Role) String() string {
	switch r {
	case RoleSource:
		return "source"
	case RoleTarget:
		return "target"
	default:
		return "unknown"
	}
}

// Sentence is an ordered list of tokens in one language. A source
// sentence may also own translations; a target sentence may not.
type Sentence struct {
	id             uint32
	role           Role
	lang           string
	tokens         []*Token
	translations   []*Sentence
	tokenIDs       counter
	translationIDs counter
}

func (s *Sentence) ID() uint32       { return s.id }
func (s *Sentence) Role() Role       { return s.role }
func (s *Sentence) Lang() string     { return s.lang }
func (s *Sentence) SetLang(l string) { s.lang = l }
func (s *Sentence) Tokens() []*Token { return slices.Clone(s.tokens) }
func (s *Sentence) Translations() []*Sentence {
	return slices.Clone(s.translations)
}

// Text joins the token forms with single spaces.
func (s *Sentence) Text() string {
	forms := make([]string, len(s.tokens))
	for i, t := range s.tokens {
		forms[i] = t.form
	}
	return strings.Join(forms, " ")
}

// Token returns the attached token with the given id.
func (s *Sentence) Token(id uint32) (*Token, error) {
	if i := s.tokenIndex(id); i >= 0 {
		return s.tokens[i], nil
	}
	return nil, errors.NewNotFound("token", formatID(id))
}

// CreateToken reserves the next token id and returns a detached token.
func (s *Sentence) CreateToken(form string) *Token {
	return &Token{id: s.tokenIDs.reserve(), form: form}
}

// AddToken attaches a token. Tokens with an empty form are rejected.
func (s *Sentence) AddToken(t *Token) error {
	if t == nil {
		return errors.NewValidation("token", "must not be nil")
	}
	if t.form == "" {
		return errors.NewEmptyObject("token", formatID(t.id))
	}
	if err := checkUTF8("token", t.form, t.lemma, t.upos, t.xpos, t.feats, t.head, t.deprel, t.deps, t.misc); err != nil {
		return err
	}
	if s.tokenIndex(t.id) >= 0 {
		return errors.NewDuplicate("token", "id "+formatID(t.id)+" already attached")
	}
	s.tokenIDs.observe(t.id)
	s.tokens = append(s.tokens, t)
	return nil
}

// RemoveToken detaches the token with the given id. The last token cannot
// be removed.
func (s *Sentence) RemoveToken(id uint32) error {
	i := s.tokenIndex(id)
	if i < 0 {
		return errors.NewNotFound("token", formatID(id))
	}
	if len(s.tokens) == 1 {
		resource := "sentence"
		if s.role == RoleTarget {
			resource = "translation"
		}
		return errors.NewEmptyRemoval(resource, formatID(s.id))
	}
	s.tokens = slices.Delete(s.tokens, i, i+1)
	return nil
}

// Translation returns the attached translation with the given id.
func (s *Sentence) Translation(id uint32) (*Sentence, error) {
	if i := s.translationIndex(id); i >= 0 {
		return s.translations[i], nil
	}
	return nil, errors.NewNotFound("translation", formatID(id))
}

// CreateTranslation reserves the next translation id and returns a
// detached target sentence in language lang. Translations cannot be
// translated further.
func (s *Sentence) CreateTranslation(lang string) (*Sentence, error) {
	if s.role != RoleSource {
		return nil, errors.NewValidation("translation", "a translation cannot own translations")
	}
	return &Sentence{id: s.translationIDs.reserve(), role: RoleTarget, lang: lang}, nil
}

// AddTranslation attaches a target sentence.
func (s *Sentence) AddTranslation(t *Sentence) error {
	switch {
	case t == nil:
		return errors.NewValidation("translation", "must not be nil")
	case s.role != RoleSource:
		return errors.NewValidation("translation", "a translation cannot own translations")
	case t.role != RoleTarget:
		return errors.NewValidation("translation", "a source sentence cannot be attached as a translation")
	case len(t.tokens) == 0:
		return errors.NewEmptyObject("translation", formatID(t.id))
	case !utf8.ValidString(t.lang):
		return errors.NewValidation("translation", "not valid UTF-8")
	case s.translationIndex(t.id) >= 0:
		return errors.NewDuplicate("translation", "id "+formatID(t.id)+" already attached")
	}
	s.translationIDs.observe(t.id)
	s.translations = append(s.translations, t)
	return nil
}

// RemoveTranslation detaches the translation with the given id.
func (s *Sentence) RemoveTranslation(id uint32) error {
	i := s.translationIndex(id)
	if i < 0 {
		return errors.NewNotFound("translation", formatID(id))
	}
	s.translations = slices.Delete(s.translations, i, i+1)
	return nil
}

func (s *Sentence) tokenIndex(id uint32) int {
	return slices.IndexFunc(s.tokens, func(t *Token) bool { return t.id == id })
}

func (s *Sentence) translationIndex(id uint32) int {
	return slices.IndexFunc(s.translations, func(t *Sentence) bool { return t.id == id })
}
