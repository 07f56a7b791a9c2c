package corpus

import (
	"unicode/utf8"

	"github.com/FocuswithJustin/corporeum/core/errors"
)

// Token is a single word form. The annotation fields follow the CoNLL-U
// columns; "" means the annotation is absent.
type Token struct {
	id     uint32
	form   string
	lemma  string
	upos   string
	xpos   string
	feats  string
	head   string
	deprel string
	deps   string
	misc   string
}

func (t *Token) ID() uint32 { return t.id }

// Form returns the surface form.
func (t *Token) Form() string { return t.form }

// SetForm replaces the surface form. It rejects an empty form and text
// that is not valid UTF-8, leaving the token unchanged.
func (t *Token) SetForm(form string) error {
	if form == "" {
		return errors.NewEmptyObject("token", formatID(t.id))
	}
	if !utf8.ValidString(form) {
		return errors.NewValidation("form", "not valid UTF-8")
	}
	t.form = form
	return nil
}

func (t *Token) Lemma() string      { return t.lemma }
func (t *Token) SetLemma(v string)  { t.lemma = v }
func (t *Token) RemoveLemma()       { t.lemma = "" }
func (t *Token) Upos() string       { return t.upos }
func (t *Token) SetUpos(v string)   { t.upos = v }
func (t *Token) RemoveUpos()        { t.upos = "" }
func (t *Token) Xpos() string       { return t.xpos }
func (t *Token) SetXpos(v string)   { t.xpos = v }
func (t *Token) RemoveXpos()        { t.xpos = "" }
func (t *Token) Feats() string      { return t.feats }
func (t *Token) SetFeats(v string)  { t.feats = v }
func (t *Token) RemoveFeats()       { t.feats = "" }
func (t *Token) Head() string       { return t.head }
func (t *Token) SetHead(v string)   { t.head = v }
func (t *Token) RemoveHead()        { t.head = "" }
func (t *Token) Deprel() string     { return t.deprel }
func (t *Token) SetDeprel(v string) { t.deprel = v }
func (t *Token) RemoveDeprel()      { t.deprel = "" }
func (t *Token) Deps() string       { return t.deps }
func (t *Token) SetDeps(v string)   { t.deps = v }
func (t *Token) RemoveDeps()        { t.deps = "" }
func (t *Token) Misc() string       { return t.misc }
func (t *Token) SetMisc(v string)   { t.misc = v }
func (t *Token) RemoveMisc()        { t.misc = "" }
