package corpus

import (
	"fmt"
	"time"

	"github.com/FocuswithJustin/corporeum/core/errors"
	"github.com/FocuswithJustin/corporeum/core/schema"
)

// Schema converts the corpus into its wire layout.
func (c *Corpus) Schema() *schema.Corpus {
	out := &schema.Corpus{
		Documents: make([]schema.Document, len(c.documents)),
	}
	if c.metadata != nil {
		out.Metadata = c.metadata.schema()
	}
	for i, d := range c.documents {
		out.Documents[i] = d.schema()
	}
	return out
}

func (m *Metadata) schema() *schema.Metadata {
	out := &schema.Metadata{
		Name:        m.name,
		Description: m.description,
		Version:     m.version,
		Created:     unixSeconds(m.created),
		Modified:    unixSeconds(m.modified),
	}
	for _, a := range m.authors {
		out.Authors = append(out.Authors, schema.Author{
			FirstName: a.firstName,
			LastName:  a.lastName,
			Mail:      a.mail,
		})
	}
	return out
}

func (d *Document) schema() schema.Document {
	out := schema.Document{
		ID:          d.id,
		Source:      d.source,
		Description: d.description,
		Sentences:   make([]schema.Sentence, len(d.sentences)),
	}
	for i, s := range d.sentences {
		out.Sentences[i] = s.schema()
	}
	return out
}

func (s *Sentence) schema() schema.Sentence {
	out := schema.Sentence{
		ID:     s.id,
		Lang:   s.lang,
		Tokens: make([]schema.Token, len(s.tokens)),
	}
	for i, t := range s.tokens {
		out.Tokens[i] = schema.Token{
			ID:     t.id,
			Form:   t.form,
			Lemma:  t.lemma,
			Upos:   t.upos,
			Xpos:   t.xpos,
			Feats:  t.feats,
			Head:   t.head,
			Deprel: t.deprel,
			Deps:   t.deps,
			Misc:   t.misc,
		}
	}
	for _, tr := range s.translations {
		out.Translations = append(out.Translations, tr.schema())
	}
	return out
}

func unixSeconds(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	v := t.Unix()
	return &v
}

func fromUnix(v *int64) time.Time {
	if v == nil {
		return time.Time{}
	}
	return time.Unix(*v, 0).UTC()
}

// FromSchema builds a validated corpus from its wire layout. Every child
// goes through the same AddX checks as hand-built trees, so empty
// documents, sentences and translations, duplicate ids, duplicate authors
// and nested translations are all rejected. Id counters are rebuilt as one
// past the largest id seen in each parent.
func FromSchema(in *schema.Corpus) (*Corpus, error) {
	if in == nil {
		return nil, errors.NewValidation("corpus", "must not be nil")
	}
	c := New()
	if in.Metadata != nil {
		m, err := metadataFromSchema(in.Metadata)
		if err != nil {
			return nil, err
		}
		c.metadata = m
	}
	for i := range in.Documents {
		sd := &in.Documents[i]
		d := &Document{id: sd.ID, source: sd.Source, description: sd.Description}
		for j := range sd.Sentences {
			if depth := sd.Sentences[j].Depth(); depth > 2 {
				return nil, errors.NewValidation("translation", fmt.Sprintf("document %d sentence %d nests translations %d deep", sd.ID, sd.Sentences[j].ID, depth-1))
			}
			s, err := sentenceFromSchema(&sd.Sentences[j], RoleSource)
			if err != nil {
				return nil, errors.Wrapf(err, "document %d", sd.ID)
			}
			if err := d.AddSentence(s); err != nil {
				return nil, errors.Wrapf(err, "document %d", sd.ID)
			}
		}
		if err := c.AddDocument(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func metadataFromSchema(in *schema.Metadata) (*Metadata, error) {
	m := &Metadata{
		name:        in.Name,
		description: in.Description,
		version:     in.Version,
		created:     fromUnix(in.Created),
		modified:    fromUnix(in.Modified),
	}
	for _, a := range in.Authors {
		if err := m.AddAuthor(NewAuthor(a.FirstName, a.LastName, a.Mail)); err != nil {
			return nil, errors.Wrap(err, "metadata")
		}
	}
	return m, nil
}

func sentenceFromSchema(in *schema.Sentence, role Role) (*Sentence, error) {
	s := &Sentence{id: in.ID, role: role, lang: in.Lang}
	for i := range in.Tokens {
		st := &in.Tokens[i]
		t := &Token{
			id:     st.ID,
			form:   st.Form,
			lemma:  st.Lemma,
			upos:   st.Upos,
			xpos:   st.Xpos,
			feats:  st.Feats,
			head:   st.Head,
			deprel: st.Deprel,
			deps:   st.Deps,
			misc:   st.Misc,
		}
		if err := s.AddToken(t); err != nil {
			return nil, errors.Wrapf(err, "sentence %d", in.ID)
		}
	}
	for i := range in.Translations {
		tr, err := sentenceFromSchema(&in.Translations[i], RoleTarget)
		if err != nil {
			return nil, errors.Wrapf(err, "sentence %d", in.ID)
		}
		if err := s.AddTranslation(tr); err != nil {
			return nil, errors.Wrapf(err, "sentence %d", in.ID)
		}
	}
	return s, nil
}
