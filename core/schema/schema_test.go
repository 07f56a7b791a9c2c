package schema

import (
	"errors"
	"reflect"
	"testing"
)

func TestEachString(t *testing.T) {
	c := &Corpus{
		Metadata: &Metadata{Name: "cats", Authors: []Author{{FirstName: "Ada"}}},
		Documents: []Document{{
			ID:     4,
			Source: "cats.conllu",
			Sentences: []Sentence{{
				ID:           1,
				Lang:         "en",
				Tokens:       []Token{{ID: 2, Form: "cats", Lemma: "cat"}},
				Translations: []Sentence{{ID: 0, Lang: "cs", Tokens: []Token{{Form: "kočky"}}}},
			}},
		}},
	}

	seen := map[string]string{}
	err := c.EachString(func(field, value string) error {
		if value != "" {
			seen[field] = value
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"metadata name":                                    "cats",
		"metadata author 0 first_name":                     "Ada",
		"document 4 source":                                "cats.conllu",
		"document 4 sentence 1 lang":                       "en",
		"document 4 sentence 1 token 2 form":               "cats",
		"document 4 sentence 1 token 2 lemma":              "cat",
		"document 4 sentence 1 translation 0 lang":         "cs",
		"document 4 sentence 1 translation 0 token 0 form": "kočky",
	}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("EachString() visited %v, want %v", seen, want)
	}

	stop := errors.New("stop")
	calls := 0
	err = c.EachString(func(string, string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("EachString() = %v after %d calls, want stop after 1", err, calls)
	}
}

func TestDepth(t *testing.T) {
	leaf := Sentence{}
	tests := []struct {
		name string
		s    Sentence
		want int
	}{
		{"no translations", leaf, 1},
		{"translated", Sentence{Translations: []Sentence{leaf}}, 2},
		{"nested", Sentence{Translations: []Sentence{leaf, {Translations: []Sentence{leaf}}}}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Depth(); got != tt.want {
				t.Errorf("Depth() = %d, want %d", got, tt.want)
			}
		})
	}
}
