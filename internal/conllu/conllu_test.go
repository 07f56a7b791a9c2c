package conllu

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/FocuswithJustin/corporeum/core/corpus"
	apperrors "github.com/FocuswithJustin/corporeum/core/errors"
)

const sample = "# newdoc id = cats\n" +
	"# sent_id = 1\n" +
	"# text = I like cats.\n" +
	"1\tI\tI\tPRON\tPRP\tCase=Nom|Number=Sing|Person=1\t2\tnsubj\t2:nsubj\t_\n" +
	"2\tlike\tlike\tVERB\tVBP\tMood=Ind|Tense=Pres\t0\troot\t0:root\t_\n" +
	"3\tcats\tcat\tNOUN\tNNS\tNumber=Plur\t2\tobj\t2:obj\tSpaceAfter=No\n" +
	"4\t.\t.\tPUNCT\t.\t_\t2\tpunct\t2:punct\t_\n" +
	"\n" +
	"# sent_id = 2\n" +
	"1-2\tCats'\t_\t_\t_\t_\t_\t_\t_\t_\n" +
	"1\tCats\tcat\tNOUN\tNNS\t_\t2\tnsubj\t_\t_\n" +
	"2\t'\t'\tPART\tPOS\t_\t1\tcase\t_\t_\n" +
	"2.1\tlike\tlike\tVERB\t_\t_\t_\t_\t0:root\t_\n" +
	"3\tme\tI\tPRON\tPRP\t_\t2\tobj\t_\t_\n" +
	"\n" +
	"\n"

func TestReadDocument(t *testing.T) {
	c := corpus.New()
	doc, err := ReadDocument(c, strings.NewReader(sample), "cats.conllu", "en")
	if err != nil {
		t.Fatalf("ReadDocument() error = %v", err)
	}
	if doc.ID() != 0 || doc.Source() != "cats.conllu" {
		t.Errorf("document = id %d source %q", doc.ID(), doc.Source())
	}
	if len(c.Documents()) != 1 {
		t.Fatalf("corpus has %d documents, want 1", len(c.Documents()))
	}

	sentences := doc.Sentences()
	if len(sentences) != 2 {
		t.Fatalf("got %d sentences, want 2", len(sentences))
	}
	wantText := []string{"I like cats .", "Cats ' me"}
	for i, s := range sentences {
		if s.Text() != wantText[i] {
			t.Errorf("sentence %d = %q, want %q", i, s.Text(), wantText[i])
		}
		if s.Lang() != "en" {
			t.Errorf("sentence %d lang = %q", i, s.Lang())
		}
	}

	cats, _ := sentences[0].Token(2)
	got := []string{cats.Lemma(), cats.Upos(), cats.Xpos(), cats.Feats(), cats.Head(), cats.Deprel(), cats.Deps(), cats.Misc()}
	want := []string{"cat", "NOUN", "NNS", "Number=Plur", "2", "obj", "2:obj", "SpaceAfter=No"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("token attributes = %v, want %v", got, want)
	}

	period, _ := sentences[0].Token(3)
	if period.Feats() != "" || period.Misc() != "" {
		t.Errorf("unspecified columns were kept: feats %q misc %q", period.Feats(), period.Misc())
	}
}

func TestReadDocumentErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, err error)
	}{
		{
			name:  "too few columns",
			input: "1\tI\tI\n",
			check: func(t *testing.T, err error) {
				var pe *apperrors.ParseError
				if !errors.As(err, &pe) || pe.Line != 1 || pe.Kind != apperrors.ParseSyntax {
					t.Errorf("error = %v, want syntax ParseError on line 1", err)
				}
			},
		},
		{
			name:  "empty form",
			input: "# c\n1\t\t_\t_\t_\t_\t_\t_\t_\t_\n",
			check: func(t *testing.T, err error) {
				var pe *apperrors.ParseError
				if !errors.As(err, &pe) || pe.Line != 2 {
					t.Errorf("error = %v, want ParseError on line 2", err)
				}
			},
		},
		{
			name:  "only comments",
			input: "# nothing here\n\n",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, apperrors.ErrEmptyObject) {
					t.Errorf("error = %v, want ErrEmptyObject", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := corpus.New()
			_, err := ReadDocument(c, strings.NewReader(tt.input), "bad.conllu", "en")
			if err == nil {
				t.Fatal("ReadDocument() succeeded")
			}
			tt.check(t, err)
			if len(c.Documents()) != 0 {
				t.Error("failed import attached a document")
			}
		})
	}
}

func TestFilesAndReadFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.conllu", "a.conllu", filepath.Join("nested", "c.CONLLU"), "notes.txt"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := Files(dir)
	if err != nil {
		t.Fatalf("Files() error = %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.conllu"),
		filepath.Join(dir, "b.conllu"),
		filepath.Join(dir, "nested", "c.CONLLU"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("Files() = %v, want %v", files, want)
	}

	single, err := Files(filepath.Join(dir, "notes.txt"))
	if err != nil || len(single) != 1 {
		t.Errorf("Files(file) = %v, %v", single, err)
	}
	if _, err := Files(filepath.Join(dir, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Files(missing) error = %v", err)
	}

	c := corpus.New()
	var seen []string
	if err := ReadFiles(c, files, "en", func(p string) { seen = append(seen, p) }); err != nil {
		t.Fatalf("ReadFiles() error = %v", err)
	}
	if !reflect.DeepEqual(seen, files) {
		t.Errorf("progress callbacks = %v", seen)
	}
	docs := c.Documents()
	if len(docs) != 3 {
		t.Fatalf("got %d documents, want 3", len(docs))
	}
	for i, d := range docs {
		if d.ID() != uint32(i) || d.Source() != filepath.Base(files[i]) {
			t.Errorf("document %d = id %d source %q", i, d.ID(), d.Source())
		}
	}
}

func TestDocumentSourceNames(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"empty", ""},
		{"path separator", "treebanks/en.conllu"},
		{"parent directory", ".."},
		{"leading hyphen", "-rf.conllu"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := corpus.New()
			_, err := ReadDocument(c, strings.NewReader(sample), tt.source, "en")
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Fatalf("ReadDocument(source %q) error = %v, want ErrInvalidInput", tt.source, err)
			}
			if len(c.Documents()) != 0 {
				t.Error("rejected source attached a document")
			}
		})
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "--en\x01.conllu")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}
	doc, err := ReadFile(corpus.New(), path, "en")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := doc.Source(); got != "en.conllu" {
		t.Errorf("Source() = %q, want %q", got, "en.conllu")
	}
}
