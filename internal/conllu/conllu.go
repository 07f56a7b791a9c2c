// Package conllu imports Universal Dependencies treebanks in CoNLL-U
// format (https://universaldependencies.org/format.html).
//
// Each file becomes one document whose source is the file name. Comment
// lines are skipped, a blank line ends a sentence, and "_" marks an
// unspecified column. Multiword token ranges ("1-2") and empty nodes
// ("1.1") are skipped; only syntactic words become tokens.
package conllu

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/FocuswithJustin/corporeum/core/corpus"
	"github.com/FocuswithJustin/corporeum/core/errors"
	"github.com/FocuswithJustin/corporeum/internal/logging"
	"github.com/FocuswithJustin/corporeum/internal/validation"
)

// Extension is the suffix of files picked up by Files.
const Extension = ".conllu"

// Unspecified is the placeholder for an empty column.
const Unspecified = "_"

// Column indexes of a word line.
const (
	colID = iota
	colForm
	colLemma
	colUpos
	colXpos
	colFeats
	colHead
	colDeprel
	colDeps
	colMisc
	columns
)

// maxLineSize bounds a single line; UD lines are rarely over a few KiB.
const maxLineSize = 1 << 20

// ReadDocument parses one CoNLL-U stream into a new document of c and
// attaches it. source names the stream in the document and in errors and
// must be a plain file name; lang is the language tag given to every
// sentence.
func ReadDocument(c *corpus.Corpus, r io.Reader, source, lang string) (*corpus.Document, error) {
	if err := validation.ValidateFilename(source); err != nil {
		return nil, errors.NewValidation("source", err.Error())
	}
	doc := c.CreateDocument()
	doc.SetSource(source)

	sent := doc.CreateSentence(lang)
	flush := func() error {
		if len(sent.Tokens()) == 0 {
			return nil
		}
		if err := doc.AddSentence(sent); err != nil {
			return err
		}
		sent = doc.CreateSentence(lang)
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case strings.HasPrefix(text, "#"):
			continue
		case strings.TrimSpace(text) == "":
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) != columns {
			return nil, lineError(source, line,
				fmt.Sprintf("expected %d tab-separated columns, got %d", columns, len(fields)))
		}
		if strings.ContainsAny(fields[colID], "-.") {
			continue
		}
		if fields[colForm] == "" {
			return nil, lineError(source, line, "empty FORM column")
		}

		tok := sent.CreateToken(fields[colForm])
		set := func(col int, setter func(string)) {
			if v := fields[col]; v != Unspecified && v != "" {
				setter(v)
			}
		}
		set(colLemma, tok.SetLemma)
		set(colUpos, tok.SetUpos)
		set(colXpos, tok.SetXpos)
		set(colFeats, tok.SetFeats)
		set(colHead, tok.SetHead)
		set(colDeprel, tok.SetDeprel)
		set(colDeps, tok.SetDeps)
		set(colMisc, tok.SetMisc)
		if err := sent.AddToken(tok); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &errors.ParseError{
			Format:  "conllu",
			Path:    source,
			Kind:    errors.ParseIO,
			Offset:  -1,
			Line:    line + 1,
			Message: err.Error(),
			Err:     err,
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if err := c.AddDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func lineError(source string, line int, msg string) *errors.ParseError {
	return &errors.ParseError{
		Format:  "conllu",
		Path:    source,
		Kind:    errors.ParseSyntax,
		Offset:  -1,
		Line:    line,
		Message: msg,
	}
}

// ReadFile imports the file at path as one document of c. The document
// source is the file name with control characters and leading hyphens
// removed.
func ReadFile(c *corpus.Corpus, path, lang string) (*corpus.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()
	source, err := validation.SanitizeFilename(filepath.Base(path))
	if err != nil {
		return nil, errors.NewValidation("source", err.Error())
	}
	return ReadDocument(c, f, source, lang)
}

// Files returns the CoNLL-U files under each root, sorted. A root that is
// itself a file is returned as is, whatever its extension.
func Files(roots ...string) ([]string, error) {
	var out []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, errors.NewIO("stat", root, err)
		}
		if !info.IsDir() {
			out = append(out, root)
			continue
		}
		var found []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), Extension) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.NewIO("walk", root, err)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

// ReadFiles imports every path into c in order, calling done after each
// file. It stops at the first failure; documents already attached stay.
func ReadFiles(c *corpus.Corpus, paths []string, lang string, done func(path string)) error {
	for _, path := range paths {
		doc, err := ReadFile(c, path, lang)
		if err != nil {
			return err
		}
		logging.Debug("conllu file imported", "path", path, "document", doc.ID(), "sentences", len(doc.Sentences()))
		if done != nil {
			done(path)
		}
	}
	return nil
}
