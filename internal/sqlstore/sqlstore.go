// Package sqlstore exports a corpus into SQLite tables and reads it back.
//
// The tables mirror the wire schema one row per entity, so the data can be
// queried with plain SQL. Export replaces whatever corpus the database
// already holds.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FocuswithJustin/corporeum/core/corpus"
	"github.com/FocuswithJustin/corporeum/core/schema"
	"github.com/FocuswithJustin/corporeum/core/sqlite"
	"github.com/FocuswithJustin/corporeum/internal/logging"
)

const ddl = `
	CREATE TABLE IF NOT EXISTS metadata (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 0,
		created INTEGER,
		modified INTEGER
	);
	CREATE TABLE IF NOT EXISTS authors (
		position INTEGER PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		mail TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY,
		position INTEGER NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS sentences (
		pk INTEGER PRIMARY KEY,
		document_id INTEGER NOT NULL REFERENCES documents(id),
		parent INTEGER REFERENCES sentences(pk),
		id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		lang TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tokens (
		sentence INTEGER NOT NULL REFERENCES sentences(pk),
		id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		form TEXT NOT NULL,
		lemma TEXT NOT NULL DEFAULT '',
		upos TEXT NOT NULL DEFAULT '',
		xpos TEXT NOT NULL DEFAULT '',
		feats TEXT NOT NULL DEFAULT '',
		head TEXT NOT NULL DEFAULT '',
		deprel TEXT NOT NULL DEFAULT '',
		deps TEXT NOT NULL DEFAULT '',
		misc TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (sentence, id)
	);
	CREATE INDEX IF NOT EXISTS idx_sentences_document ON sentences(document_id, parent, position);
`

// tables in the order rows must be deleted.
var tables = []string{"tokens", "sentences", "documents", "authors", "metadata"}

// ExportFile writes c into the SQLite database at path, creating it if
// needed. Records are logged under the operation ID on ctx, or a new one.
func ExportFile(ctx context.Context, path string, c *corpus.Corpus) error {
	ctx = logging.StartOperation(ctx)
	logging.DebugContext(ctx, "opening sqlite database", "path", path, "driver", sqlite.DriverName())
	db, err := sqlite.Open(path)
	if err != nil {
		logging.ErrorContext(ctx, "sqlite export failed", "path", path, "error", err.Error())
		return err
	}
	defer db.Close()
	if err := Export(ctx, db, c); err != nil {
		logging.ErrorContext(ctx, "sqlite export failed", "path", path, "error", err.Error())
		return err
	}
	logging.InfoContext(ctx, "corpus exported to sqlite", "path", path,
		"documents", len(c.Documents()), "tokens", c.TokenCount())
	return nil
}

// ImportFile reads the corpus stored in the SQLite database at path.
func ImportFile(ctx context.Context, path string) (*corpus.Corpus, error) {
	ctx = logging.StartOperation(ctx)
	logging.DebugContext(ctx, "opening sqlite database", "path", path, "driver", sqlite.DriverName())
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		logging.ErrorContext(ctx, "sqlite import failed", "path", path, "error", err.Error())
		return nil, err
	}
	defer db.Close()
	c, err := Import(ctx, db)
	if err != nil {
		logging.ErrorContext(ctx, "sqlite import failed", "path", path, "error", err.Error())
		return nil, err
	}
	if len(c.Documents()) == 0 {
		logging.WarnContext(ctx, "sqlite database holds no documents", "path", path)
	}
	logging.InfoContext(ctx, "corpus imported from sqlite", "path", path,
		"documents", len(c.Documents()), "tokens", c.TokenCount())
	return c, nil
}

// Export replaces the corpus stored in db with c in one transaction.
func Export(ctx context.Context, db *sql.DB, c *corpus.Corpus) error {
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	w := &writer{tx: tx}
	if err := w.prepare(ctx); err != nil {
		return err
	}
	defer w.close()

	sc := c.Schema()
	if m := sc.Metadata; m != nil {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO metadata (id, name, description, version, created, modified) VALUES (1, ?, ?, ?, ?, ?)",
			m.Name, m.Description, int64(m.Version), nullable(m.Created), nullable(m.Modified)); err != nil {
			return fmt.Errorf("failed to insert metadata: %w", err)
		}
		for i, a := range m.Authors {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO authors (position, first_name, last_name, mail) VALUES (?, ?, ?, ?)",
				i, a.FirstName, a.LastName, a.Mail); err != nil {
				return fmt.Errorf("failed to insert author %s %s: %w", a.FirstName, a.LastName, err)
			}
		}
	}

	for i := range sc.Documents {
		if err := w.document(ctx, i, &sc.Documents[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// writer holds the prepared inserts for the repeated rows.
type writer struct {
	tx        *sql.Tx
	documents *sql.Stmt
	sentences *sql.Stmt
	tokens    *sql.Stmt
}

func (w *writer) prepare(ctx context.Context) error {
	var err error
	if w.documents, err = w.tx.PrepareContext(ctx,
		"INSERT INTO documents (id, position, source, description) VALUES (?, ?, ?, ?)"); err != nil {
		return fmt.Errorf("failed to prepare document insert: %w", err)
	}
	if w.sentences, err = w.tx.PrepareContext(ctx,
		"INSERT INTO sentences (document_id, parent, id, position, lang) VALUES (?, ?, ?, ?, ?)"); err != nil {
		return fmt.Errorf("failed to prepare sentence insert: %w", err)
	}
	if w.tokens, err = w.tx.PrepareContext(ctx,
		`INSERT INTO tokens (sentence, id, position, form, lemma, upos, xpos, feats, head, deprel, deps, misc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`); err != nil {
		return fmt.Errorf("failed to prepare token insert: %w", err)
	}
	return nil
}

func (w *writer) close() {
	for _, stmt := range []*sql.Stmt{w.documents, w.sentences, w.tokens} {
		if stmt != nil {
			stmt.Close()
		}
	}
}

func (w *writer) document(ctx context.Context, pos int, d *schema.Document) error {
	if _, err := w.documents.ExecContext(ctx, int64(d.ID), pos, d.Source, d.Description); err != nil {
		return fmt.Errorf("failed to insert document %d: %w", d.ID, err)
	}
	for i := range d.Sentences {
		if err := w.sentence(ctx, d.ID, sql.NullInt64{}, i, &d.Sentences[i]); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) sentence(ctx context.Context, docID uint32, parent sql.NullInt64, pos int, s *schema.Sentence) error {
	res, err := w.sentences.ExecContext(ctx, int64(docID), parent, int64(s.ID), pos, s.Lang)
	if err != nil {
		return fmt.Errorf("failed to insert sentence %d of document %d: %w", s.ID, docID, err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read sentence row id: %w", err)
	}

	for i, t := range s.Tokens {
		if _, err := w.tokens.ExecContext(ctx, rowID, int64(t.ID), i, t.Form,
			t.Lemma, t.Upos, t.Xpos, t.Feats, t.Head, t.Deprel, t.Deps, t.Misc); err != nil {
			return fmt.Errorf("failed to insert token %d of sentence %d: %w", t.ID, s.ID, err)
		}
	}
	for i := range s.Translations {
		if err := w.sentence(ctx, docID, sql.NullInt64{Int64: rowID, Valid: true}, i, &s.Translations[i]); err != nil {
			return err
		}
	}
	return nil
}

func nullable(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// Import reads the corpus stored in db. The result goes through the same
// validation as a decoded file.
func Import(ctx context.Context, db *sql.DB) (*corpus.Corpus, error) {
	sc := &schema.Corpus{}

	m, err := readMetadata(ctx, db)
	if err != nil {
		return nil, err
	}
	sc.Metadata = m

	docs, err := readDocuments(ctx, db)
	if err != nil {
		return nil, err
	}
	sc.Documents = docs

	c, err := corpus.FromSchema(sc)
	if err != nil {
		return nil, fmt.Errorf("invalid corpus in database: %w", err)
	}
	return c, nil
}

func readMetadata(ctx context.Context, db *sql.DB) (*schema.Metadata, error) {
	var (
		m                 schema.Metadata
		created, modified sql.NullInt64
	)
	err := db.QueryRowContext(ctx,
		"SELECT name, description, version, created, modified FROM metadata WHERE id = 1").
		Scan(&m.Name, &m.Description, &m.Version, &created, &modified)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	if created.Valid {
		m.Created = &created.Int64
	}
	if modified.Valid {
		m.Modified = &modified.Int64
	}

	rows, err := db.QueryContext(ctx, "SELECT first_name, last_name, mail FROM authors ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to read authors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a schema.Author
		if err := rows.Scan(&a.FirstName, &a.LastName, &a.Mail); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		m.Authors = append(m.Authors, a)
	}
	return &m, rows.Err()
}

// sentenceRow is a sentence plus the keys that place it in the tree.
type sentenceRow struct {
	rowID  int64
	docID  uint32
	parent sql.NullInt64
	s      schema.Sentence
}

func readDocuments(ctx context.Context, db *sql.DB) ([]schema.Document, error) {
	tokens, err := readTokens(ctx, db)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		"SELECT pk, document_id, parent, id, lang FROM sentences ORDER BY document_id, parent, position")
	if err != nil {
		return nil, fmt.Errorf("failed to read sentences: %w", err)
	}
	var sentences []sentenceRow
	for rows.Next() {
		var r sentenceRow
		if err := rows.Scan(&r.rowID, &r.docID, &r.parent, &r.s.ID, &r.s.Lang); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan sentence: %w", err)
		}
		r.s.Tokens = tokens[r.rowID]
		sentences = append(sentences, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Translations first, so each source sentence is complete when it is
	// attached to its document.
	translations := make(map[int64][]schema.Sentence)
	for _, r := range sentences {
		if r.parent.Valid {
			translations[r.parent.Int64] = append(translations[r.parent.Int64], r.s)
		}
	}
	bodies := make(map[uint32][]schema.Sentence)
	for _, r := range sentences {
		if !r.parent.Valid {
			r.s.Translations = translations[r.rowID]
			bodies[r.docID] = append(bodies[r.docID], r.s)
		}
	}

	docRows, err := db.QueryContext(ctx, "SELECT id, source, description FROM documents ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	defer docRows.Close()
	var docs []schema.Document
	for docRows.Next() {
		var d schema.Document
		if err := docRows.Scan(&d.ID, &d.Source, &d.Description); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.Sentences = bodies[d.ID]
		docs = append(docs, d)
	}
	return docs, docRows.Err()
}

func readTokens(ctx context.Context, db *sql.DB) (map[int64][]schema.Token, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT sentence, id, form, lemma, upos, xpos, feats, head, deprel, deps, misc
		FROM tokens ORDER BY sentence, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokens: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]schema.Token)
	for rows.Next() {
		var (
			sentence int64
			t        schema.Token
		)
		if err := rows.Scan(&sentence, &t.ID, &t.Form, &t.Lemma, &t.Upos, &t.Xpos,
			&t.Feats, &t.Head, &t.Deprel, &t.Deps, &t.Misc); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		out[sentence] = append(out[sentence], t)
	}
	return out, rows.Err()
}
