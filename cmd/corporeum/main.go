// Command corporeum creates, inspects and converts corpus files.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gosuri/uiprogress"

	"github.com/FocuswithJustin/corporeum/core/codec"
	"github.com/FocuswithJustin/corporeum/core/compression"
	"github.com/FocuswithJustin/corporeum/core/corpus"
	"github.com/FocuswithJustin/corporeum/core/corpusfile"
	"github.com/FocuswithJustin/corporeum/core/sqlite"
	"github.com/FocuswithJustin/corporeum/internal/conllu"
	"github.com/FocuswithJustin/corporeum/internal/logging"
	"github.com/FocuswithJustin/corporeum/internal/sqlstore"
	"github.com/FocuswithJustin/corporeum/internal/validation"
)

const version = "0.1.0"

// Output destinations, replaced in tests.
var (
	stdout      io.Writer = os.Stdout
	progressOut io.Writer = os.Stderr
	now                   = time.Now
)

// CLI defines the command-line interface for corporeum.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" help:"Log level" enum:"debug,info,warn,error" default:"info" env:"CORPOREUM_LOG_LEVEL"`
	LogFormat string `name:"log-format" help:"Log format" enum:"json,text" default:"json" env:"CORPOREUM_LOG_FORMAT"`

	New     NewCmd      `cmd:"" help:"Create an empty corpus file"`
	Convert ConvertCmd  `cmd:"" help:"Convert a corpus file to another codec or compression"`
	Info    InfoCmd     `cmd:"" help:"Show counts, metadata and format of a corpus file"`
	Import  ImportGroup `cmd:"" help:"Build a corpus file from other sources"`
	Export  ExportGroup `cmd:"" help:"Write a corpus file to other stores"`
	Formats FormatsCmd  `cmd:"" help:"List supported codecs and compression algorithms"`
	Version VersionCmd  `cmd:"" help:"Print version information"`
}

// FormatFlags selects the format of a written corpus file. Empty values
// fall back to the output path's extensions.
type FormatFlags struct {
	Codec       string `help:"Codec to write (cbor, msgpack, json, yaml, xml, protobuf)" env:"CORPOREUM_CODEC"`
	Compression string `help:"Compression to write (none, gzip, zlib, xz, lzma, zstd)" env:"CORPOREUM_COMPRESSION"`
	Indent      bool   `help:"Indent JSON output for reading"`
}

func (f FormatFlags) options() corpusfile.Options {
	opts := corpusfile.DefaultOptions()
	opts.Codec = f.Codec
	opts.Compression = f.Compression
	opts.Indent = f.Indent
	return opts
}

// NewCmd creates an empty corpus file.
type NewCmd struct {
	Path         string `arg:"" help:"Corpus file to create" type:"path"`
	Name         string `help:"Corpus name; adds metadata when set"`
	Description  string `help:"Corpus description stored in the metadata"`
	ExistingOnly bool   `name:"existing-only" help:"Only overwrite a file that already exists"`

	FormatFlags `embed:""`
}

func (c *NewCmd) Run() error {
	if err := validation.ValidatePath(c.Path); err != nil {
		return err
	}
	opts := c.options()
	if c.ExistingOnly {
		opts.SaveAs = corpusfile.ExistingOnly
	}
	f, err := corpusfile.NewWithOptions(c.Path, opts)
	if err != nil {
		return err
	}
	if c.Name != "" {
		m := f.Corpus().InitMetadata(c.Name)
		m.SetDescription(c.Description)
		m.SetCreated(now())
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to create corpus: %w", err)
	}
	fmt.Fprintf(stdout, "Created %s (%s, %s)\n", f.Path(), f.Codec(), f.Compression())
	return nil
}

// ConvertCmd rewrites a corpus file in another format.
type ConvertCmd struct {
	Input           string `arg:"" help:"Corpus file to read" type:"existingfile"`
	Output          string `arg:"" help:"Corpus file to write" type:"path"`
	FromCodec       string `name:"from-codec" help:"Codec of the input (default: from extension)"`
	FromCompression string `name:"from-compression" help:"Compression of the input (default: from extension or magic bytes)"`

	FormatFlags `embed:""`
}

func (c *ConvertCmd) Run() error {
	in, err := load(c.Input, c.FromCodec, c.FromCompression)
	if err != nil {
		return err
	}
	if err := validation.ValidatePath(c.Output); err != nil {
		return err
	}
	out, err := corpusfile.FromCorpus(in.Corpus(), c.Output, c.options())
	if err != nil {
		return err
	}
	if err := out.Save(); err != nil {
		return fmt.Errorf("failed to write corpus: %w", err)
	}
	fmt.Fprintf(stdout, "Converted %s (%s, %s) -> %s (%s, %s)\n",
		in.Path(), in.Codec(), in.Compression(), out.Path(), out.Codec(), out.Compression())
	return nil
}

// InfoCmd prints a summary of a corpus file.
type InfoCmd struct {
	Path        string `arg:"" help:"Corpus file to inspect" type:"existingfile"`
	Codec       string `help:"Codec of the file (default: from extension)"`
	Compression string `help:"Compression of the file (default: from extension or magic bytes)"`
}

func (c *InfoCmd) Run() error {
	f, err := load(c.Path, c.Codec, c.Compression)
	if err != nil {
		return err
	}
	digest, err := f.Digest()
	if err != nil {
		return err
	}
	cp := f.Corpus()

	fmt.Fprintf(stdout, "Corpus: %s\n", f.Path())
	fmt.Fprintf(stdout, "  Codec: %s\n", f.Codec())
	fmt.Fprintf(stdout, "  Compression: %s\n", f.Compression())
	fmt.Fprintf(stdout, "  BLAKE3: %s\n", digest)
	fmt.Fprintf(stdout, "  Documents: %d\n", len(cp.Documents()))
	fmt.Fprintf(stdout, "  Sentences: %d\n", cp.SentenceCount())
	fmt.Fprintf(stdout, "  Tokens: %d\n", cp.TokenCount())

	m := cp.Metadata()
	if m == nil {
		fmt.Fprintln(stdout, "  Metadata: none")
		return nil
	}
	fmt.Fprintf(stdout, "  Name: %s\n", m.Name())
	if m.Description() != "" {
		fmt.Fprintf(stdout, "  Description: %s\n", m.Description())
	}
	fmt.Fprintf(stdout, "  Version: %d\n", m.Version())
	if !m.Created().IsZero() {
		fmt.Fprintf(stdout, "  Created: %s\n", m.Created().UTC().Format(time.RFC3339))
	}
	if !m.Modified().IsZero() {
		fmt.Fprintf(stdout, "  Modified: %s\n", m.Modified().UTC().Format(time.RFC3339))
	}
	for _, a := range m.Authors() {
		if a.Mail() != "" {
			fmt.Fprintf(stdout, "  Author: %s <%s>\n", a.FullName(), a.Mail())
		} else {
			fmt.Fprintf(stdout, "  Author: %s\n", a.FullName())
		}
	}
	return nil
}

// ImportGroup contains importers.
type ImportGroup struct {
	Conllu ImportConlluCmd `cmd:"" name:"conllu" help:"Import CoNLL-U files or directories, one document per file"`
	Sqlite ImportSqliteCmd `cmd:"" name:"sqlite" help:"Import a corpus exported to SQLite"`
}

// ImportConlluCmd builds a corpus from Universal Dependencies treebanks.
type ImportConlluCmd struct {
	Paths       []string `arg:"" help:"CoNLL-U files or directories to walk" type:"path"`
	Out         string   `required:"" short:"o" help:"Corpus file to write" type:"path"`
	Lang        string   `default:"en" help:"Language tag of the sentences"`
	Name        string   `help:"Corpus name; adds metadata when set"`
	Description string   `help:"Corpus description stored in the metadata"`
	NoProgress  bool     `name:"no-progress" help:"Do not draw a progress bar"`

	FormatFlags `embed:""`
}

func (c *ImportConlluCmd) Run() error {
	lang, err := validation.CanonicalLanguage(c.Lang)
	if err != nil {
		return err
	}
	if err := validation.ValidatePath(c.Out); err != nil {
		return err
	}
	files, err := conllu.Files(c.Paths...)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no %s files found in %s", conllu.Extension, strings.Join(c.Paths, ", "))
	}
	for _, path := range files {
		if err := validation.ValidateInputFile(path); err != nil {
			return err
		}
		if !strings.EqualFold(filepath.Ext(path), conllu.Extension) {
			logging.Warn("importing a file without the CoNLL-U extension", "path", path)
		}
	}

	cp := corpus.New()
	if c.Name != "" {
		m := cp.InitMetadata(c.Name)
		m.SetDescription(c.Description)
		m.SetCreated(now())
	}

	done := func(string) {}
	if !c.NoProgress {
		progress := uiprogress.New()
		progress.SetOut(progressOut)
		progress.Start()
		bar := progress.AddBar(len(files))
		bar.AppendCompleted()
		bar.PrependElapsed()
		done = func(string) { bar.Incr() }
		defer progress.Stop()
	}
	if err := conllu.ReadFiles(cp, files, lang, done); err != nil {
		return fmt.Errorf("failed to import: %w", err)
	}

	f, err := corpusfile.FromCorpus(cp, c.Out, c.options())
	if err != nil {
		return err
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to write corpus: %w", err)
	}
	fmt.Fprintf(stdout, "Imported %d files (%d sentences, %d tokens) into %s\n",
		len(files), cp.SentenceCount(), cp.TokenCount(), f.Path())
	return nil
}

// ImportSqliteCmd reads a corpus back from a SQLite database.
type ImportSqliteCmd struct {
	Database string `arg:"" help:"SQLite database written by 'export sqlite'" type:"existingfile"`
	Out      string `required:"" short:"o" help:"Corpus file to write" type:"path"`

	FormatFlags `embed:""`
}

func (c *ImportSqliteCmd) Run(ctx context.Context) error {
	if err := validation.ValidateInputFile(c.Database); err != nil {
		return err
	}
	if err := validation.ValidatePath(c.Out); err != nil {
		return err
	}
	cp, err := sqlstore.ImportFile(ctx, c.Database)
	if err != nil {
		return err
	}
	f, err := corpusfile.FromCorpus(cp, c.Out, c.options())
	if err != nil {
		return err
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to write corpus: %w", err)
	}
	fmt.Fprintf(stdout, "Imported %s into %s\n", c.Database, f.Path())
	return nil
}

// ExportGroup contains exporters.
type ExportGroup struct {
	Sqlite ExportSqliteCmd `cmd:"" name:"sqlite" help:"Export a corpus into SQLite tables"`
}

// ExportSqliteCmd writes a corpus into a SQLite database.
type ExportSqliteCmd struct {
	Input       string `arg:"" help:"Corpus file to read" type:"existingfile"`
	Database    string `name:"db" required:"" help:"SQLite database to write; an existing corpus in it is replaced" type:"path"`
	Codec       string `help:"Codec of the input (default: from extension)"`
	Compression string `help:"Compression of the input (default: from extension or magic bytes)"`
}

func (c *ExportSqliteCmd) Run(ctx context.Context) error {
	f, err := load(c.Input, c.Codec, c.Compression)
	if err != nil {
		return err
	}
	if err := validation.ValidatePath(c.Database); err != nil {
		return err
	}
	if err := sqlstore.ExportFile(ctx, c.Database, f.Corpus()); err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	fmt.Fprintf(stdout, "Exported %s to %s (driver %s)\n", f.Path(), c.Database, sqlite.DriverName())
	return nil
}

// FormatsCmd lists the registered codecs and algorithms.
type FormatsCmd struct{}

func (c *FormatsCmd) Run() error {
	fmt.Fprintln(stdout, "Codecs:")
	for _, cd := range codec.List() {
		def := ""
		if cd.Name() == codec.Default().Name() {
			def = " (default)"
		}
		fmt.Fprintf(stdout, "  %-10s %s%s\n", cd.Name(), strings.Join(cd.Extensions(), " "), def)
	}
	fmt.Fprintln(stdout, "Compression:")
	for _, a := range compression.List() {
		ext := a.Extension()
		if ext == "" {
			ext = "-"
		}
		fmt.Fprintf(stdout, "  %-10s %s\n", a.Name(), ext)
	}
	return nil
}

// VersionCmd prints the version and the SQLite build in use.
type VersionCmd struct {
	JSON bool `help:"Print as JSON"`
}

func (c *VersionCmd) Run() error {
	info := sqlite.GetInfo()
	if c.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Version string      `json:"version"`
			SQLite  sqlite.Info `json:"sqlite"`
		}{version, info})
	}
	fmt.Fprintf(stdout, "corporeum version %s (sqlite driver %s, %s build of %s)\n",
		version, info.DriverName, info.DriverType, info.Package)
	return nil
}

// Helper functions

func load(path, codecName, compressionName string) (*corpusfile.File, error) {
	if err := validation.ValidateInputFile(path); err != nil {
		return nil, err
	}
	opts := corpusfile.DefaultOptions()
	opts.Codec = codecName
	opts.Compression = compressionName
	f, err := corpusfile.LoadWithOptions(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	return f, nil
}

func initLogging(levelName, formatName string) error {
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(formatName)
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}

func main() {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opCtx := logging.StartOperation(sigCtx)
	ctx := kong.Parse(&CLI,
		kong.Name("corporeum"),
		kong.Description("Corporeum - linguistic corpus files"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.BindTo(opCtx, (*context.Context)(nil)),
	)
	ctx.FatalIfErrorf(initLogging(CLI.LogLevel, CLI.LogFormat))
	if err := ctx.Run(ctx); err != nil {
		logging.ErrorContext(opCtx, "command failed", "command", ctx.Command(), "error", err.Error())
		ctx.FatalIfErrorf(err)
	}
	logging.InfoContext(opCtx, "command finished", "command", ctx.Command())
}
