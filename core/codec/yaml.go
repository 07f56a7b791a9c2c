package codec

import (
	"bytes"
	stderrors "errors"
	"regexp"
	"strconv"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/corporeum/core/corpus"
	"github.com/FocuswithJustin/corporeum/core/errors"
	"github.com/FocuswithJustin/corporeum/core/schema"
)

// YAML is the human-editable textual codec.
type YAML struct{}

func (y *YAML) Name() string         { return "yaml" }
func (y *YAML) Extensions() []string { return []string{".yaml", ".yml"} }

func (y *YAML) Encode(c *corpus.Corpus) ([]byte, error) {
	sc, err := encodable(y.Name(), c, utf8.ValidString)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(sc); err != nil {
		return nil, errors.NewSerialize(y.Name(), err)
	}
	if err := enc.Close(); err != nil {
		return nil, errors.NewSerialize(y.Name(), err)
	}
	return buf.Bytes(), nil
}

// Decode parses into a node tree first so the depth limit is checked
// before values are bound.
func (y *YAML) Decode(data []byte) (*corpus.Corpus, error) {
	if err := checkInput(y.Name(), data); err != nil {
		return nil, err
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, yamlParseError(err)
	}
	if line, depth := yamlDepth(&root, 0); depth > MaxDepth {
		return nil, &errors.ParseError{
			Format:  y.Name(),
			Kind:    errors.ParseRecursion,
			Offset:  -1,
			Line:    line,
			Message: "nesting exceeds the maximum depth",
		}
	}
	var sc schema.Corpus
	if err := root.Decode(&sc); err != nil {
		return nil, yamlParseError(err)
	}
	return build(y.Name(), &sc)
}

// yamlDepth returns the depth of the deepest collection and the line on
// which the limit was first crossed.
func yamlDepth(n *yaml.Node, depth int) (int, int) {
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		depth++
		if depth > MaxDepth {
			return n.Line, depth
		}
	}
	line, deepest := 0, depth
	for _, child := range n.Content {
		l, d := yamlDepth(child, depth)
		if d > deepest {
			line, deepest = l, d
		}
		if deepest > MaxDepth {
			break
		}
	}
	return line, deepest
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

func yamlParseError(err error) *errors.ParseError {
	pe := errors.NewParse("yaml", errors.ParseSyntax, err.Error(), err)
	var typeErr *yaml.TypeError
	if stderrors.As(err, &typeErr) {
		pe.Kind = errors.ParseSemantic
	}
	if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
		pe.Line, _ = strconv.Atoi(m[1])
	}
	return pe
}
