package nest

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/goaux/stacktrace/v2"
	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTables []byte

// Pair is one table row.
type Pair struct {
	Key   string
	Value string
}

// Table is an ordered string mapping. It decodes from a YAML mapping and
// keeps the document order, which is the order modules are processed in.
type Table []Pair

// Get returns the value for key.
func (t Table) Get(key string) (string, bool) {
	for _, p := range t {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

func (t *Table) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", value.Line)
	}
	out := make(Table, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: expected scalar key and value", k.Line)
		}
		if _, dup := out.Get(k.Value); dup {
			return fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
		}
		out = append(out, Pair{Key: k.Value, Value: v.Value})
	}
	*t = out
	return nil
}

func (t Table) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range t {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.Value},
		)
	}
	return n, nil
}

// Tables holds the name tables driving every rewrite.
type Tables struct {
	DTOs     Table `yaml:"dtos"`
	Plurals  Table `yaml:"plurals"`
	Entities Table `yaml:"entities"`
	Fixups   Table `yaml:"fixups"`
}

// DefaultTables returns the built-in tables.
func DefaultTables() (*Tables, error) {
	t := new(Tables)
	if err := decodeTables(bytes.NewReader(defaultTables), t); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTables reads a YAML file over the built-in tables. Tables present in
// the file replace the built-in ones as a whole.
func LoadTables(path string) (*Tables, error) {
	t, err := DefaultTables()
	if err != nil {
		return nil, err
	}
	f, err := stacktrace.Trace2(os.Open(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := decodeTables(f, t); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func decodeTables(r io.Reader, t *Tables) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(t); err != nil && err != io.EOF {
		return stacktrace.Trace(err)
	}
	return t.Validate()
}

// Encode writes t as YAML.
func (t *Tables) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return stacktrace.Trace(err)
	}
	return stacktrace.Trace(enc.Close())
}

var (
	reModule = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	reIdent  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Validate checks that every name is safe to splice into a path or a pattern.
func (t *Tables) Validate() error {
	for _, p := range t.DTOs {
		if !reModule.MatchString(p.Key) {
			return fmt.Errorf("dtos: bad module name %q", p.Key)
		}
		if !reIdent.MatchString(p.Value) || !strings.HasPrefix(p.Value, "Create") {
			return fmt.Errorf("dtos: %s: bad DTO name %q", p.Key, p.Value)
		}
	}
	for _, p := range t.Entities {
		if !reModule.MatchString(p.Key) {
			return fmt.Errorf("entities: bad module name %q", p.Key)
		}
		if !reIdent.MatchString(p.Value) {
			return fmt.Errorf("entities: %s: bad variable name %q", p.Key, p.Value)
		}
	}
	for _, p := range t.Plurals {
		if !reIdent.MatchString(p.Key) || !reIdent.MatchString(p.Value) {
			return fmt.Errorf("plurals: bad type name in %q: %q", p.Key, p.Value)
		}
		if p.Key == p.Value {
			return fmt.Errorf("plurals: %s maps to itself", p.Key)
		}
		// A plural that is also a singular would be rewritten again on the next run.
		if _, ok := t.Plurals.Get(p.Value); ok {
			return fmt.Errorf("plurals: %s is both a plural and a singular", p.Value)
		}
	}
	for _, p := range t.Fixups {
		if p.Key == "" || strings.Contains(p.Value, p.Key) {
			return fmt.Errorf("fixups: %q -> %q does not converge", p.Key, p.Value)
		}
	}
	return nil
}

// UpdateDTO derives the update DTO name from a create DTO name.
func UpdateDTO(create string) string {
	return strings.ReplaceAll(create, "Create", "Update")
}
