// Package tscheck reports syntax errors in TypeScript sources.
//
// It is a read-only check used after a textual rewrite; it never edits the
// syntax tree.
package tscheck

import (
	"context"
	"fmt"
	"strings"

	"github.com/goaux/stacktrace/v2"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// SyntaxError locates the first error node found in a source.
type SyntaxError struct {
	Path    string
	Line    int // 1-based
	Column  int // 1-based
	Missing string
	Near    string
}

func (e *SyntaxError) Error() string {
	if e.Missing != "" {
		return fmt.Sprintf("%s:%d:%d: missing %s", e.Path, e.Line, e.Column, e.Missing)
	}
	return fmt.Sprintf("%s:%d:%d: syntax error near %q", e.Path, e.Line, e.Column, e.Near)
}

// Check parses src as TypeScript and returns a *SyntaxError when the tree
// contains an error or a missing node. path is only used in the message.
func Check(ctx context.Context, path string, src []byte) error {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(typescript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return stacktrace.Trace(err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}
	n := firstError(root)
	if n == nil {
		n = root
	}
	p := n.StartPoint()
	serr := &SyntaxError{
		Path:   path,
		Line:   int(p.Row) + 1,
		Column: int(p.Column) + 1,
	}
	if n.IsMissing() {
		serr.Missing = n.Type()
	} else {
		serr.Near = near(n.Content(src))
	}
	return serr
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.IsMissing() || n.Type() == "ERROR" {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		if c.IsMissing() || c.HasError() {
			if e := firstError(c); e != nil {
				return e
			}
		}
	}
	return nil
}

// near trims s to its first line, at most 40 bytes.
func near(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 40 {
		s = s[:40]
	}
	return strings.TrimSpace(s)
}
