// Package editor rewrites files in place.
//
// An [Editor] reads a file whole, hands its text to a rewrite function and
// writes the result back only when it differs. The rewritten text can be
// piped through a formatter and syntax-checked before it is written, or
// shown as a diff instead of being written at all.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goaux/stacktrace/v2"
	"github.com/takumakei/nestfix/diff"
	"github.com/takumakei/nestfix/execpipe"
	"github.com/takumakei/nestfix/tscheck"
	"go.uber.org/zap"
)

// ErrSyntax is returned when a rewrite produced a file that does not parse.
var ErrSyntax = errors.New("rewrite broke syntax")

// Editor edits files. The zero value writes files back without
// formatting or checking.
type Editor struct {
	// DryRun prints a diff to Stdout instead of writing the file.
	DryRun bool

	// Formatter is the argv of a filter command. "{}" in an argument is
	// replaced by the file path. Nil disables formatting.
	Formatter []string

	// Check parses the rewritten text as TypeScript and refuses to write
	// it when the parse reports an error.
	Check bool

	// Root makes the paths shown in diffs relative.
	Root string

	Stdout io.Writer
	Log    *zap.Logger
}

// Edit applies fn to the file at path. It reports whether the text changed.
// A file whose text is unchanged is never written.
func (e *Editor) Edit(ctx context.Context, path string, fn func(string) string) (bool, error) {
	info, err := stacktrace.Trace2(os.Stat(path))
	if err != nil {
		return false, err
	}
	data, err := stacktrace.Trace2(os.ReadFile(path))
	if err != nil {
		return false, err
	}

	old := string(data)
	text := fn(old)
	if text == old {
		return false, nil
	}

	if len(e.Formatter) > 0 {
		if text, err = execpipe.Filter(ctx, e.Formatter, path, text); err != nil {
			return false, err
		}
		if text == old {
			return false, nil
		}
	}

	if e.Check {
		if err := tscheck.Check(ctx, path, []byte(text)); err != nil {
			return false, fmt.Errorf("%w: %w", ErrSyntax, err)
		}
	}

	if e.DryRun {
		name := e.display(path)
		if _, err := e.stdout().Write(diff.Unified("a/"+name, "b/"+name, old, text)); err != nil {
			return false, stacktrace.Trace(err)
		}
		return true, nil
	}

	if err := stacktrace.Trace(os.WriteFile(path, []byte(text), info.Mode().Perm())); err != nil {
		return false, err
	}
	e.log().Debug("wrote", zap.String("path", path), zap.Int("bytes", len(text)))
	return true, nil
}

func (e *Editor) display(path string) string {
	if e.Root != "" {
		if rel, err := filepath.Rel(e.Root, path); err == nil { // if NO error
			path = rel
		}
	}
	return filepath.ToSlash(path)
}

func (e *Editor) stdout() io.Writer {
	if e.Stdout == nil {
		return os.Stdout
	}
	return e.Stdout
}

func (e *Editor) log() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}
