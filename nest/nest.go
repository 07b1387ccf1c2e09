// Package nest rewrites the module sources of a NestJS backend.
//
// Each operation reads its names from [Tables], opens the matching
// controller, service or module files below [Layout.Root] and applies a
// fixed list of textual substitutions through an [Editor]. The rewrites are
// regular expressions, not a parser: a pattern that does not match is a
// silent no-op and the file stays byte-identical.
package nest

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/takumakei/nestfix/rewrite"
	"go.uber.org/zap"
)

// Layout locates module files below a backend root.
type Layout struct {
	Root string
}

// ModulesDir is the directory holding one directory per module.
func (l Layout) ModulesDir() string {
	return filepath.Join(l.Root, "src", "modules")
}

// Service is the path of the module's service file.
func (l Layout) Service(module string) string {
	return l.file(module, "service")
}

// Controller is the path of the module's controller file.
func (l Layout) Controller(module string) string {
	return l.file(module, "controller")
}

func (l Layout) file(module, kind string) string {
	return filepath.Join(l.ModulesDir(), module, module+"."+kind+".ts")
}

// Editor applies fn to the file at path and reports whether the file changed.
// A missing file yields an error wrapping [fs.ErrNotExist].
type Editor interface {
	Edit(ctx context.Context, path string, fn func(string) string) (bool, error)
}

// FileOutcome is the result of editing one file.
type FileOutcome struct {
	Path    string
	Changed bool
	Err     error
}

// Missing reports whether the file did not exist.
func (f FileOutcome) Missing() bool {
	return errors.Is(f.Err, fs.ErrNotExist)
}

// Outcome is the result of processing one module.
type Outcome struct {
	Module string
	Files  []FileOutcome
}

// OK reports whether every file of the module was edited without error.
func (o Outcome) OK() bool {
	for _, f := range o.Files {
		if f.Err != nil {
			return false
		}
	}
	return true
}

// Changed reports whether any file of the module changed.
func (o Outcome) Changed() bool {
	for _, f := range o.Files {
		if f.Changed {
			return true
		}
	}
	return false
}

// Tally counts modules by outcome.
type Tally struct {
	Succeeded int
	Failed    int
	Outcomes  []Outcome
}

func (t *Tally) add(o Outcome) {
	if o.OK() {
		t.Succeeded++
	} else {
		t.Failed++
	}
	t.Outcomes = append(t.Outcomes, o)
}

// Runner runs the rewrites.
type Runner struct {
	Layout Layout
	Tables *Tables
	Editor Editor
	Log    *zap.Logger
}

func (r *Runner) log() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

// edit runs one file edit and logs the outcome.
func (r *Runner) edit(ctx context.Context, module, path string, fn func(string) string) FileOutcome {
	log := r.log().With(zap.String("module", module), zap.String("path", path))
	changed, err := r.Editor.Edit(ctx, path, fn)
	out := FileOutcome{Path: path, Changed: changed, Err: err}
	switch {
	case out.Missing():
		log.Warn("file not found")
	case err != nil:
		log.Error("edit failed", zap.Error(err))
	case changed:
		log.Info("updated")
	default:
		log.Debug("no changes needed")
	}
	return out
}

// eachModule calls fn for every row of t in order and tallies the outcomes.
// It stops early only when ctx is done.
func (r *Runner) eachModule(ctx context.Context, t Table, fn func(Pair) Outcome) (*Tally, error) {
	tally := new(Tally)
	for _, p := range t {
		if err := ctx.Err(); err != nil {
			return tally, err
		}
		tally.add(fn(p))
	}
	return tally, nil
}

// debugStats returns an observer logging per-rule hit counts.
func (r *Runner) debugStats(module, kind string) func(rewrite.Stats) {
	log := r.log()
	return func(stats rewrite.Stats) {
		if !log.Core().Enabled(zap.DebugLevel) {
			return
		}
		log.Debug("rules applied",
			zap.String("module", module),
			zap.String("file", kind),
			zap.Any("hits", stats),
		)
	}
}
