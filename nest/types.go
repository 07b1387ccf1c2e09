package nest

import (
	"context"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goaux/stacktrace/v2"
	"github.com/takumakei/nestfix/rewrite"
	"go.uber.org/zap"
)

// sourceSuffixes are the files FixTypes looks at.
var sourceSuffixes = []string{".controller.ts", ".service.ts", ".module.ts"}

// Sweep is the result of a directory walk.
type Sweep struct {
	Scanned int
	Changed []string
	Failed  []FileOutcome
}

// FixTypes walks the modules directory and renames singular entity types to
// their plural form wherever they appear in decorator metadata, array
// literals and Promise<X[]> return types. Tables.Fixups is applied last.
//
// Files are visited in lexical order. A file that cannot be rewritten and a
// directory that cannot be read are recorded in Sweep.Failed and the walk
// continues. Only a missing or unreadable modules directory is an error.
func (r *Runner) FixTypes(ctx context.Context) (*Sweep, error) {
	fn := pluralRules(r.Tables).Func(r.debugStats("", "source"))
	sweep := new(Sweep)
	root := r.Layout.ModulesDir()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			r.log().Warn("walk failed", zap.String("path", path), zap.Error(err))
			sweep.Failed = append(sweep.Failed, FileOutcome{Path: path, Err: stacktrace.Trace(err)})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !isSource(d.Name()) {
			return nil
		}
		sweep.Scanned++
		out := r.edit(ctx, filepath.Base(filepath.Dir(path)), path, fn)
		switch {
		case out.Err != nil:
			sweep.Failed = append(sweep.Failed, out)
		case out.Changed:
			sweep.Changed = append(sweep.Changed, path)
		}
		return nil
	})
	if err != nil {
		return sweep, stacktrace.Trace(err)
	}
	r.log().Debug("sweep done", zap.Int("scanned", sweep.Scanned), zap.Int("changed", len(sweep.Changed)))
	return sweep, nil
}

func isSource(name string) bool {
	for _, s := range sourceSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

func pluralRules(t *Tables) rewrite.Rules {
	var rules rewrite.Rules
	for _, p := range t.Plurals {
		s, pl := regexp.QuoteMeta(p.Key), p.Value
		rules = append(rules,
			rewrite.SubVerbatim("type-array:"+p.Key, `type: \[`+s+`\]`, "type: ["+pl+"]"),
			rewrite.SubVerbatim("type-brace:"+p.Key, `type: `+s+`\}`, "type: "+pl+"}"),
			rewrite.SubVerbatim("type-paren:"+p.Key, `type: `+s+`\)`, "type: "+pl+")"),
			rewrite.SubVerbatim("promise-array:"+p.Key, `Promise<`+s+`\[\]>`, "Promise<"+pl+"[]>"),
			rewrite.SubVerbatim("array:"+p.Key, `\[`+s+`\]`, "["+pl+"]"),
		)
	}
	for _, p := range t.Fixups {
		rules = append(rules, rewrite.Literal("fixup:"+p.Key, p.Key, p.Value))
	}
	return rules
}
