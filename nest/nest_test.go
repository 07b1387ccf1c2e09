package nest_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takumakei/nestfix/editor"
	"github.com/takumakei/nestfix/nest"
	"go.uber.org/zap/zaptest"
	"golang.org/x/tools/txtar"
)

// TestGolden runs the operations named on the first comment line of each
// testdata archive. Files under want/ are the expected results; input files
// without a want/ entry must be left untouched. The tally file holds the
// expected summary of the last operation in the first round. Every archive
// is run twice and must reach the same result.
func TestGolden(t *testing.T) {
	files, err := filepath.Glob("testdata/*.txtar")
	require.NoError(t, err)
	require.NotEmpty(t, files, "no test cases")

	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".txtar"), func(t *testing.T) {
			ar, err := txtar.ParseFile(file)
			require.NoError(t, err)
			first, _, _ := strings.Cut(string(ar.Comment), "\n")
			ops := strings.Fields(first)
			require.NotEmpty(t, ops)

			dir := t.TempDir()
			inputs := map[string]string{}
			want := map[string]string{}
			var wantTally string
			tables, err := nest.DefaultTables()
			require.NoError(t, err)
			for _, f := range ar.Files {
				switch {
				case f.Name == "tally":
					wantTally = string(f.Data)
				case strings.HasPrefix(f.Name, "want/"):
					want[strings.TrimPrefix(f.Name, "want/")] = string(f.Data)
				default:
					targ := filepath.Join(dir, filepath.FromSlash(f.Name))
					require.NoError(t, os.MkdirAll(filepath.Dir(targ), 0o777))
					require.NoError(t, os.WriteFile(targ, f.Data, 0o666))
					if f.Name == "tables.yaml" {
						tables, err = nest.LoadTables(targ)
						require.NoError(t, err)
					} else {
						inputs[f.Name] = string(f.Data)
					}
				}
			}
			for name := range want {
				require.Contains(t, inputs, name, "want/%s has no input", name)
			}

			r := &nest.Runner{
				Layout: nest.Layout{Root: dir},
				Tables: tables,
				Editor: &editor.Editor{Check: true},
				Log:    zaptest.NewLogger(t),
			}

			check := func(round int) {
				var tally string
				var changed bool
				for _, op := range ops {
					tally, changed = run(t, r, op)
				}
				if round == 1 {
					assert.Equal(t, wantTally, tally, "tally")
				}
				if round > 1 && len(ops) == 1 {
					assert.False(t, changed, "round %d: %s is not idempotent", round, ops[0])
				}
				for name, in := range inputs {
					data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
					require.NoError(t, err)
					exp, ok := want[name]
					if !ok {
						exp = in
					}
					assert.Equal(t, exp, string(data), "round %d: %s", round, name)
				}
			}
			check(1)
			check(2)
		})
	}
}

func run(t *testing.T, r *nest.Runner, op string) (string, bool) {
	t.Helper()
	ctx := context.Background()
	switch op {
	case "fix-modules":
		tally, err := r.FixModules(ctx)
		require.NoError(t, err)
		return formatTally(tally), changed(tally)
	case "audit":
		tally, err := r.Audit(ctx)
		require.NoError(t, err)
		return formatTally(tally), changed(tally)
	case "audit-typed":
		tally, err := r.AuditTyped(ctx)
		require.NoError(t, err)
		return formatTally(tally), changed(tally)
	case "add-userid":
		tally, err := r.AddUserID(ctx)
		require.NoError(t, err)
		return formatTally(tally), changed(tally)
	case "fix-types":
		sweep, err := r.FixTypes(ctx)
		require.NoError(t, err)
		require.Empty(t, sweep.Failed)
		var b strings.Builder
		fmt.Fprintf(&b, "scanned: %d\n", sweep.Scanned)
		for _, path := range sweep.Changed {
			rel, err := filepath.Rel(r.Layout.Root, path)
			require.NoError(t, err)
			fmt.Fprintf(&b, "changed: %s\n", filepath.ToSlash(rel))
		}
		return b.String(), len(sweep.Changed) > 0
	}
	t.Fatalf("unknown operation %q", op)
	return "", false
}

func formatTally(t *nest.Tally) string {
	return fmt.Sprintf("succeeded: %d\nfailed: %d\n", t.Succeeded, t.Failed)
}

func changed(t *nest.Tally) bool {
	for _, o := range t.Outcomes {
		if o.Changed() {
			return true
		}
	}
	return false
}
