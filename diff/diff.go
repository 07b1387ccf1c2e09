// Package diff renders unified line diffs.
package diff

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Context is the number of unchanged lines shown around each change.
const Context = 3

type op struct {
	kind byte // ' ', '-' or '+'
	text string
}

// Unified returns the diff between before and after in unified format, or
// nil when they are equal.
func Unified(oldName, newName, before, after string) []byte {
	if before == after {
		return nil
	}
	ops := lineOps(before, after)

	// oldAt[i] and newAt[i] are the 1-based line numbers at ops[i].
	oldAt := make([]int, len(ops)+1)
	newAt := make([]int, len(ops)+1)
	oldAt[0], newAt[0] = 1, 1
	for i, o := range ops {
		oldAt[i+1], newAt[i+1] = oldAt[i], newAt[i]
		if o.kind != '+' {
			oldAt[i+1]++
		}
		if o.kind != '-' {
			newAt[i+1]++
		}
	}

	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "--- %s\n+++ %s\n", oldName, newName)
	for i := 0; i < len(ops); {
		c := i
		for c < len(ops) && ops[c].kind == ' ' {
			c++
		}
		if c == len(ops) {
			break
		}
		start := max(c-Context, i)
		last := c
		for j := c; j < len(ops); j++ {
			if ops[j].kind != ' ' {
				last = j
			} else if j-last > 2*Context {
				break
			}
		}
		end := min(last+Context+1, len(ops))
		writeHunk(buf, ops[start:end], oldAt[start], newAt[start])
		i = end
	}
	return buf.Bytes()
}

func writeHunk(buf *bytes.Buffer, ops []op, oldStart, newStart int) {
	var oldN, newN int
	for _, o := range ops {
		if o.kind != '+' {
			oldN++
		}
		if o.kind != '-' {
			newN++
		}
	}
	if oldN == 0 {
		oldStart--
	}
	if newN == 0 {
		newStart--
	}
	fmt.Fprintf(buf, "@@ -%s +%s @@\n", span(oldStart, oldN), span(newStart, newN))
	for _, o := range ops {
		buf.WriteByte(o.kind)
		buf.WriteString(o.text)
		if !strings.HasSuffix(o.text, "\n") {
			buf.WriteString("\n\\ No newline at end of file\n")
		}
	}
}

func span(start, n int) string {
	if n == 1 {
		return fmt.Sprint(start)
	}
	return fmt.Sprintf("%d,%d", start, n)
}

func lineOps(before, after string) []op {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var ops []op
	for _, d := range diffs {
		kind := byte(' ')
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			kind = '-'
		case diffmatchpatch.DiffInsert:
			kind = '+'
		}
		for _, l := range splitKeep(d.Text) {
			ops = append(ops, op{kind: kind, text: l})
		}
	}
	return ops
}

func splitKeep(s string) []string {
	var out []string
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return out
}
