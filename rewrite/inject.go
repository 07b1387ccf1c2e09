package rewrite

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/goaux/iter/bufioscanner"
)

// LineInjector inserts lines after an anchor line inside a block.
//
// A block opens at the first line containing Start and closes when End
// reports true; an empty Start makes the whole text one block. Inside the
// block the first anchor line gets Lines inserted after it, unless one of
// the len(Lines) lines following it contains Guard. With Every set, every
// anchor line of the text is handled that way.
// Line endings of the input are kept; inserted lines reuse the anchor's.
type LineInjector struct {
	Start  string
	Anchor string
	Guard  string
	Lines  []string

	// Match reports whether line is an anchor. When nil, a line is an
	// anchor if it contains Anchor.
	Match func(line string) bool

	Every bool

	// End reports whether line closes the block; prev is the line before it.
	// Both are passed without their line terminator.
	End func(prev, line string) bool
}

// Apply returns the rewritten text and the number of insertions.
func (li LineInjector) Apply(text string) (string, int) {
	lines := splitLines(text)
	in := li.Start == ""
	prev := ""
	done := false
	n := 0
	var b strings.Builder
	for i, raw := range lines {
		if done {
			b.WriteString(raw)
			continue
		}
		line := trimEOL(raw)
		if li.Start != "" && strings.Contains(line, li.Start) {
			in = true
		}
		if in && li.anchor(line) {
			if li.guarded(lines[i+1:]) {
				b.WriteString(raw)
			} else {
				li.writeAfter(&b, raw)
				n++
			}
			done = !li.Every
			prev = line
			continue
		}
		b.WriteString(raw)
		if in && li.End != nil && li.End(prev, line) {
			in = li.Start == ""
		}
		prev = line
	}
	if n == 0 {
		return text, 0
	}
	return b.String(), n
}

func (li LineInjector) anchor(line string) bool {
	if li.Match != nil {
		return li.Match(line)
	}
	return strings.Contains(line, li.Anchor)
}

func (li LineInjector) guarded(next []string) bool {
	if li.Guard == "" {
		return false
	}
	for k := 0; k < len(li.Lines) && k < len(next); k++ {
		if strings.Contains(next[k], li.Guard) {
			return true
		}
	}
	return false
}

// writeAfter writes the anchor line followed by li.Lines.
func (li LineInjector) writeAfter(b *strings.Builder, anchor string) {
	eol := anchor[len(trimEOL(anchor)):]
	sep := eol
	if sep == "" {
		sep = "\n"
	}
	b.WriteString(trimEOL(anchor))
	b.WriteString(sep)
	for k, l := range li.Lines {
		b.WriteString(l)
		if k < len(li.Lines)-1 {
			b.WriteString(sep)
		} else {
			b.WriteString(eol)
		}
	}
}

// Func adapts li to the func(string) string shape used by editors.
func (li LineInjector) Func() func(string) string {
	return func(text string) string {
		out, _ := li.Apply(text)
		return out
	}
}

// splitLines splits text into lines that keep their terminators,
// so that concatenating the result yields text again.
func splitLines(text string) []string {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 4096), len(text)+1)
	sc.Split(scanLinesKeepEOL)
	var lines []string
	for _, line := range bufioscanner.New(sc).Text() {
		lines = append(lines, line)
	}
	return lines
}

func scanLinesKeepEOL(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i+1], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// Chain composes rewrite functions left to right.
func Chain(fns ...func(string) string) func(string) string {
	return func(text string) string {
		for _, fn := range fns {
			text = fn(text)
		}
		return text
	}
}
