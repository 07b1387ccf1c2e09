// Package rewrite applies ordered textual substitutions to source text.
//
// A [Rule] is a regular expression with a replacement. Rules never fail:
// a pattern that does not match leaves the text byte-identical. Newlines in
// a replacement are written with the line ending of the matched line, so a
// CRLF file stays CRLF.
package rewrite

import (
	"regexp"
	"strings"
)

// Rule is a single substitution.
type Rule struct {
	// Name identifies the rule in [Stats] and in debug logs.
	Name string

	Pattern *regexp.Regexp

	// Replace is a template as accepted by [regexp.Regexp.Expand] unless
	// Verbatim is set, in which case it is inserted as is.
	Replace  string
	Verbatim bool

	// Limit caps the number of matches considered, 0 means all of them.
	// A match skipped by SkipIfFollowedBy still counts against the limit.
	Limit int

	// SkipIfFollowedBy leaves a match alone when the text after it,
	// ignoring leading white space, starts with this string.
	SkipIfFollowedBy string

	// SkipIfContains leaves a match alone when the matched text contains
	// this string.
	SkipIfContains string

	// UnlessPresent disables the rule when the text contains this string.
	UnlessPresent string
}

// Sub returns a rule replacing every match of pattern with the expanded template.
func Sub(name, pattern, template string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(pattern), Replace: template}
}

// SubVerbatim is like [Sub] but inserts repl without expanding it.
func SubVerbatim(name, pattern, repl string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(pattern), Replace: repl, Verbatim: true}
}

// Literal returns a rule replacing every occurrence of from with to.
func Literal(name, from, to string) Rule {
	return SubVerbatim(name, regexp.QuoteMeta(from), to)
}

// First limits r to the first match.
func (r Rule) First() Rule {
	r.Limit = 1
	return r
}

// Unless disables r when the text already contains s.
func (r Rule) Unless(s string) Rule {
	r.UnlessPresent = s
	return r
}

// Once makes r skip matches already followed by s.
func (r Rule) Once(s string) Rule {
	r.SkipIfFollowedBy = s
	return r
}

// Except makes r skip matches that contain s.
func (r Rule) Except(s string) Rule {
	r.SkipIfContains = s
	return r
}

// Apply returns the rewritten text and the number of replacements made.
func (r Rule) Apply(text string) (string, int) {
	if r.UnlessPresent != "" && strings.Contains(text, r.UnlessPresent) {
		return text, 0
	}
	matches := r.Pattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, 0
	}

	var (
		b    strings.Builder
		last int
		seen int
		n    int
	)
	for _, m := range matches {
		if r.Limit > 0 && seen >= r.Limit {
			break
		}
		seen++
		if r.followed(text[m[1]:]) || r.contains(text[m[0]:m[1]]) {
			continue
		}
		b.WriteString(text[last:m[0]])
		repl := r.Replace
		if eol := eolAt(text, m[0]); eol != "\n" {
			repl = strings.ReplaceAll(repl, "\n", eol)
		}
		if r.Verbatim {
			b.WriteString(repl)
		} else {
			b.Write(r.Pattern.ExpandString(nil, repl, text, m))
		}
		last = m[1]
		n++
	}
	if n == 0 {
		return text, 0
	}
	b.WriteString(text[last:])
	return b.String(), n
}

func (r Rule) followed(rest string) bool {
	if r.SkipIfFollowedBy == "" {
		return false
	}
	return strings.HasPrefix(strings.TrimLeft(rest, " \t\r\n"), r.SkipIfFollowedBy)
}

func (r Rule) contains(match string) bool {
	return r.SkipIfContains != "" && strings.Contains(match, r.SkipIfContains)
}

// eolAt returns the terminator of the line holding text[pos].
func eolAt(text string, pos int) string {
	i := strings.IndexByte(text[pos:], '\n')
	if i < 0 {
		return "\n"
	}
	if j := pos + i; j > 0 && text[j-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

// Rules is an ordered rule set. Each rule sees the output of the previous one.
type Rules []Rule

// Stats counts replacements per rule name.
type Stats map[string]int

// Total is the number of replacements over all rules.
func (s Stats) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}

// Apply runs every rule in order.
func (rs Rules) Apply(text string) (string, Stats) {
	stats := make(Stats, len(rs))
	for _, r := range rs {
		var n int
		text, n = r.Apply(text)
		stats[r.Name] += n
	}
	return text, stats
}

// Func adapts rs to the func(string) string shape used by editors.
// Stats of each call are passed to observe if it is not nil.
func (rs Rules) Func(observe func(Stats)) func(string) string {
	return func(text string) string {
		out, stats := rs.Apply(text)
		if observe != nil {
			observe(stats)
		}
		return out
	}
}
