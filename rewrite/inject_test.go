package rewrite_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/takumakei/nestfix/rewrite"
)

var stamp = rewrite.LineInjector{
	Start:  "async create(",
	Anchor: ".create(",
	Guard:  "_userId",
	Lines:  []string{"    if (userId) {", "      (entity as any)._userId = userId;", "    }"},
	End:    func(_, line string) bool { return strings.TrimSpace(line) == "}" },
}

const service = `class S {
  async create(dto) {
    const entity = this.repository.create(dto);
    return await this.repository.save(entity);
  }
}
`

const stamped = `class S {
  async create(dto) {
    const entity = this.repository.create(dto);
    if (userId) {
      (entity as any)._userId = userId;
    }
    return await this.repository.save(entity);
  }
}
`

func TestLineInjector(t *testing.T) {
	out, n := stamp.Apply(service)
	assert.Equal(t, 1, n)
	assert.Equal(t, stamped, out)

	again, n := stamp.Apply(out)
	assert.Equal(t, 0, n)
	assert.Equal(t, out, again)
}

func TestLineInjectorKeepsCRLF(t *testing.T) {
	src := strings.ReplaceAll(service, "\n", "\r\n")
	out, n := stamp.Apply(src)
	assert.Equal(t, 1, n)
	assert.Equal(t, strings.ReplaceAll(stamped, "\n", "\r\n"), out)
}

func TestLineInjectorOutsideBlock(t *testing.T) {
	src := "const entity = this.repository.create(dto);\n"
	out, n := stamp.Apply(src)
	assert.Equal(t, 0, n)
	assert.Equal(t, src, out)
}

func TestLineInjectorBlockClosed(t *testing.T) {
	src := "async create(dto) {\n}\nconst x = this.repository.create(dto);\n"
	out, n := stamp.Apply(src)
	assert.Equal(t, 0, n)
	assert.Equal(t, src, out)
}

func TestLineInjectorLastLine(t *testing.T) {
	src := "async create(dto) { const e = r.create(dto);"
	out, n := stamp.Apply(src)
	assert.Equal(t, 1, n)
	assert.Equal(t, src+"\n    if (userId) {\n      (entity as any)._userId = userId;\n    }", out)
}

func TestChain(t *testing.T) {
	fn := rewrite.Chain(strings.ToUpper, func(s string) string { return s + "!" })
	assert.Equal(t, "AB!", fn("ab"))
}

func TestLineInjectorEvery(t *testing.T) {
	li := rewrite.LineInjector{
		Guard: "_userId",
		Lines: []string{"    stamp(e); // _userId"},
		Match: func(line string) bool {
			return strings.Contains(line, ".create(create") && strings.Contains(line, "Dto)")
		},
		Every: true,
	}
	src := "    const e = r.create(createDto);\n    x();\n    const e = r.create(createOtherDto);\n    const f = r.create(other);\n"
	want := "    const e = r.create(createDto);\n    stamp(e); // _userId\n    x();\n" +
		"    const e = r.create(createOtherDto);\n    stamp(e); // _userId\n    const f = r.create(other);\n"

	out, n := li.Apply(src)
	assert.Equal(t, 2, n)
	assert.Equal(t, want, out)

	again, n := li.Apply(out)
	assert.Equal(t, 0, n)
	assert.Equal(t, out, again)
}
