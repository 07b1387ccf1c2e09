package nest

import (
	"context"
	"regexp"
	"strings"

	"github.com/takumakei/nestfix/rewrite"
)

// Audit prepares every module listed in Tables.Entities for created-by and
// modified-by tracking. The service create/update methods gain an optional
// userId that is stamped on the entity as _userId, and the controller passes
// @CurrentUserId() through to them.
//
// The service signatures lose their DTO types; run FixModules afterwards to
// restore them.
func (r *Runner) Audit(ctx context.Context) (*Tally, error) {
	return r.eachModule(ctx, r.Tables.Entities, func(p Pair) Outcome {
		return Outcome{
			Module: p.Key,
			Files: []FileOutcome{
				r.edit(ctx, p.Key, r.Layout.Service(p.Key),
					auditServiceRules(p.Value).Func(r.debugStats(p.Key, "service"))),
				r.edit(ctx, p.Key, r.Layout.Controller(p.Key),
					auditControllerRules().Func(r.debugStats(p.Key, "controller"))),
			},
		}
	})
}

// stampLines sets the audit user on the entity held in v.
func stampLines(v string) []string {
	return []string{
		"    if (userId) {",
		"      (" + v + " as any)._userId = userId;",
		"    }",
	}
}

func auditServiceRules(v string) rewrite.Rules {
	q := regexp.QuoteMeta(v)
	stamp := "\n" + strings.Join(stampLines(v), "\n")
	return rewrite.Rules{
		rewrite.SubVerbatim("service-create-signature",
			`async create\([^)]+\):`,
			"async create(createDto, userId?: number):").First(),
		rewrite.Sub("service-create-stamp",
			`(const `+q+` = this\.\w+\.create\([^)]+\);)`,
			"${1}"+stamp).First().Once("if (userId)"),
		rewrite.SubVerbatim("service-update-signature",
			`async update\(id: number, [^,]+,?\):`,
			"async update(id: number, updateDto, userId?: number):").First(),
		rewrite.Sub("service-update-stamp",
			`(Object\.assign\(`+q+`, [^)]+\);)`,
			"${1}"+stamp).First().Once("if (userId)"),
	}
}

func auditControllerRules() rewrite.Rules {
	return rewrite.Rules{
		rewrite.Sub("controller-import",
			`(import.*from '@nestjs/common';)`,
			"${1}\n"+currentUserImport).First().Unless("CurrentUserId"),
		rewrite.Sub("controller-create",
			`(@Post\(\)[^@]*)(create\([^@]*@Body\(\) \w+: \w+,?\))`,
			"${1}create(@Body() createDto, @CurrentUserId() userId: number)").First(),
		rewrite.Sub("controller-create-call",
			`(return this\.\w+Service\.create\()(\w+)\)`,
			"${1}${2}, userId)").First(),
		rewrite.Sub("controller-update",
			`(@Patch\(['"]:id['"]\)[^@]*)(update\([^@]*@Param\(['"]\w+['"]\)[^,]+,[^@]*@Body\(\) \w+: \w+,?\))`,
			"${1}update(@Param('id') id: string, @Body() updateDto, @CurrentUserId() userId: number)").First(),
		rewrite.Sub("controller-update-call",
			`(return this\.\w+Service\.update\([^,]+, )(\w+)\)`,
			"${1}${2}, userId)").First(),
	}
}

// AddUserID is the line-oriented variant of the service half of Audit: it
// only inserts the _userId stamp after the first repository create() line of
// async create( and the first Object.assign( line of async update(. It
// neither touches signatures nor controllers.
func (r *Runner) AddUserID(ctx context.Context) (*Tally, error) {
	return r.eachModule(ctx, r.Tables.Entities, func(p Pair) Outcome {
		return Outcome{
			Module: p.Key,
			Files: []FileOutcome{
				r.edit(ctx, p.Key, r.Layout.Service(p.Key), userIDInjectors(p.Value)),
			},
		}
	})
}

func userIDInjectors(v string) func(string) string {
	create := rewrite.LineInjector{
		Start:  "async create(",
		Anchor: ".create(",
		Guard:  "_userId",
		Lines:  stampLines(v),
		End: func(_, line string) bool {
			return strings.TrimSpace(line) == "}"
		},
	}
	update := rewrite.LineInjector{
		Start:  "async update(",
		Anchor: "Object.assign(",
		Guard:  "_userId",
		Lines:  stampLines(v),
		End: func(prev, line string) bool {
			return strings.HasPrefix(strings.TrimSpace(line), "}") &&
				strings.HasPrefix(strings.TrimSpace(prev), "}")
		},
	}
	return rewrite.Chain(create.Func(), update.Func())
}

// AuditTyped is the variant of Audit that keeps the DTO types. Service
// signatures of the form create(createXDto: CreateXDto) and
// update(id: number, updateXDto: UpdateXDto) gain userId?: number, every
// repository create(create...Dto) and Object.assign(..., ...Dto) line is
// followed by the _userId stamp, and the controller handlers get a trailing
// @CurrentUserId() userId: number parameter that is passed to the service.
// No FixModules run is needed afterwards.
func (r *Runner) AuditTyped(ctx context.Context) (*Tally, error) {
	return r.eachModule(ctx, r.Tables.Entities, func(p Pair) Outcome {
		return Outcome{
			Module: p.Key,
			Files: []FileOutcome{
				r.edit(ctx, p.Key, r.Layout.Service(p.Key), rewrite.Chain(
					typedAuditServiceRules().Func(r.debugStats(p.Key, "service")),
					typedStampInjectors(p.Value),
				)),
				r.edit(ctx, p.Key, r.Layout.Controller(p.Key),
					typedAuditControllerRules().Func(r.debugStats(p.Key, "controller"))),
			},
		}
	})
}

func typedAuditServiceRules() rewrite.Rules {
	return rewrite.Rules{
		rewrite.Sub("service-create-signature",
			`async create\((create\w*Dto: Create\w+Dto)\): Promise`,
			"async create(${1}, userId?: number): Promise"),
		rewrite.Sub("service-update-signature",
			`async update\((id: number, update\w*Dto: Update\w+Dto)\): Promise`,
			"async update(${1}, userId?: number): Promise"),
	}
}

func typedStampInjectors(v string) func(string) string {
	stamp := func(needle string) rewrite.LineInjector {
		return rewrite.LineInjector{
			Guard: "_userId",
			Lines: stampLines(v),
			Every: true,
			Match: func(line string) bool {
				return strings.Contains(line, needle) && strings.Contains(line, "Dto)")
			},
		}
	}
	return rewrite.Chain(stamp(".create(create").Func(), stamp("Object.assign(").Func())
}

// handlerParams matches a controller handler signature up to its ": Promise"
// return type. Group 1 is the handler head without the trailing comma.
func handlerParams(method string) string {
	const item = `(?:[^()]|\([^()]*\))`
	return `(?m)^(\s*` + method + `\(` + item + `*?(?:[^()\s,]|\([^()]*\)))[\s,]*\): Promise`
}

func typedAuditControllerRules() rewrite.Rules {
	const param = "${1},\n    @CurrentUserId() userId: number,\n  ): Promise"
	return rewrite.Rules{
		importAfterSwagger(),
		rewrite.Sub("controller-create", handlerParams("create"), param).First().Except("CurrentUserId"),
		rewrite.Sub("controller-create-call",
			`(this\.\w*[sS]ervice\.create\(create\w*Dto)\)`,
			"${1}, userId)"),
		rewrite.Sub("controller-update", handlerParams("update"), param).First().Except("CurrentUserId"),
		rewrite.Sub("controller-update-call",
			`(this\.\w*[sS]ervice\.update\([^,()]+, update\w*Dto)\)`,
			"${1}, userId)"),
	}
}
