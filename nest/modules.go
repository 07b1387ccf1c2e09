package nest

import (
	"context"
	"regexp"

	"github.com/takumakei/nestfix/rewrite"
)

// currentUserImport is the import line the controllers need for @CurrentUserId().
const currentUserImport = "import { CurrentUserId } from '../../common/decorators/current-user.decorator';"

// FixModules puts the DTO types back on the create/update signatures of
// every module service listed in Tables.DTOs and threads the current user id
// from the controller into the service calls.
//
// A module fails when its service or controller file is missing or cannot
// be written; the other modules are processed regardless.
func (r *Runner) FixModules(ctx context.Context) (*Tally, error) {
	return r.eachModule(ctx, r.Tables.DTOs, func(p Pair) Outcome {
		create, update := p.Value, UpdateDTO(p.Value)
		return Outcome{
			Module: p.Key,
			Files: []FileOutcome{
				r.edit(ctx, p.Key, r.Layout.Service(p.Key),
					typedServiceRules(create, update).Func(r.debugStats(p.Key, "service"))),
				r.edit(ctx, p.Key, r.Layout.Controller(p.Key),
					typedControllerRules(create, update).Func(r.debugStats(p.Key, "controller"))),
			},
		}
	})
}

func typedServiceRules(create, update string) rewrite.Rules {
	return rewrite.Rules{
		rewrite.Literal("service-create-signature",
			"async create(createDto, userId?: number)",
			"async create(createDto: "+create+", userId?: number)"),
		rewrite.Literal("service-update-signature",
			"async update(id: number, updateDto, userId?: number)",
			"async update(id: number, updateDto: "+update+", userId?: number)"),
	}
}

// importAfterSwagger adds the CurrentUserId import after the swagger import
// of a controller that does not mention CurrentUserId yet.
func importAfterSwagger() rewrite.Rule {
	return rewrite.Literal("controller-import",
		"from '@nestjs/swagger';",
		"from '@nestjs/swagger';\n"+currentUserImport).First().Unless("CurrentUserId")
}

func typedControllerRules(create, update string) rewrite.Rules {
	return rewrite.Rules{
		importAfterSwagger(),
		rewrite.SubVerbatim("controller-create",
			`create\(@Body\(\) \w+: `+regexp.QuoteMeta(create)+`\)`,
			"create(@Body() createDto: "+create+", @CurrentUserId() userId: number)"),
		rewrite.Sub("controller-create-call",
			`(this\.\w+Service\.create\()(\w+)\)`,
			"${1}${2}, userId)"),
		rewrite.SubVerbatim("controller-update",
			`update\([^)]*@Param\(['"]id['"]\)[^,]+,\s*@Body\(\) \w+: `+regexp.QuoteMeta(update)+`\)`,
			"update(@Param('id') id: string, @Body() updateDto: "+update+", @CurrentUserId() userId: number)"),
		rewrite.Sub("controller-update-call",
			`(this\.\w+Service\.update\([^,]+,\s*)(\w+)\)`,
			"${1}${2}, userId)"),
	}
}
