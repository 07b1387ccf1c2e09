package tscheck_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takumakei/nestfix/tscheck"
)

const controller = `import { Controller, Post, Body } from '@nestjs/common';
import { CurrentUserId } from '../../common/decorators/current-user.decorator';

@Controller('clients')
export class ClientsController {
  constructor(private readonly clientsService: ClientsService) {}

  @Post()
  create(@Body() createDto: CreateClientDto, @CurrentUserId() userId: number) {
    return this.clientsService.create(createDto, userId);
  }
}
`

func TestCheckValid(t *testing.T) {
	assert.NoError(t, tscheck.Check(context.Background(), "clients.controller.ts", []byte(controller)))
}

func TestCheckBroken(t *testing.T) {
	src := "let x = 1;\n}\n"
	err := tscheck.Check(context.Background(), "a.ts", []byte(src))
	require.Error(t, err)

	var serr *tscheck.SyntaxError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, tscheck.SyntaxError{Path: "a.ts", Line: 2, Column: 1, Near: "}"}, *serr)
	assert.Equal(t, `a.ts:2:1: syntax error near "}"`, err.Error())
}

func TestCheckMissing(t *testing.T) {
	src := "function f() {\n"
	err := tscheck.Check(context.Background(), "b.ts", []byte(src))
	require.Error(t, err)

	var serr *tscheck.SyntaxError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "}", serr.Missing)
	assert.Empty(t, serr.Near)
	assert.Contains(t, err.Error(), "missing }")
}
