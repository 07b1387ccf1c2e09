package main

import (
	"context"
	_ "embed"
	"os"
	"os/signal"

	"github.com/goaux/headline"
	"github.com/takumakei/nestfix/codemod"
)

//go:embed usage.md
var usage string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	codemod.Main(ctx, codemod.Config{
		Use:     "nestfix",
		Short:   headline.Get(usage),
		Long:    usage,
		Version: "v0.1.0",
	})
}
