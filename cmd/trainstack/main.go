package main

import (
	"github.com/linecard/trainstack/cmd/cli"
	"github.com/linecard/trainstack/internal/tracing"
	"github.com/linecard/trainstack/internal/util"
)

func main() {
	util.SetLogLevel()

	_, shutdown := tracing.InitOtel()
	defer shutdown()

	cli.Invoke()
}
