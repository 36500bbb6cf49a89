package main

import (
	"flag"

	"go.uber.org/fx"

	"github.com/matheus3301/wppledger/internal/daemon"
)

func main() {
	configFlag := flag.String("config", "", "path to config file (default ~/.wppledger/config.toml)")
	flag.Parse()

	app := fx.New(
		daemon.Module(daemon.Params{ConfigPath: *configFlag}),
	)

	app.Run()
}
