package main

import (
	"os"

	logs "github.com/danmuck/binstruct/internal/logging"
)

func main() {
	logs.ConfigureRuntime()
	if err := newRootCmd().Execute(); err != nil {
		logs.Errf("binstruct: %v", err)
		os.Exit(1)
	}
}
