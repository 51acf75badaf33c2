package main

import (
	"os"

	"github.com/contract-guardian/server/internal/cli"
	logx "github.com/contract-guardian/server/pkg/logger"
)

func main() {
	logx.Init()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
