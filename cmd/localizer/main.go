package main

import (
	"os"

	"github.com/nerdneilsfield/go-localizer-agent/internal/cli"
)

// 构建时由 ldflags 注入
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	rootCmd := cli.NewRootCommand(Version, Commit, BuildDate)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
