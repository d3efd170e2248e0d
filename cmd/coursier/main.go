package main

import (
	"os"

	"github.com/scala-steward/coursier/internal/cli"
	"github.com/scala-steward/coursier/pkg/buildinfo"
)

func main() {
	cli.SetVersion(buildinfo.Version, buildinfo.Commit, buildinfo.Date)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
