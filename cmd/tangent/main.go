// Package main implements the tangent CLI.
package main

import (
	"os"

	"github.com/l3aro/go-tangent/cmd/tangent/commands"
)

var version = "dev"

func main() {
	commands.RootCmd.Version = version
	commands.RootCmd.SetVersionTemplate("tangent version {{.Version}}\n")

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
