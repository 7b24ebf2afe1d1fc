// Package main provides the entry point for the ifc-normalizer CLI.
package main

import "github.com/pb40development/ifc-normalizer/cmd/ifc-normalizer/cmd"

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
