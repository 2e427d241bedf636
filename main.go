package main

import (
	"github.com/flanksource/yellowstone-kql/cmd"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(GetVersionInfo)
	cmd.Execute()
}

// GetVersionInfo returns build-time version metadata for the cmd package.
func GetVersionInfo() (string, string, string) {
	return version, commit, date
}
