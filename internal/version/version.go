// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version values are set at build time using -ldflags.
var Version = "dev"
var Major = "0"
var Minor = "0"
var Patch = "0"
var Built = ""
var GitCommit = ""

type VersionInfo struct {
	Version   string `json:"version"`
	Major     int    `json:"major"`
	Minor     int    `json:"minor"`
	Patch     int    `json:"patch"`
	Built     string `json:"built"`
	GitCommit string `json:"git_commit,omitempty"`
}

func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Label(),
		Major:     parseInt(Major),
		Minor:     parseInt(Minor),
		Patch:     parseInt(Patch),
		Built:     Built,
		GitCommit: GitCommit,
	}
}

// Label is the version string, "dev" when unset.
func Label() string {
	label := strings.TrimSpace(Version)
	if label == "" {
		return "dev"
	}
	return label
}

// String formats the info for --version output.
func (info VersionInfo) String() string {
	if info.Version == "dev" {
		return "sentinel dev"
	}
	text := fmt.Sprintf("sentinel version %s", info.Version)
	if info.GitCommit != "" {
		text += fmt.Sprintf(" (%s)", info.GitCommit)
	}
	if info.Built != "" {
		text += " built " + info.Built
	}
	return text
}

func parseInt(value string) int {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}
