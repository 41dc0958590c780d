package version

import "fmt"

// Set at build time with -ldflags "-X location-tracker/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Built   = "unknown"
)

type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Built   string `json:"built"`
}

func Info() BuildInfo {
	return BuildInfo{Version: Version, Commit: Commit, Built: Built}
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("tracker version %s, commit %s, built %s", b.Version, b.Commit, b.Built)
}
