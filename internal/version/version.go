package version

import (
	"fmt"
	"runtime"
)

// Version values are set at build time using -ldflags.
var (
	Version   = "dev"
	Built     = ""
	GitCommit = ""
)

type Info struct {
	Version   string `json:"version"`
	Built     string `json:"built,omitempty"`
	GitCommit string `json:"git_commit,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Built:     Built,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders the version for the command line, including the
// commit when one was stamped in.
func (info Info) String() string {
	if info.GitCommit != "" {
		return fmt.Sprintf("unionwatch %s (%s)", info.Version, info.GitCommit)
	}
	return fmt.Sprintf("unionwatch %s", info.Version)
}
