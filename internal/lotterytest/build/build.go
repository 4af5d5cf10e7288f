// Package build holds information about the binary, set at link time with
// -ldflags "-X github.com/armadaproject/lotterytest/internal/lotterytest/build.ReleaseVersion=...".
package build

import "runtime"

var (
	ReleaseVersion = "UNKNOWN_VERSION"
	GitCommit      = "UNKNOWN_GITCOMMIT"
	BuildTime      = "UNKNOWN_BUILDTIME"
	GoVersion      = runtime.Version()
)
