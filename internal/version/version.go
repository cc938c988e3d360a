package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Build metadata, overridable with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/hrygo/askbox/internal/version.Version=0.2.0 \
//	  -X github.com/hrygo/askbox/internal/version.GitCommit=$(git rev-parse HEAD)"
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// DevVersion is reported in dev and demo modes.
var DevVersion = Version + "-dev"

func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return DevVersion
	}
	return Version
}

// IsVersionGreaterOrEqualThan compares two "major.minor.patch" strings.
// Invalid versions sort before valid ones.
func IsVersionGreaterOrEqualThan(version, target string) bool {
	return semver.Compare(canonical(version), canonical(target)) > -1
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

func shortCommit() string {
	if GitCommit == "" || GitCommit == "unknown" {
		return ""
	}
	if len(GitCommit) > 8 {
		return GitCommit[:8]
	}
	return GitCommit
}

// String returns the version with the short commit hash when known.
func String() string {
	if c := shortCommit(); c != "" {
		return fmt.Sprintf("%s-%s", Version, c)
	}
	return Version
}

// StringFull returns the version and every known build field.
func StringFull() string {
	parts := []string{"Version=" + Version}
	if c := shortCommit(); c != "" {
		parts = append(parts, "Commit="+c)
	}
	if BuildTime != "" && BuildTime != "unknown" {
		parts = append(parts, "BuildTime="+BuildTime)
	}
	if !semver.IsValid(canonical(Version)) {
		parts = append(parts, "(non-semver)")
	}
	return strings.Join(parts, " ")
}
