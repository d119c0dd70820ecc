// Package version exposes the build version of scorelookup.
package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// devVersion is reported when the binary was built without a release tag.
const devVersion = "0.0.0-dev"

// These are set at build time via -ldflags.
//
//nolint:gochecknoglobals // Populated by the linker.
var (
	version = devVersion
	commit  = "none"
)

// GetVersion returns the normalized semantic version of the binary.
// Unparseable build versions fall back to the development version.
func GetVersion() string {
	v, err := semver.NewVersion(strings.TrimSpace(version))
	if err != nil {
		return devVersion
	}
	return v.String()
}

// GetCommit returns the git commit the binary was built from.
func GetCommit() string {
	return commit
}

// IsRelease reports whether the binary carries a final (non-prerelease) version.
func IsRelease() bool {
	v, err := semver.NewVersion(strings.TrimSpace(version))
	if err != nil {
		return false
	}
	return v.Prerelease() == ""
}

// UserAgent returns the User-Agent string sent to the scoring service.
func UserAgent() string {
	return "scorelookup/" + GetVersion()
}
