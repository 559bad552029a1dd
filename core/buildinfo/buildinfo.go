// Package buildinfo carries version stamps injected at build time:
//
//	go build -ldflags "-X 'landingbot/core/buildinfo.Version=v1.0.0' \
//	  -X 'landingbot/core/buildinfo.Commit=abcdef0' \
//	  -X 'landingbot/core/buildinfo.Date=2026-08-29T12:00:00Z'"
//
// The defaults identify an unstamped local build.
package buildinfo

var (
	// Version is the release tag of the build.
	Version = "dev"
	// Commit is the VCS revision the build was produced from.
	Commit = "local"
	// Date is the build timestamp in RFC3339 form.
	Date = ""
)
