// Package buildinfo carries version metadata stamped by the linker:
//
//	go build -ldflags "-X 'github.com/m3rciful/diarybot/core/buildinfo.Version=v0.3.0' \
//	  -X 'github.com/m3rciful/diarybot/core/buildinfo.Commit=$(git rev-parse --short HEAD)' \
//	  -X 'github.com/m3rciful/diarybot/core/buildinfo.Date=$(date -u +%FT%TZ)'" ./cmd/diarybot
package buildinfo

var (
	// Version is the release tag of the binary.
	Version = "dev"
	// Commit is the short git revision.
	Commit = "local"
	// Date is the RFC3339 build time.
	Date = ""
)

// String renders the metadata as a single token for startup logs.
func String() string {
	if Date == "" {
		return Version + "+" + Commit
	}
	return Version + "+" + Commit + "@" + Date
}
