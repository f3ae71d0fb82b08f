// Package buildinfo carries the version stamped into the piso binary.
package buildinfo

import "runtime/debug"

// Set at build time with -ldflags "-X piso/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func init() {
	if Commit != "unknown" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			Commit = shortRev(s.Value)
		case "vcs.time":
			if Date == "unknown" {
				Date = s.Value
			}
		}
	}
}

func shortRev(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// Short is the identifier shown in the window title: the version when
// stamped, else the commit.
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	return "dev"
}

// String is the full build description printed by "piso version".
func String() string {
	return Version + " (commit " + Commit + ", built " + Date + ")"
}
