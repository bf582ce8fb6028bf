package version

// Version is the current version of sptinv.
// Bump it for every build that changes behaviour.
// MAJOR.MINOR.PATCH; append a letter for trivial rebuilds (e.g. 0.4.0a).
var Version = "0.4.0"

// Commit is set at link time with -ldflags "-X .../version.Commit=<sha>".
var Commit = ""

// String returns the version with the commit suffix when one is known.
func String() string {
	if Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
