// Package build carries version metadata injected at link time via
// -ldflags.
package build

// Version is the semantic version of this build, or "dev" for local
// builds.
var Version = "dev"

// Commit is the short git sha this binary was built from.
var Commit = "none"

// Date is the build timestamp.
var Date = "unknown"
