// Package utils holds build metadata stamped in with -ldflags -X.
package utils

// Set at release time; see `pitch version`.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
