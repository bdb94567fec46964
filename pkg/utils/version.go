// Package utils holds build metadata and small helpers shared by the
// commands and the server.
package utils

// Set at build time through -ldflags.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
