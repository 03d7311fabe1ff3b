//go:build !windows

package cuda

import "github.com/d8ahazard/audiolab-tools/internal/utils"

// Well-known toolkit roots on Linux and macOS.
var commonToolkitPaths = []string{
	"/usr/local/cuda",
	"/opt/cuda",
	"/usr/lib/cuda",
}

// locateToolkit returns the first existing well-known install location.
func locateToolkit() string {
	for _, path := range commonToolkitPaths {
		if utils.DirExists(path) {
			return path
		}
	}
	return ""
}
