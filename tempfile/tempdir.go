package tempfile

import (
	"os"
	"runtime"
	"sync"
)

var (
	diskPreferredDir string
	dirDiscoveryOnce sync.Once
)

// GetTempDir returns the directory to create spill files in. A non-empty,
// usable dir wins. Otherwise a disk-backed directory is preferred over the
// OS default, since /tmp is often memory-backed tmpfs and spilling exists
// precisely to get record data out of memory.
func GetTempDir(dir string) string {
	if dir != "" && isDirectoryUsable(dir) {
		return dir
	}

	dirDiscoveryOnce.Do(func() {
		diskPreferredDir = discoverDiskPreferredDir()
	})
	return diskPreferredDir
}

func discoverDiskPreferredDir() string {
	switch runtime.GOOS {
	case "linux", "darwin", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris":
		// /var/tmp is traditionally disk-backed on Unix-like systems
		if isDirectoryUsable("/var/tmp") {
			return "/var/tmp"
		}
	}
	return os.TempDir()
}

// isDirectoryUsable reports whether dir exists and is a directory.
// Writability is not probed here; temp file creation will surface that.
func isDirectoryUsable(dir string) bool {
	stat, err := os.Stat(dir)
	if err != nil {
		return false
	}
	return stat.IsDir()
}
