package internal

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	// DefaultAppName is used for config discovery and mount identification
	DefaultAppName        = "vpfs"
	DefaultAppCMDShortCut = "vpfsd"
	DefaultConfigPath     = filepath.Join("/etc", DefaultAppName)
	DefaultMountPoint     = "/proc"

	// Translator identification exposed through the version entry
	DefaultVersionString = "Linux version 2.6.1 (virtual-procfs)"
)

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
