package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// appDirName is the per-user data directory name. It is shared with the
// desktop tool so both see the same styles and settings.
const appDirName = "BiblioRef"

// UserDataDir returns %APPDATA%/BiblioRef on Windows and ~/.biblioref
// elsewhere.
func UserDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if runtime.GOOS == "windows" {
		base := os.Getenv("APPDATA")
		if base == "" {
			base = home
		}
		return filepath.Join(base, appDirName)
	}
	return filepath.Join(home, ".biblioref")
}

// UserStylesDir holds CSL styles installed by the user.
func UserStylesDir() string {
	return filepath.Join(UserDataDir(), "styles")
}

// AppStylesDir holds CSL styles shipped next to the executable.
func AppStylesDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(exe), "styles")
}
