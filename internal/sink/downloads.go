package sink

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/juju/errors"
)

var (
	downloadsOnce sync.Once
	downloadsDir  string
	downloadsErr  error
)

// DownloadsDir returns the host's public Downloads directory, cached across
// calls. XDG_DOWNLOAD_DIR wins over $HOME/Downloads.
func DownloadsDir() (string, error) {
	downloadsOnce.Do(func() {
		downloadsDir, downloadsErr = resolveDownloadsDir(os.Getenv, os.UserHomeDir)
	})
	return downloadsDir, downloadsErr
}

func resolveDownloadsDir(getenv func(string) string, home func() (string, error)) (string, error) {
	homeDir, homeErr := home()

	if xdg := getenv("XDG_DOWNLOAD_DIR"); xdg != "" {
		// user-dirs.dirs style values are written as "$HOME/Downloads".
		if homeErr == nil {
			xdg = strings.Replace(xdg, "$HOME", homeDir, 1)
		}
		if filepath.IsAbs(xdg) {
			return filepath.Clean(xdg), nil
		}
	}

	if homeErr != nil {
		return "", errors.Annotate(homeErr, "no home directory")
	}
	return filepath.Join(homeDir, "Downloads"), nil
}
