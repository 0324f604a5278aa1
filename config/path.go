package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves "~/" and environment variables and returns an
// absolute path.
func ExpandPath(path string) (string, error) {
	path = os.ExpandEnv(path)
	if strings.HasPrefix(path, "~/") {
		dirname, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dirname, path[2:])
	}

	return filepath.Abs(path)
}
