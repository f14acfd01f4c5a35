package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv names the variable that overrides the home directory.
const HomeEnv = "SPAMPRINT_HOME"

// ResolveHomedir picks the home directory: the flag value, else
// $SPAMPRINT_HOME, else ~/.spamprint.
func ResolveHomedir(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv(HomeEnv); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve home directory: %w", err)
	}
	return filepath.Join(home, ".spamprint"), nil
}

// EnsureHomedir creates dir if it does not exist.
func EnsureHomedir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create home directory %s: %w", dir, err)
	}
	return nil
}
