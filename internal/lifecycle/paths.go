package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveMissionPaths implements the invocation rule of spec §6: the
// positional argument names either the mission directory directly (in
// which case the session log is the one file in it matching *.log) or the
// session log file directly (in which case its parent directory is the
// mission directory, where the lock file and subscription layer live).
func ResolveMissionPaths(arg string) (missionDir, logPath string, err error) {
	info, err := os.Stat(arg)
	if err != nil {
		return "", "", fmt.Errorf("stat %s: %w", arg, err)
	}

	if !info.IsDir() {
		return filepath.Dir(arg), arg, nil
	}

	matches, err := filepath.Glob(filepath.Join(arg, "*.log"))
	if err != nil {
		return "", "", fmt.Errorf("glob session log in %s: %w", arg, err)
	}
	if len(matches) == 0 {
		return "", "", fmt.Errorf("no *.log file found in mission directory %s", arg)
	}
	return arg, matches[0], nil
}
