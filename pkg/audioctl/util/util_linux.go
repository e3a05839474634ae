//go:build linux
// +build linux

package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetProcessPath returns the full path to the executable for the given process ID.
// On Linux, /proc/PID/exe is a symlink to the executable.
func GetProcessPath(pid int) (string, error) {
	exePath := fmt.Sprintf("/proc/%d/exe", pid)

	path, err := os.Readlink(exePath)
	if err != nil {
		return "", fmt.Errorf("read symlink %s: %w", exePath, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	return absPath, nil
}
