package util

import (
	"math"
	"os"
	"os/signal"
	"syscall"
)

// Clamp constrains a volume scalar to the inclusive [0, 1] range.
// Out-of-range values are clamped, never rejected. NaN compares false
// against both bounds, so it needs its own check to keep the output
// in range.
func Clamp(v float32) float32 {
	if math.IsNaN(float64(v)) {
		return 0
	}

	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

// NormalizeScalar "trims" the given float32 to 2 points of precision (e.g. 0.15442 -> 0.15)
// This is used for cleaning up core audio volume levels before display
func NormalizeScalar(v float32) float32 {
	return float32(math.Floor(float64(v)*100) / 100.0)
}

// FileExists checks if a file exists and is not a directory before we
// try using it to prevent further errors.
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}

// SetupCloseHandler creates a 'listener' on a new goroutine which will notify the
// program if it receives an interrupt from the OS
func SetupCloseHandler() chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	return c
}
