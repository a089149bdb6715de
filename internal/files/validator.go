package files

import (
	"fmt"
	"log/slog"
	"os"
)

// ValidateOutputDirectory ensures dir exists and accepts new files
func ValidateOutputDirectory(dir string, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	tmp.Close()
	os.Remove(tmp.Name())

	if logger != nil {
		logger.Debug("output directory validated", slog.String("directory", dir))
	}
	return nil
}
