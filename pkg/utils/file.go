package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// FormatFileSize formats file size in human readable format
func FormatFileSize(size int64) string {
	if size < 0 {
		return "unknown"
	}
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// FileExists reports whether path names an existing regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ValidateSourcePath ensures the file to send exists and is readable as a regular file
func ValidateSourcePath(srcPath string) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s doesn't exist", srcPath)
		}
		return fmt.Errorf("cannot access '%s': %w", srcPath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("'%s' is a directory, only single files can be sent", srcPath)
	}
	return nil
}

// ValidateDestinationPath ensures the destination path is valid for file creation
func ValidateDestinationPath(dstPath string) error {
	// Check if path exists and is a directory
	if info, err := os.Stat(dstPath); err == nil {
		if info.IsDir() {
			return fmt.Errorf("destination path '%s' is a directory, please specify a file path", dstPath)
		}
		// Existing files are confirmed by the caller before being overwritten
		return nil
	}

	dir := filepath.Dir(dstPath)
	if dir != "." && dir != "/" {
		if info, err := os.Stat(dir); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("parent directory '%s' does not exist", dir)
			}
			return fmt.Errorf("cannot access parent directory '%s': %w", dir, err)
		} else if !info.IsDir() {
			return fmt.Errorf("parent path '%s' is not a directory", dir)
		}
	}

	filename := filepath.Base(dstPath)
	if filename == "." || filename == ".." {
		return fmt.Errorf("destination path '%s' does not specify a filename", dstPath)
	}

	return nil
}
