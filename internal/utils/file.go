// Package utils holds small filesystem helpers shared by the CLI commands.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rajibrjb/AiResumeParserApi/internal/errors"
	"github.com/rajibrjb/AiResumeParserApi/internal/extract"
)

// ReadInputFile validates and reads an input document.
func ReadInputFile(filename string) ([]byte, error) {
	if filename == "" {
		return nil, errors.NewValidationError(errors.ErrCodeFileNotFound,
			"filename cannot be empty", nil)
	}

	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("file does not exist: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("cannot access file: %s", filename), err)
	}
	if info.IsDir() {
		return nil, errors.NewValidationError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("path is a directory, not a file: %s", filename), nil)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("cannot read file: %s", filename), err)
	}
	return data, nil
}

// DetectMimeType maps a filename extension to the upload content types the
// extraction layer understands. Unknown extensions return an empty string and
// leave detection to the extractor.
func DetectMimeType(filename string) string {
	switch GetFileExtension(filename) {
	case ".pdf":
		return extract.MimePDF
	case ".docx":
		return extract.MimeDocx
	case ".txt", ".md", ".markdown", ".text":
		return extract.MimeText
	}
	return ""
}

// ValidateOutputFile checks the output path and creates missing directories.
// An empty path means stdout and is valid.
func ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// GetFileExtension returns the file extension in lowercase.
func GetFileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// FormatFileSize returns a human-readable file size.
func FormatFileSize(size int64) string {
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
