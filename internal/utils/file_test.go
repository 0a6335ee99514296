package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rajibrjb/AiResumeParserApi/internal/extract"
)

func TestReadInputFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "resume.txt")
	if err := os.WriteFile(file, []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}

	data, err := ReadInputFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q", data)
	}
}

func TestReadInputFileErrors(t *testing.T) {
	if _, err := ReadInputFile(""); err == nil {
		t.Error("empty filename must error")
	}
	if _, err := ReadInputFile(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Error("missing file must error")
	}
	if _, err := ReadInputFile(t.TempDir()); err == nil {
		t.Error("directory must error")
	}
}

func TestDetectMimeType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"resume.pdf", extract.MimePDF},
		{"Resume.PDF", extract.MimePDF},
		{"resume.docx", extract.MimeDocx},
		{"resume.txt", extract.MimeText},
		{"notes.md", extract.MimeText},
		{"resume.odt", ""},
		{"resume", ""},
	}
	for _, tt := range tests {
		if got := DetectMimeType(tt.filename); got != tt.want {
			t.Errorf("DetectMimeType(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := FormatFileSize(tt.size); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}
