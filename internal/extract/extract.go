// Package extract pulls plain text out of uploaded resume documents.
package extract

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/rajibrjb/AiResumeParserApi/internal/errors"
)

// Supported document media types.
const (
	MimePDF  = "application/pdf"
	MimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// Text extracts plain text from a document buffer. The format is picked from
// the declared media type first and the filename extension as a fallback.
func Text(data []byte, mimeType, filename string) (string, error) {
	if len(data) == 0 {
		return "", errors.NewExtractionError(errors.ErrCodeEmptyDocument, "document is empty", nil)
	}

	switch detectFormat(mimeType, filename) {
	case "pdf":
		return pdfText(data)
	case "docx":
		return docxText(data)
	case "txt":
		return normalizeWhitespace(string(data)), nil
	default:
		return "", errors.NewExtractionError(
			errors.ErrCodeUnsupportedFormat,
			"unsupported document format, expected PDF, DOCX or plain text",
			nil,
		).WithContext("mime_type", mimeType).WithContext("filename", filename)
	}
}

func detectFormat(mimeType, filename string) string {
	switch {
	case strings.HasPrefix(mimeType, MimePDF):
		return "pdf"
	case strings.HasPrefix(mimeType, MimeDocx):
		return "docx"
	case strings.HasPrefix(mimeType, MimeText):
		return "txt"
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "pdf"
	case ".docx":
		return "docx"
	case ".txt":
		return "txt"
	}
	return ""
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.NewExtractionError(errors.ErrCodeExtractionFailed, "failed to read PDF", err)
	}
	rs, err := reader.GetPlainText()
	if err != nil {
		return "", errors.NewExtractionError(errors.ErrCodeExtractionFailed, "failed to extract PDF text", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rs); err != nil {
		return "", errors.NewExtractionError(errors.ErrCodeExtractionFailed, "failed to extract PDF text", err)
	}
	return normalizeWhitespace(buf.String()), nil
}

// docxText reads word/document.xml out of the DOCX archive and strips the
// markup. Paragraph ends and tabs are mapped to whitespace before tags are
// removed so word boundaries survive.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.NewExtractionError(errors.ErrCodeExtractionFailed, "failed to open DOCX archive", err)
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return "", errors.NewExtractionError(errors.ErrCodeExtractionFailed, "failed to open DOCX document body", err)
			}
			docXML, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return "", errors.NewExtractionError(errors.ErrCodeExtractionFailed, "failed to read DOCX document body", err)
			}
			break
		}
	}
	if len(docXML) == 0 {
		return "", errors.NewExtractionError(errors.ErrCodeExtractionFailed, "no document body found in DOCX archive", nil)
	}

	text := string(docXML)
	text = strings.ReplaceAll(text, "</w:p>", "\n")
	text = strings.ReplaceAll(text, "<w:tab/>", "\t")
	text = tagPattern.ReplaceAllString(text, " ")
	return normalizeWhitespace(text), nil
}

var (
	spaceRuns   = regexp.MustCompile(`[ \t\r\f\v]+`)
	newlineRuns = regexp.MustCompile(`\n+`)
)

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = spaceRuns.ReplaceAllString(s, " ")
	s = newlineRuns.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
