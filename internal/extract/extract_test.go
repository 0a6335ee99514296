package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/rajibrjb/AiResumeParserApi/internal/errors"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestTextPlain(t *testing.T) {
	got, err := Text([]byte("Jane Doe\nSoftware   Engineer\n\n\nGo, SQL"), MimeText, "resume.txt")
	if err != nil {
		t.Fatal(err)
	}
	want := "Jane Doe\nSoftware Engineer\nGo, SQL"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTextDocx(t *testing.T) {
	doc := `<?xml version="1.0"?><w:document><w:body>` +
		`<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Engineer</w:t><w:tab/><w:t>Berlin</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	data := buildDocx(t, doc)

	got, err := Text(data, MimeDocx, "resume.docx")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Jane Doe") {
		t.Errorf("missing name in %q", got)
	}
	if !strings.Contains(got, "Engineer Berlin") {
		t.Errorf("tab not converted to word boundary in %q", got)
	}
}

func TestTextDocxWithoutBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/styles.xml")
	w.Write([]byte("<w:styles/>"))
	zw.Close()

	_, err := Text(buf.Bytes(), MimeDocx, "resume.docx")
	assertCode(t, err, errors.ErrCodeExtractionFailed)
}

func TestTextFormatFromExtension(t *testing.T) {
	// Browsers often upload with a generic media type; the extension decides.
	got, err := Text([]byte("plain body"), "application/octet-stream", "notes.TXT")
	if err != nil {
		t.Fatal(err)
	}
	if got != "plain body" {
		t.Errorf("got %q", got)
	}
}

func TestTextUnsupportedFormat(t *testing.T) {
	_, err := Text([]byte("GIF89a"), "image/gif", "photo.gif")
	assertCode(t, err, errors.ErrCodeUnsupportedFormat)
}

func TestTextEmptyDocument(t *testing.T) {
	_, err := Text(nil, MimeText, "resume.txt")
	assertCode(t, err, errors.ErrCodeEmptyDocument)
}

func TestTextCorruptPDF(t *testing.T) {
	_, err := Text([]byte("not really a pdf"), MimePDF, "resume.pdf")
	assertCode(t, err, errors.ErrCodeExtractionFailed)
}

func TestTextCorruptDocx(t *testing.T) {
	_, err := Text([]byte("not a zip archive"), MimeDocx, "resume.docx")
	assertCode(t, err, errors.ErrCodeExtractionFailed)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Errorf("code = %q, want %q", appErr.Code, code)
	}
}
