// Package document turns resume and job description files into plain text.
package document

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	ExtTXT  = ".txt"
	ExtPDF  = ".pdf"
	ExtDOCX = ".docx"

	pdfTimeout = 30 * time.Second
)

// pdfToText is swapped in tests.
var pdfToText = func(ctx context.Context, path string) ([]byte, error) {
	return exec.CommandContext(ctx, "pdftotext", "-layout", path, "-").Output()
}

// ExtractText returns the text content of path. Unsupported or unreadable
// files yield an empty string; Read reports the reason.
func ExtractText(path string) string {
	text, _ := Read(path)
	return text
}

// Read extracts text from a .txt, .pdf or .docx file.
func Read(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ExtTXT:
		return readTXT(path)
	case ExtPDF:
		return readPDF(path)
	case ExtDOCX:
		return readDOCX(path)
	default:
		return "", fmt.Errorf("unsupported file type %q: %s", ext, path)
	}
}

// Supported reports whether path has an extension Read understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtTXT, ExtPDF, ExtDOCX:
		return true
	}
	return false
}

func readTXT(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, nil)
	}
	return string(data), nil
}

func readPDF(path string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), pdfTimeout)
	defer cancel()

	out, err := pdfToText(ctx, path)
	if err != nil {
		return "", fmt.Errorf("pdf extraction requires 'pdftotext' (poppler-utils): %s: %w", path, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// readDOCX concatenates the paragraphs of word/document.xml.
func readDOCX(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx %s: %w", path, err)
	}
	defer archive.Close()

	for _, f := range archive.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml in %s: %w", path, err)
		}
		defer rc.Close()
		return wordText(rc)
	}

	return "", fmt.Errorf("docx %s has no word/document.xml", path)
}

func wordText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteString("\t")
			case "br", "cr":
				current.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	return strings.Join(paragraphs, "\n"), nil
}
