package document

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

const ExtZIP = ".zip"

// Document is a collected file and its extracted text.
type Document struct {
	ID   string
	Name string
	Path string
	Text string
}

// Collector resolves path patterns, unpacks ZIP archives and reads documents.
type Collector struct {
	// TempDir receives files unpacked from archives.
	TempDir string
	// Extensions limits accepted files. Empty means txt, pdf and docx.
	Extensions []string
	Logger     *zap.Logger
}

// Collect returns the documents matched by patterns ordered by path. Files
// whose text cannot be extracted are kept with empty text.
func (c *Collector) Collect(patterns []string) ([]Document, error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var paths []string
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}

		for _, match := range matches {
			if strings.EqualFold(filepath.Ext(match), ExtZIP) {
				unpacked, err := c.unzip(match, logger)
				if err != nil {
					return nil, err
				}
				paths = append(paths, unpacked...)
				continue
			}
			if c.accepts(match) {
				paths = append(paths, match)
			} else {
				logger.Warn("skipping unsupported file", zap.String("path", match))
			}
		}
	}

	paths = uniqueSorted(paths)
	docs := make([]Document, 0, len(paths))
	usedIDs := make(map[string]int, len(paths))

	for _, p := range paths {
		name := filepath.Base(p)
		text, err := Read(p)
		if err != nil {
			logger.Warn("text extraction failed", zap.String("path", p), zap.Error(err))
		}

		id := NormalizeName(name)
		usedIDs[id]++
		if n := usedIDs[id]; n > 1 {
			id = fmt.Sprintf("%s-%d", id, n)
		}

		docs = append(docs, Document{ID: id, Name: name, Path: p, Text: text})
	}

	logger.Info("documents collected", zap.Int("count", len(docs)))
	return docs, nil
}

func (c *Collector) accepts(p string) bool {
	if len(c.Extensions) == 0 {
		return Supported(p)
	}
	ext := strings.ToLower(filepath.Ext(p))
	for _, allowed := range c.Extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// unzip extracts accepted entries flat into TempDir/<archive name>/ using
// normalized base names. Entries whose names collide get a numeric suffix.
func (c *Collector) unzip(archivePath string, logger *zap.Logger) ([]string, error) {
	if c.TempDir == "" {
		return nil, fmt.Errorf("unpacking %s: temporary directory is not configured", archivePath)
	}

	archive, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer archive.Close()

	stem := NormalizeName(strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath)))
	dest := filepath.Join(c.TempDir, stem)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dest, err)
	}

	var out []string
	used := make(map[string]int)
	for _, f := range archive.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		base := path.Base(f.Name)
		if strings.HasPrefix(base, ".") || !c.accepts(base) {
			continue
		}

		name := NormalizeName(base)
		used[strings.ToLower(name)]++
		if n := used[strings.ToLower(name)]; n > 1 {
			renamed := suffixName(name, n)
			for used[strings.ToLower(renamed)] > 0 {
				n++
				renamed = suffixName(name, n)
			}
			used[strings.ToLower(renamed)]++
			logger.Warn("archive entry renamed to avoid a name collision",
				zap.String("archive", archivePath),
				zap.String("entry", f.Name),
				zap.String("name", renamed),
			)
			name = renamed
		}

		target := filepath.Join(dest, name)
		if err := writeEntry(f, target); err != nil {
			return nil, fmt.Errorf("extract %s from %s: %w", f.Name, archivePath, err)
		}
		out = append(out, target)
	}

	return out, nil
}

// suffixName turns cv.txt into cv-2.txt for n == 2.
func suffixName(name string, n int) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n, ext)
}

func writeEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, rc); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// NormalizeName folds name to ASCII and replaces spaces with underscores.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		switch {
		case r > unicode.MaxASCII || unicode.Is(unicode.Mn, r):
			continue
		case r == ' ':
			b.WriteRune('_')
		case r == '/' || r == '\\':
			continue
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "document"
	}
	return b.String()
}

func uniqueSorted(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		clean := filepath.Clean(p)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	sort.Strings(out)
	return out
}
