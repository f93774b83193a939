package report

import (
	"archive/zip"
	"fmt"
	"io"
	"os"

	"github.com/spigell/resume-matcher/internal/matching"
)

// ArchiveSelected writes a ZIP with the source file of every selected candidate.
func ArchiveSelected(w io.Writer, r *matching.Report) error {
	zw := zip.NewWriter(w)
	used := make(map[string]struct{}, len(r.Selected))

	for _, res := range r.Selected {
		if res.Candidate.Path == "" {
			continue
		}

		name := res.Candidate.Name
		if _, dup := used[name]; dup {
			name = res.Candidate.ID + "_" + name
		}
		used[name] = struct{}{}

		if err := addFile(zw, name, res.Candidate.Path); err != nil {
			zw.Close()
			return fmt.Errorf("archive %s: %w", res.Candidate.Path, err)
		}
	}

	return zw.Close()
}

func addFile(zw *zip.Writer, name, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}
