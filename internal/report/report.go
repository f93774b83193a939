// Package report renders matching reports as CSV, XLSX and an archive of the
// selected candidate files.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spigell/resume-matcher/internal/document"
	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/skills"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatZIP  Format = "zip"
)

func ParseFormats(values []string) ([]Format, error) {
	out := make([]Format, 0, len(values))
	for _, v := range values {
		switch f := Format(strings.ToLower(strings.TrimSpace(v))); f {
		case FormatCSV, FormatXLSX, FormatZIP:
			out = append(out, f)
		case "":
		default:
			return nil, fmt.Errorf("unknown report format %q", v)
		}
	}
	return out, nil
}

var baseColumns = []string{
	"Resume",
	"Name",
	"Email",
	"Location",
	"Years of Experience",
	"Skills Match (%)",
	"Resume Match (%)",
	"All Resume Skills",
	"Matching Skills with JD",
	"Missing Skills from JD",
}

// Table flattens a report into a header and one row per result, in report order.
func Table(r *matching.Report) ([]string, [][]string) {
	weighted := r.Requirement.Weights != nil
	feedback := false
	for _, res := range r.All {
		if res.Feedback != "" {
			feedback = true
			break
		}
	}

	header := append([]string{}, baseColumns...)
	if weighted {
		header = append(header, "Weighted Skills Match (%)")
	}
	if feedback {
		header = append(header, "Feedback")
	}
	header = append(header, "Status", "Error")

	rows := make([][]string, 0, len(r.All))
	for _, res := range r.All {
		row := []string{
			res.Candidate.Name,
			res.Profile.DisplayName(),
			res.Profile.Email.Or(extraction.NotFound),
			res.Profile.Location.Or(extraction.NotFound),
			res.Profile.YearsOfExperience.Or(extraction.NotFound),
			"", "",
			strings.Join(res.Skills, ", "),
			strings.Join(res.Matched, ", "),
			strings.Join(res.Missing, ", "),
		}
		if res.Scores != nil {
			row[5] = formatScore(res.Scores.Skill)
			row[6] = formatScore(res.Scores.Embedding)
		}
		if weighted {
			w := ""
			if res.Scores != nil && res.Scores.Weighted != nil {
				w = formatScore(*res.Scores.Weighted)
			}
			row = append(row, w)
		}
		if feedback {
			row = append(row, res.Feedback)
		}
		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
		}
		row = append(row, res.State.String(), errText)
		rows = append(rows, row)
	}

	return header, rows
}

func formatScore(v float64) string {
	return strconv.FormatFloat(skills.Round2(v), 'f', -1, 64)
}

func WriteCSV(w io.Writer, r *matching.Report) error {
	header, rows := Table(r)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// BaseName is the file name stem used for a requirement's outputs.
func BaseName(r *matching.Report) string {
	name := r.Requirement.Name
	if name == "" {
		name = r.Requirement.ID
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return document.NormalizeName(name)
}

// Write renders the requested formats into dir and returns the created paths.
func Write(dir string, r *matching.Report, formats []Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	base := BaseName(r)
	var written []string

	for _, format := range formats {
		var (
			path string
			err  error
		)

		switch format {
		case FormatCSV:
			path = filepath.Join(dir, base+"_report.csv")
			err = writeFile(path, func(w io.Writer) error { return WriteCSV(w, r) })
		case FormatXLSX:
			path = filepath.Join(dir, base+"_report.xlsx")
			err = WriteXLSX(path, r)
		case FormatZIP:
			if len(r.Selected) == 0 {
				continue
			}
			path = filepath.Join(dir, base+"_selected_resumes.zip")
			err = writeFile(path, func(w io.Writer) error { return ArchiveSelected(w, r) })
		default:
			err = fmt.Errorf("unknown report format %q", format)
		}

		if err != nil {
			return written, fmt.Errorf("write %s report: %w", format, err)
		}
		written = append(written, path)
	}

	return written, nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
