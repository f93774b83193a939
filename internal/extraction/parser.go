package extraction

import (
	"regexp"
	"strings"

	"github.com/spigell/resume-matcher/internal/skills"
)

const rowCells = 5

var (
	separatorCell = regexp.MustCompile(`^:?-{3,}:?$`)
	bracketedList = regexp.MustCompile(`\[([^\[\]]*)\]`)
)

// parseProfile locates the last structurally valid five-cell row in raw.
func parseProfile(raw string) Profile {
	cells, ok := lastRow(raw)
	if !ok {
		return failedProfile("no five-column row in model output")
	}

	return Profile{
		Name:              NewField(cells[0]),
		Email:             NewField(cells[1]),
		Location:          NewField(cells[2]),
		YearsOfExperience: NewField(cells[3]),
		Skills:            parseSkillCell(cells[4]),
	}
}

// parseSkillList prefers the last bracketed list and falls back to the skills
// cell of a profile row.
func parseSkillList(raw string) (skills.Set, bool) {
	if matches := bracketedList.FindAllStringSubmatch(raw, -1); len(matches) > 0 {
		return parseSkillCell(matches[len(matches)-1][1]), true
	}

	if cells, ok := lastRow(raw); ok {
		return parseSkillCell(cells[4]), true
	}

	return nil, false
}

func parseSkillCell(cell string) skills.Set {
	if isAbsent(strings.TrimSpace(cell)) {
		return skills.NewSet()
	}
	return skills.Parse(cell)
}

func lastRow(raw string) ([]string, bool) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		cells, ok := splitRow(lines[i])
		if !ok || isSeparator(cells) || isHeader(cells) {
			continue
		}
		return cells, true
	}
	return nil, false
}

func splitRow(line string) ([]string, bool) {
	line = strings.TrimSpace(line)
	if !strings.Contains(line, "|") {
		return nil, false
	}

	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")

	parts := strings.Split(line, "|")
	if len(parts) != rowCells {
		return nil, false
	}

	cells := make([]string, len(parts))
	for i, part := range parts {
		cells[i] = strings.TrimSpace(part)
	}
	return cells, true
}

func isSeparator(cells []string) bool {
	for _, cell := range cells {
		if !separatorCell.MatchString(cell) {
			return false
		}
	}
	return true
}

// columnTitles lists the accepted header wording per column, after
// normalizeTitle.
var columnTitles = [rowCells][]string{
	{"name", "candidate name"},
	{"email", "e mail", "mail"},
	{"location", "city"},
	{"years of experience", "experience", "years", "years of professional experience", "total experience"},
	{"technical skills", "skills"},
}

// isHeader reports whether cells echo the column titles rather than values.
// The name and email titles are enough, since real values never match both.
func isHeader(cells []string) bool {
	matched := make([]bool, rowCells)
	count := 0
	for i, cell := range cells {
		title := normalizeTitle(cell)
		for _, candidate := range columnTitles[i] {
			if title == candidate {
				matched[i] = true
				count++
				break
			}
		}
	}
	return (matched[0] && matched[1]) || count >= rowCells-1
}

// normalizeTitle lowercases cell, keeps letters only and drops the "full" and
// "address" qualifiers, so "Full Name" and "Email Address" read as name and email.
func normalizeTitle(cell string) string {
	words := strings.FieldsFunc(strings.ToLower(cell), func(r rune) bool {
		return r < 'a' || r > 'z'
	})

	kept := words[:0]
	for _, w := range words {
		if w == "full" || w == "address" {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
