package formatter

import (
	"fmt"
	"go/format"
	"regexp"
	"sort"
	"strings"
)

var importRegex = regexp.MustCompile(`(?s)import\s*\((.+?)\)`)

// Formatter is responsible for formatting generated Go code according to standard conventions
type Formatter struct{}

// NewFormatter creates a new Formatter instance
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format runs gofmt over code and groups its imports, standard library
// first.
func (f *Formatter) Format(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", nil
	}

	formatted, err := format.Source([]byte(code))
	if err != nil {
		return "", fmt.Errorf("failed to parse Go code: %w", err)
	}

	grouped := f.formatImports(string(formatted))
	if grouped == string(formatted) {
		return grouped, nil
	}
	// Regrouping can leave the block unaligned.
	out, err := format.Source([]byte(grouped))
	if err != nil {
		return "", fmt.Errorf("failed to format grouped imports: %w", err)
	}
	return string(out), nil
}

// formatImports organizes import statements with standard library imports first,
// followed by third-party imports with a blank line in between
func (f *Formatter) formatImports(code string) string {
	importMatches := importRegex.FindStringSubmatch(code)
	if len(importMatches) < 2 {
		// No import block found or it's a single-line import
		return code
	}

	importLines := strings.Split(strings.TrimSpace(importMatches[1]), "\n")

	stdLibImports := []string{}
	thirdPartyImports := []string{}

	for _, line := range importLines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		// Standard library imports don't have dots
		if !strings.Contains(importPath(line), ".") {
			stdLibImports = append(stdLibImports, line)
		} else {
			thirdPartyImports = append(thirdPartyImports, line)
		}
	}

	sort.Slice(stdLibImports, func(i, j int) bool { return importPath(stdLibImports[i]) < importPath(stdLibImports[j]) })
	sort.Slice(thirdPartyImports, func(i, j int) bool { return importPath(thirdPartyImports[i]) < importPath(thirdPartyImports[j]) })

	var b strings.Builder
	b.WriteString("import (\n")
	for _, imp := range stdLibImports {
		b.WriteString("\t" + imp + "\n")
	}
	if len(stdLibImports) > 0 && len(thirdPartyImports) > 0 {
		b.WriteString("\n")
	}
	for _, imp := range thirdPartyImports {
		b.WriteString("\t" + imp + "\n")
	}
	b.WriteString(")")

	loc := importRegex.FindStringIndex(code)
	return code[:loc[0]] + b.String() + code[loc[1]:]
}

// importPath returns the quoted path of an import line, without an alias.
func importPath(line string) string {
	if i := strings.IndexByte(line, '"'); i >= 0 {
		line = line[i:]
	}
	return strings.Trim(line, `"`)
}
