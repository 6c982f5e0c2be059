package extract

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/phobologic/callrank/internal/graph"
	"github.com/phobologic/callrank/internal/lang"
	"github.com/phobologic/callrank/internal/model"
)

// DefaultKeyword is used for units whose language is not registered.
const DefaultKeyword = "def"

var callRe = regexp.MustCompile(`\b([A-Za-z_]\w*)\(`)

var (
	defPatternsMu sync.Mutex
	defPatterns   = map[string]*regexp.Regexp{}
)

func definitionPattern(keyword string) *regexp.Regexp {
	defPatternsMu.Lock()
	defer defPatternsMu.Unlock()
	re, ok := defPatterns[keyword]
	if !ok {
		re = regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + `[ \t]+([A-Za-z_]\w*)\(`)
		defPatterns[keyword] = re
	}
	return re
}

// Text is a single-pass textual extractor. A definition is the keyword
// followed by an identifier and "(" on one line. Its body is the run of
// following lines indented deeper than the signature line; the first line at
// or below that indentation ends it, blank lines included. Every identifier
// followed by "(" in the body is a call candidate.
type Text struct {
	// Keyword overrides the per-language definition keyword.
	Keyword string
	// QualifyNames prefixes definitions with their file path.
	QualifyNames bool
}

func (t *Text) Name() string { return string(ModeText) }

// Extract implements Extractor.
func (t *Text) Extract(_ context.Context, unit model.SourceUnit) graph.Contribution {
	records := t.Functions(unit)
	calls := make(map[string]map[string]struct{})
	for _, r := range records {
		for _, m := range callRe.FindAllStringSubmatch(r.Body, -1) {
			addCall(calls, r.Name, m[1])
		}
	}
	return contribution(unit.Path, records, calls)
}

// Functions returns every definition site in unit in source order.
func (t *Text) Functions(unit model.SourceUnit) []model.FunctionRecord {
	re := definitionPattern(t.keyword(unit))
	lines := splitLines(unit.Text)

	var records []model.FunctionRecord
	for i, line := range lines {
		matches := re.FindAllStringSubmatch(line, -1)
		if len(matches) == 0 {
			continue
		}
		body := bodyAfter(lines, i)
		for _, m := range matches {
			records = append(records, model.FunctionRecord{
				Name: qualify(unit, m[1], t.QualifyNames),
				Path: unit.Path,
				Body: body,
			})
		}
	}
	return records
}

func (t *Text) keyword(unit model.SourceUnit) string {
	if t.Keyword != "" {
		return t.Keyword
	}
	if l, ok := lang.Languages[unit.Language]; ok && l.Keyword != "" {
		return l.Keyword
	}
	return DefaultKeyword
}

// bodyAfter returns the lines after lines[sig] that are indented deeper than it.
func bodyAfter(lines []string, sig int) string {
	base := indentWidth(lines[sig])
	end := sig + 1
	for end < len(lines) {
		line := lines[end]
		if strings.TrimSpace(line) == "" || indentWidth(line) <= base {
			break
		}
		end++
	}
	return strings.Join(lines[sig+1:end], "\n")
}

// indentWidth counts leading spaces and tabs, one column each.
func indentWidth(line string) int {
	n := 0
	for n < len(line) && (line[n] == ' ' || line[n] == '\t') {
		n++
	}
	return n
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
