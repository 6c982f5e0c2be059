// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Report is a ranked view of one pipeline run.
type Report struct {
	Root      string
	Partial   bool
	Functions []Function
	Calls     []Call
	Warnings  []Warning
}

// Function is one row of the ranking table, in rank order.
type Function struct {
	Name       string
	Priority   int
	OutDegree  int
	Complexity int
	Weight     int
}

// Call is a resolved call graph edge.
type Call struct {
	Caller string
	Callee string
}

// Warning is a file the scanner skipped or decoded lossily.
type Warning struct {
	Path   string
	Reason string
}

// Encode converts a Report into TOON format.
func Encode(r *Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("root: %s", encodeValue(r.Root)))
	parts = append(parts, fmt.Sprintf("partial: %t", r.Partial))

	var fnRows [][]string
	for i := range r.Functions {
		f := &r.Functions[i]
		fnRows = append(fnRows, []string{
			f.Name,
			strconv.Itoa(f.Priority),
			strconv.Itoa(f.OutDegree),
			strconv.Itoa(f.Complexity),
			strconv.Itoa(f.Weight),
		})
	}
	parts = append(parts, formatTabular("functions",
		[]string{"name", "priority", "out_degree", "complexity", "weight"}, fnRows))

	var callRows [][]string
	for i := range r.Calls {
		c := &r.Calls[i]
		callRows = append(callRows, []string{c.Caller, c.Callee})
	}
	parts = append(parts, formatTabular("calls", []string{"caller", "callee"}, callRows))

	if len(r.Warnings) > 0 {
		var warnRows [][]string
		for i := range r.Warnings {
			w := &r.Warnings[i]
			warnRows = append(warnRows, []string{w.Path, w.Reason})
		}
		parts = append(parts, formatTabular("warnings", []string{"path", "reason"}, warnRows))
	}

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
