package ingest

import (
	"strconv"
	"strings"

	"databridge/pkg/contracts/domain"
)

// SniffDelimiter picks the field separator for an export from its first
// line: tab wins when a tab is present and no comma is, otherwise comma.
func SniffDelimiter(firstLine string) rune {
	if strings.ContainsRune(firstLine, '\t') && !strings.ContainsRune(firstLine, ',') {
		return '\t'
	}
	return ','
}

// ParseDelimited parses a delimited export into field rows. The first line is
// the header: split, trimmed, quote-stripped, lowercased. Data lines whose
// field count does not match the header are dropped silently. Cells are
// float-coerced best effort; empty cells become null.
func ParseDelimited(contents string, delim rune) []domain.FieldRow {
	lines := splitLines(contents)
	if len(lines) < 2 {
		return nil
	}
	headers := splitHeaders(lines[0], delim)
	var rows []domain.FieldRow
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := splitCells(line, delim)
		if len(cells) != len(headers) {
			continue
		}
		rows = append(rows, buildRow(headers, cells))
	}
	return rows
}

// ParseQuoted parses an export whose fields may contain the delimiter inside
// double quotes, using a linear scan that toggles an in-quotes flag. skip is
// the fixed number of metadata lines before the real header row; it is
// configuration data per file type, never discovered from the content.
func ParseQuoted(contents string, delim rune, skip int) []domain.FieldRow {
	lines := splitLines(contents)
	if len(lines) < skip+2 {
		return nil
	}
	headers := splitHeaders(lines[skip], delim)
	var rows []domain.FieldRow
	for _, line := range lines[skip+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := scanQuoted(line, delim)
		if len(cells) != len(headers) {
			continue
		}
		rows = append(rows, buildRow(headers, cells))
	}
	return rows
}

func splitLines(contents string) []string {
	return strings.Split(strings.ReplaceAll(contents, "\r\n", "\n"), "\n")
}

// splitHeaders canonicalizes the header row: trimmed, quote-stripped,
// lowercased. Data cells keep their case.
func splitHeaders(line string, delim rune) []string {
	parts := strings.Split(strings.TrimSpace(line), string(delim))
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.ToLower(cleanCell(p))
	}
	return out
}

func splitCells(line string, delim rune) []string {
	parts := strings.Split(strings.TrimSpace(line), string(delim))
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = cleanCell(p)
	}
	return out
}

func cleanCell(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), `"`, "")
}

func scanQuoted(line string, delim rune) []string {
	var cells []string
	var cur strings.Builder
	inQuotes := false
	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == delim && !inQuotes:
			cells = append(cells, cleanCell(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(ch)
		}
	}
	cells = append(cells, cleanCell(cur.String()))
	return cells
}

func buildRow(headers []string, cells []string) domain.FieldRow {
	row := make(domain.FieldRow, len(headers))
	for i, h := range headers {
		cell := strings.TrimSpace(cells[i])
		if cell == "" {
			row[h] = domain.Null
			continue
		}
		if f, err := strconv.ParseFloat(cell, 64); err == nil {
			row[h] = domain.Num(f)
		} else {
			row[h] = domain.Str(cell)
		}
	}
	return row
}
