package reports

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// RosterRow is one student line of an imported roster.
type RosterRow struct {
	Line       int
	ID         string
	Name       string
	DOB        string
	Email      string
	Category   string
	Department string
}

// RowError reports a line that could not be imported.
type RowError struct {
	Line  int    `json:"row"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

var rosterRequired = []string{"id", "name", "dob"}

// ErrEmptyRoster is returned for a file with no content.
var ErrEmptyRoster = errors.New("file is empty")

// ReadRoster parses a student roster CSV. Columns are matched by header name,
// case-insensitively: id, name, dob are required; email, category, department
// are optional. Semicolon-separated files and a UTF-8 BOM are accepted.
// Unreadable lines are returned as RowErrors; a bad header fails the whole file.
func ReadRoster(r io.Reader) ([]RosterRow, []RowError, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, ErrEmptyRoster
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	if bytes.Contains(firstLine, []byte{';'}) && !bytes.Contains(firstLine, []byte{','}) {
		cr.Comma = ';'
	}

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, col := range header {
		key := strings.ToLower(strings.Trim(strings.TrimSpace(col), `"'`))
		if key != "" {
			idx[key] = i
		}
	}
	for _, key := range rosterRequired {
		if _, ok := idx[key]; !ok {
			return nil, nil, fmt.Errorf("missing header column: %s", key)
		}
	}
	get := func(rec []string, key string) string {
		i, ok := idx[key]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var (
		rows     []RosterRow
		failures []RowError
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			line := 0
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			failures = append(failures, RowError{Line: line, Error: fmt.Sprintf("failed to read row: %v", err)})
			if line == 0 {
				break
			}
			continue
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, RosterRow{
			Line:       line,
			ID:         get(rec, "id"),
			Name:       get(rec, "name"),
			DOB:        get(rec, "dob"),
			Email:      strings.ToLower(get(rec, "email")),
			Category:   get(rec, "category"),
			Department: get(rec, "department"),
		})
	}
	return rows, failures, nil
}
