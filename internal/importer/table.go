package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	enc "github.com/MrJamesThe3rd/tally/internal/encoding"
)

// ErrEmptyInput is returned when an input holds no data rows.
var ErrEmptyInput = errors.New("no data found")

// Table is parsed tabular input. Header is nil when the input has no header row.
type Table struct {
	Header []string
	Rows   [][]Cell
}

// RowNumber returns the 1-based input line of the data row at index i.
func (t Table) RowNumber(i int) int {
	if t.Header != nil {
		return i + 2
	}

	return i + 1
}

// ReadCSV reads a comma separated file in any common encoding. When header is
// true the first record is taken as column names.
func ReadCSV(r io.Reader, header bool) (Table, error) {
	utf8r, _, err := enc.Decode(r)
	if err != nil {
		return Table{}, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read csv: %w", err)
	}

	return newTable(records, header)
}

var (
	tabSplit    = regexp.MustCompile(`\t`)
	columnSplit = regexp.MustCompile(`\t| {2,}`)
)

// ParsePaste reads tab separated text copied from a spreadsheet. Blank lines are skipped.
func ParsePaste(text string, header bool) (Table, error) {
	return parseLines(text, header, tabSplit)
}

// ParseColumns reads pasted text whose columns are separated by a tab or by two or more spaces.
func ParseColumns(text string, header bool) (Table, error) {
	return parseLines(text, header, columnSplit)
}

func parseLines(text string, header bool, sep *regexp.Regexp) (Table, error) {
	var records [][]string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		records = append(records, sep.Split(line, -1))
	}

	return newTable(records, header)
}

func newTable(records [][]string, header bool) (Table, error) {
	var t Table

	if header {
		if len(records) == 0 {
			return Table{}, ErrEmptyInput
		}

		t.Header = make([]string, len(records[0]))
		for i, h := range records[0] {
			t.Header[i] = strings.TrimSpace(h)
		}

		records = records[1:]
	}

	if len(records) == 0 {
		return Table{}, ErrEmptyInput
	}

	t.Rows = make([][]Cell, len(records))
	for i, rec := range records {
		row := make([]Cell, len(rec))
		for j, v := range rec {
			row[j] = ParseCell(v)
		}

		t.Rows[i] = row
	}

	return t, nil
}
