package importer

import (
	"fmt"
	"io"
)

// Source is the shape of the input being imported.
type Source string

const (
	// SourceCSV is a CSV file whose header row names the columns.
	SourceCSV Source = "csv"
	// SourceSpreadsheet is a CSV export of the time sheet; columns are taken by position
	// unless the header names them.
	SourceSpreadsheet Source = "spreadsheet"
	// SourcePaste is text copied from a spreadsheet, without a header.
	SourcePaste Source = "paste"
)

// Target is the kind of record an import creates.
type Target string

const (
	TargetWorkEntries Target = "work entries"
	TargetClients     Target = "clients"
	TargetSubClients  Target = "sub-clients"
)

// Read parses r according to source and returns the table with the layout to resolve it with.
func Read(target Target, source Source, r io.Reader) (Table, Layout, error) {
	switch source {
	case SourceCSV, SourceSpreadsheet:
		t, err := ReadCSV(r, true)
		if err != nil {
			return Table{}, Layout{}, err
		}

		return t, fileLayout(target, source), nil
	case SourcePaste:
		b, err := io.ReadAll(r)
		if err != nil {
			return Table{}, Layout{}, fmt.Errorf("read paste: %w", err)
		}

		if target == TargetWorkEntries {
			t, err := ParsePaste(string(b), false)
			return t, LayoutPaste, err
		}

		t, err := ParseColumns(string(b), false)

		return t, fileLayout(target, source), err
	}

	return Table{}, Layout{}, fmt.Errorf("unknown source: %s", source)
}

func fileLayout(target Target, source Source) Layout {
	switch target {
	case TargetClients:
		return LayoutClients
	case TargetSubClients:
		return LayoutSubClients
	}

	if source == SourceSpreadsheet {
		return LayoutSpreadsheet
	}

	return LayoutNamed
}
