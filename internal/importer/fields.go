package importer

import (
	"strings"
)

// Field is a semantic column of an import.
type Field int

const (
	FieldDate Field = iota
	FieldClient
	FieldSubClient
	FieldProject
	FieldDescription
	FieldHours
	FieldBill
	FieldInvoiced
	FieldRate
	FieldPaid
)

func (f Field) String() string {
	switch f {
	case FieldDate:
		return "date"
	case FieldClient:
		return "client"
	case FieldSubClient:
		return "sub-client"
	case FieldProject:
		return "project"
	case FieldDescription:
		return "description"
	case FieldHours:
		return "hours"
	case FieldBill:
		return "bill"
	case FieldInvoiced:
		return "invoiced"
	case FieldRate:
		return "rate"
	case FieldPaid:
		return "paid"
	}

	return "unknown"
}

// fieldRule locates one field by header synonym. Synonyms are compared
// case-insensitively after trimming and collapsing whitespace.
type fieldRule struct {
	field    Field
	synonyms []string
	required bool
}

// workEntryRules is evaluated once per work entry import.
var workEntryRules = []fieldRule{
	{field: FieldDate, synonyms: []string{"date"}, required: true},
	{field: FieldClient, synonyms: []string{"client", "clients", "client name"}, required: true},
	{field: FieldSubClient, synonyms: []string{"sub client", "subclient", "sub-client", "sub client name"}, required: true},
	{field: FieldProject, synonyms: []string{"project"}},
	{field: FieldDescription, synonyms: []string{"description", "task", "task description", "notes"}},
	{field: FieldHours, synonyms: []string{"hours"}},
	{field: FieldBill, synonyms: []string{"bill"}},
	{field: FieldInvoiced, synonyms: []string{"invoiced"}},
	{field: FieldRate, synonyms: []string{"rate"}},
	{field: FieldPaid, synonyms: []string{"paid"}},
}

var clientRules = []fieldRule{
	{field: FieldClient, synonyms: []string{"client", "clients", "client name", "name"}, required: true},
	{field: FieldSubClient, synonyms: []string{"sub client", "subclient", "sub-client", "sub client name"}},
	{field: FieldRate, synonyms: []string{"rate", "default rate"}},
}

var subClientRules = []fieldRule{
	{field: FieldClient, synonyms: []string{"client", "clients", "client name"}, required: true},
	{field: FieldSubClient, synonyms: []string{"sub client", "subclient", "sub-client", "sub client name", "name"}, required: true},
}

// Layout gives the positional column of each field when a header does not name it.
type Layout struct {
	Name      string
	positions map[Field]int
}

var (
	// LayoutNamed resolves columns from the header row only.
	LayoutNamed = Layout{Name: "named"}

	// LayoutSpreadsheet is the time sheet export: B=date C=client D=sub-client E=project
	// F=notes H=hours I=bill J=invoiced K=rate L=paid.
	LayoutSpreadsheet = Layout{Name: "spreadsheet", positions: map[Field]int{
		FieldDate:        1,
		FieldClient:      2,
		FieldSubClient:   3,
		FieldProject:     4,
		FieldDescription: 5,
		FieldHours:       7,
		FieldBill:        8,
		FieldInvoiced:    9,
		FieldRate:        10,
		FieldPaid:        11,
	}}

	// LayoutPaste is a row copied from the time sheet starting at the date column.
	LayoutPaste = Layout{Name: "paste", positions: map[Field]int{
		FieldDate:        0,
		FieldClient:      1,
		FieldSubClient:   2,
		FieldProject:     3,
		FieldDescription: 4,
		FieldHours:       5,
		FieldBill:        6,
		FieldInvoiced:    7,
		FieldRate:        8,
		FieldPaid:        9,
	}}

	// LayoutClients is client, sub-client, rate.
	LayoutClients = Layout{Name: "clients", positions: map[Field]int{
		FieldClient:    0,
		FieldSubClient: 1,
		FieldRate:      2,
	}}

	// LayoutSubClients is client, sub-client.
	LayoutSubClients = Layout{Name: "sub-clients", positions: map[Field]int{
		FieldClient:    0,
		FieldSubClient: 1,
	}}
)

// columns maps each located field to its index in a row.
type columns map[Field]int

// resolveColumns applies rules to a header, falling back to the layout's positions.
func resolveColumns(rules []fieldRule, header []string, layout Layout) columns {
	byName := make(map[string]int, len(header))

	for i, h := range header {
		name := normalizeHeader(h)
		if _, dup := byName[name]; !dup && name != "" {
			byName[name] = i
		}
	}

	cols := make(columns, len(rules))

	for _, rule := range rules {
		if idx, ok := matchSynonym(rule.synonyms, byName); ok {
			cols[rule.field] = idx
			continue
		}

		if idx, ok := layout.positions[rule.field]; ok {
			cols[rule.field] = idx
		}
	}

	return cols
}

func matchSynonym(synonyms []string, byName map[string]int) (int, bool) {
	for _, s := range synonyms {
		if idx, ok := byName[s]; ok {
			return idx, true
		}
	}

	return 0, false
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// cell returns the value of field in row, or an empty cell when the field is absent.
func (c columns) cell(row []Cell, f Field) Cell {
	idx, ok := c[f]
	if !ok || idx < 0 || idx >= len(row) {
		return Cell{Kind: KindEmpty}
	}

	return row[idx]
}

// missing returns the first required field that has no value in row.
func missing(rules []fieldRule, cols columns, row []Cell) (Field, bool) {
	for _, rule := range rules {
		if rule.required && cols.cell(row, rule.field).IsEmpty() {
			return rule.field, true
		}
	}

	return 0, false
}
