package importer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind tells which variant a Cell holds.
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
	KindBool
)

// Cell is one raw tabular value. Number and Bool cells keep their original text in Raw.
type Cell struct {
	Kind   Kind
	Raw    string
	Number decimal.Decimal
	Bool   bool
}

var numberPattern = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)

// ParseCell types a raw value: blank is empty, true/false is a bool, a plain
// decimal number is a number and anything else is text.
func ParseCell(raw string) Cell {
	s := strings.TrimSpace(raw)

	switch {
	case s == "":
		return Cell{Kind: KindEmpty}
	case strings.EqualFold(s, "true"):
		return Cell{Kind: KindBool, Raw: s, Bool: true}
	case strings.EqualFold(s, "false"):
		return Cell{Kind: KindBool, Raw: s, Bool: false}
	case numberPattern.MatchString(s):
		if d, err := decimal.NewFromString(s); err == nil {
			return Cell{Kind: KindNumber, Raw: s, Number: d}
		}
	}

	return Cell{Kind: KindText, Raw: s}
}

func Text(s string) Cell {
	s = strings.TrimSpace(s)
	if s == "" {
		return Cell{Kind: KindEmpty}
	}

	return Cell{Kind: KindText, Raw: s}
}

func Number(d decimal.Decimal) Cell {
	return Cell{Kind: KindNumber, Raw: d.String(), Number: d}
}

func Bool(b bool) Cell {
	raw := "false"
	if b {
		raw = "true"
	}

	return Cell{Kind: KindBool, Raw: raw, Bool: b}
}

func (c Cell) IsEmpty() bool {
	return c.Kind == KindEmpty
}

func (c Cell) String() string {
	return c.Raw
}
