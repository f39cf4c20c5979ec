package xmltree

import "strconv"

// AttrKind is the inferred type of an attribute value.
type AttrKind int

const (
	String AttrKind = iota
	Int
	Float
	Bool
)

func (k AttrKind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	default:
		return "string"
	}
}

// Attribute is a typed attribute value. Raw always holds the source text;
// exactly one of Int, Float or Bool is meaningful for non-string kinds.
type Attribute struct {
	Kind  AttrKind
	Raw   string
	Int   int64
	Float float64
	Bool  bool
}

// Value returns the attribute as string, int64, float64 or bool.
func (a Attribute) Value() any {
	switch a.Kind {
	case Int:
		return a.Int
	case Float:
		return a.Float
	case Bool:
		return a.Bool
	default:
		return a.Raw
	}
}

// Infer classifies raw attribute text. The boolean literals "1" and "0"
// take priority over integers. Numbers allow one leading sign and at most
// one dot; only ASCII digits count.
func Infer(raw string) Attribute {
	attr := Attribute{Kind: String, Raw: raw}

	switch raw {
	case "":
		return attr
	case "true", "1":
		attr.Kind = Bool
		attr.Bool = true
		return attr
	case "false", "0":
		attr.Kind = Bool
		return attr
	}

	start := 0
	if raw[0] == '+' || raw[0] == '-' {
		start = 1
	}

	hasDot := false
	digits := 0
	for i := start; i < len(raw); i++ {
		switch c := raw[i]; {
		case c == '.':
			if hasDot {
				return attr
			}
			hasDot = true
		case c >= '0' && c <= '9':
			digits++
		default:
			return attr
		}
	}
	if digits == 0 {
		return attr
	}

	if hasDot {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return attr
		}
		attr.Kind = Float
		attr.Float = f
		return attr
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// out of int64 range
		return attr
	}
	attr.Kind = Int
	attr.Int = n
	return attr
}
