package alias

// Kind identifies one of the declaration maps of a Table.
type Kind int

const (
	// KindTrait is an extension trait ("pub trait FooExt").
	KindTrait Kind = iota
	// KindEnum is an enum, whose variants receive aliases from match arms.
	KindEnum
	// KindStruct is a struct, including bitfields and newtypes.
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindTrait:
		return "trait"
	case KindEnum:
		return "enum"
	case KindStruct:
		return "struct"
	}
	return "unknown"
}

// Table maps declared names to the current line index of their header.
// Entries are kept valid by calling Shift on every insertion.
type Table struct {
	decls [3]map[string]int
}

// NewTable returns an empty declaration table.
func NewTable() *Table {
	t := &Table{}
	for i := range t.decls {
		t.decls[i] = make(map[string]int)
	}
	return t
}

// Record stores the header line of a declaration. A later declaration with the
// same name replaces the earlier one.
func (t *Table) Record(kind Kind, name string, line int) {
	t.decls[kind][name] = line
}

// Lookup returns the header line of the named declaration.
func (t *Table) Lookup(kind Kind, name string) (int, bool) {
	line, ok := t.decls[kind][name]
	return line, ok
}

// Has reports whether the named declaration is known.
func (t *Table) Has(kind Kind, name string) bool {
	_, ok := t.decls[kind][name]
	return ok
}

// LookupType returns the header line of a struct or, failing that, an enum.
func (t *Table) LookupType(name string) (int, bool) {
	if line, ok := t.Lookup(KindStruct, name); ok {
		return line, true
	}
	return t.Lookup(KindEnum, name)
}

// Shift moves every entry at or after line at down by n lines.
func (t *Table) Shift(at, n int) {
	if n == 0 {
		return
	}
	for _, m := range t.decls {
		for name, line := range m {
			if line >= at {
				m[name] = line + n
			}
		}
	}
}
