package alias

import (
	"strings"
	"unicode"
)

// Rules holds the heuristics shared by every file of a run.
// A Rules value is read-only once a run has started.
type Rules struct {
	// Namespace is the marker preceding every foreign symbol (e.g. "ffi::").
	Namespace string
	// ExtensionSuffixes identify traits whose methods receive the aliases
	// instead of their implementations.
	ExtensionSuffixes []string

	// IgnoreSuffixes, IgnorePrefixes and IgnoreNames filter out symbols (and,
	// for prefixes and names, function names) that never deserve an alias.
	IgnoreSuffixes []string
	IgnorePrefixes []string
	IgnoreNames    []string

	// Renames maps a foreign symbol to the one that should be used as alias.
	Renames map[string]string
	// SkipPairs lists function/symbol combinations that must not be correlated.
	SkipPairs []SkipPair

	// DirectivePrefix starts an in-source command comment.
	DirectivePrefix string
	// IgnoreDirective is the only known command: skip the next annotation target.
	IgnoreDirective string
}

// SkipPair prevents Symbol from ever being aliased on function Function.
type SkipPair struct {
	Function string `yaml:"function" json:"function"`
	Symbol   string `yaml:"symbol" json:"symbol"`
}

// DefaultRules returns the rules used for gtk-rs style bindings.
func DefaultRules() Rules {
	return Rules{
		Namespace:         "ffi::",
		ExtensionSuffixes: []string{"Ext", "ExtManual"},
		IgnoreSuffixes: []string{
			"_get_reference_count",
			"_status",
			"_free",
			"_destroy",
			"_unref",
			"gdk_device_free_history",
		},
		IgnorePrefixes: []string{"into_glib", "to_glib", "from_glib", "from_raw", "to_raw"},
		IgnoreNames: []string{
			"deref",
			"deref_mut",
			"drop",
			"fmt",
			"clone",
			"to_value",
			"g_value_get_flags",
			"g_value_set_flags",
			"get_type",
		},
		Renames:         map[string]string{"gtk_init_check": "gtk_init"},
		SkipPairs:       []SkipPair{{Function: "init", Symbol: "gtk_is_initialized"}},
		DirectivePrefix: "// checker-",
		IgnoreDirective: "ignore-item",
	}
}

// Format returns the annotation line (without indentation) for symbol.
func Format(symbol string) string {
	return `#[doc(alias = "` + symbol + `")]`
}

// ExtractSymbol returns the foreign symbol referenced on line: everything between
// the first namespace marker and the next opening parenthesis, renamed if needed.
// The result is not validated; see ValidSymbol.
func (r *Rules) ExtractSymbol(line string) (string, bool) {
	_, rest, ok := strings.Cut(line, r.Namespace)
	if !ok {
		return "", false
	}
	if i := strings.IndexByte(rest, '('); i >= 0 {
		rest = rest[:i]
	}
	return r.rename(rest), true
}

func (r *Rules) rename(symbol string) string {
	if to, ok := r.Renames[symbol]; ok {
		return to
	}
	return symbol
}

// ValidSymbol reports whether name is an identifier that passes every ignore list.
func (r *Rules) ValidSymbol(name string) bool {
	if !isIdent(name) {
		return false
	}
	for _, suffix := range r.IgnoreSuffixes {
		if strings.HasSuffix(name, suffix) {
			return false
		}
	}
	return !r.IgnoredFunction(name)
}

// IgnoredFunction reports whether name is a boilerplate or conversion function.
func (r *Rules) IgnoredFunction(name string) bool {
	for _, prefix := range r.IgnorePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	for _, n := range r.IgnoreNames {
		if n == name {
			return true
		}
	}
	return false
}

// IsExtension reports whether trait ends with one of the extension suffixes.
func (r *Rules) IsExtension(trait string) bool {
	for _, suffix := range r.ExtensionSuffixes {
		if strings.HasSuffix(trait, suffix) {
			return true
		}
	}
	return false
}

// Correlated reports whether symbol should be aliased on function fn.
// The function name has to appear in the symbol name. This misses wrappers
// whose name differs from the C function; such misses are accepted.
func (r *Rules) Correlated(fn, symbol string) bool {
	for _, p := range r.SkipPairs {
		if p.Function == fn && p.Symbol == symbol {
			return false
		}
	}
	return fn != "" && strings.Contains(symbol, fn)
}

// identAfter returns the identifier following the first occurrence of marker in s.
func identAfter(s, marker string) string {
	_, rest, ok := strings.Cut(s, marker)
	if !ok {
		return ""
	}
	end := strings.IndexFunc(rest, func(c rune) bool { return !isIdentRune(c) })
	if end < 0 {
		return rest
	}
	return rest[:end]
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !isIdentRune(c) {
			return false
		}
	}
	return true
}

func isIdentRune(c rune) bool {
	return c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)
}
