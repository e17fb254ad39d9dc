package alias

import (
	"regexp"
	"strings"
)

var (
	// Pattern: [pub[(crate)]] [const|async|unsafe|extern "C"]* fn <name>
	fnPattern = regexp.MustCompile(`^(?:pub(?:\([^)]*\))?\s+)?(?:(?:const|async|unsafe|default|extern(?:\s+"[^"]*")?)\s+)*fn\s+(\w+)`)

	// Pattern: [pub] [unsafe] trait <name>
	traitPattern = regexp.MustCompile(`^(?:pub(?:\([^)]*\))?\s+)?(?:unsafe\s+)?trait\s+(\w+)`)

	// Pattern: [pub] enum <name>
	enumPattern = regexp.MustCompile(`^(?:pub(?:\([^)]*\))?\s+)?enum\s+(\w+)`)

	// Pattern: [pub] struct <name>
	structPattern = regexp.MustCompile(`^(?:pub(?:\([^)]*\))?\s+)?struct\s+(\w+)`)

	// Pattern: pub const <NAME>: (but not pub const fn)
	pubConstPattern = regexp.MustCompile(`^pub(?:\([^)]*\))?\s+const\s+(\w+)\s*:`)
)

// indentation returns the leading whitespace of line.
func indentation(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// closingOf returns the line closing the block opened by header.
func closingOf(header string) string {
	return indentation(header) + "}"
}

// isDirective reports whether clean is an in-source command comment.
func isDirective(clean, prefix string) bool {
	return prefix != "" && strings.HasPrefix(clean, prefix)
}

// functionName returns the name declared by a function header, or "" when
// clean is not one.
func functionName(clean string) string {
	if m := fnPattern.FindStringSubmatch(clean); m != nil {
		return m[1]
	}
	return ""
}

// isFunctionDecl reports whether the function whose header starts at lines[pos]
// is a bodiless declaration (a trait method signature), which may span lines.
func isFunctionDecl(lines []string, pos int) bool {
	closing := closingOf(lines[pos])
	for i := pos; i < len(lines); i++ {
		if i > pos && lines[i] == closing {
			return false
		}
		clean := strings.TrimSpace(lines[i])
		if strings.Contains(clean, "{") {
			return false
		}
		if strings.HasSuffix(clean, ";") {
			return true
		}
	}
	return false
}

// implHeader is a parsed "impl[<...>] Trait[<...>] for Type" line.
type implHeader struct {
	// Trait is the trait name without path nor generic arguments.
	Trait string
	// TraitArgs is the trait as written, generic arguments included.
	TraitArgs string
	// Target is the implementing type as written, without generic arguments.
	Target string
}

// TargetName is the implementing type without its path.
func (h implHeader) TargetName() string {
	return lastSegment(h.Target)
}

// parseImplHeader parses a capability-implementation header. The generic
// parameters of the impl itself are skipped by counting angle brackets.
func parseImplHeader(clean string) (implHeader, bool) {
	if !strings.HasPrefix(clean, "impl ") && !strings.HasPrefix(clean, "impl<") {
		return implHeader{}, false
	}
	rest := clean[len("impl"):]
	if strings.HasPrefix(rest, "<") {
		depth := 0
		i := 0
		for ; i < len(rest); i++ {
			if rest[i] == '<' {
				depth++
			} else if rest[i] == '>' {
				depth--
				if depth == 0 {
					i++
					break
				}
			}
		}
		rest = rest[i:]
	}
	trait, target, ok := strings.Cut(strings.TrimSpace(rest), " for ")
	if !ok {
		return implHeader{}, false
	}
	name, _, _ := strings.Cut(trait, "<")
	fields := strings.Fields(target)
	if len(fields) == 0 {
		return implHeader{}, false
	}
	ty, _, _ := strings.Cut(fields[0], "<")
	ty = strings.TrimSuffix(ty, "{")
	return implHeader{
		Trait:     lastSegment(strings.TrimSpace(name)),
		TraitArgs: strings.TrimSpace(trait),
		Target:    ty,
	}, true
}

// genericArg returns the first generic argument of the named trait in args,
// e.g. "Foo" for ("From", "From<Foo>").
func genericArg(args, trait string) string {
	_, rest, ok := strings.Cut(args, trait+"<")
	if !ok {
		return ""
	}
	arg, _, _ := strings.Cut(rest, ">")
	arg, _, _ = strings.Cut(arg, ",")
	return lastSegment(strings.TrimSpace(arg))
}

func parseTraitHeader(clean string) (string, bool) {
	if m := traitPattern.FindStringSubmatch(clean); m != nil {
		return m[1], true
	}
	return "", false
}

func parseEnumHeader(clean string) (string, bool) {
	if m := enumPattern.FindStringSubmatch(clean); m != nil {
		return m[1], true
	}
	return "", false
}

// structHeader is a parsed record declaration.
type structHeader struct {
	Name string
	// Wrapped is the foreign type of a newtype such as "pub struct Quark(ffi::GQuark);".
	Wrapped string
	// Bodyless is set for unit and tuple structs, which have no field block.
	Bodyless bool
}

func parseStructHeader(clean, ns string) (structHeader, bool) {
	m := structPattern.FindStringSubmatch(clean)
	if m == nil {
		return structHeader{}, false
	}
	h := structHeader{Name: m[1], Bodyless: strings.HasSuffix(clean, ";")}
	if strings.HasSuffix(clean, ");") && strings.Contains(clean, ns) {
		h.Wrapped = identAfter(clean, ns)
	}
	return h, true
}

// parseBitfieldConst returns the foreign symbol initializing a constant declared
// inside a bitfield block, e.g. "const READABLE = ffi::G_PARAM_READABLE as _;".
func parseBitfieldConst(clean, ns string) (string, bool) {
	if !strings.HasPrefix(clean, "const ") {
		return "", false
	}
	i := strings.LastIndex(clean, " = ")
	if i < 0 {
		return "", false
	}
	value, _, _ := strings.Cut(clean[i+3:], ";")
	if sym := identAfter(value, ns); sym != "" {
		return sym, true
	}
	return "", false
}

func parsePubConst(clean string) (string, bool) {
	if m := pubConstPattern.FindStringSubmatch(clean); m != nil {
		return m[1], true
	}
	return "", false
}

// matchArm is one "left => right" arm of a match converting enum variants.
type matchArm struct {
	Foreign string
	Variant string
}

// parseMatchArm recognises arms mapping a foreign constant to a variant of
// enum, in either direction:
//
//	ffi::GTK_ALIGN_FILL => Self::Fill,
//	Self::Fill => ffi::GTK_ALIGN_FILL,
func parseMatchArm(clean, ns, enum string) (matchArm, bool) {
	left, right, ok := strings.Cut(clean, " => ")
	if !ok {
		return matchArm{}, false
	}
	left = strings.TrimSpace(left)
	right = strings.TrimSpace(right)
	leftForeign := strings.HasPrefix(left, ns)
	rightForeign := strings.Contains(right, ns)
	var arm matchArm
	switch {
	case leftForeign && !strings.Contains(right, ns):
		arm = matchArm{Foreign: identAfter(left, ns), Variant: localVariant(right, enum)}
	case rightForeign && !strings.Contains(left, ns):
		arm = matchArm{Foreign: identAfter(right, ns), Variant: localVariant(left, enum)}
	default:
		return matchArm{}, false
	}
	if arm.Foreign == "" || arm.Variant == "" {
		return matchArm{}, false
	}
	return arm, true
}

// localVariant returns X for "Self::X..." or "<enum>::X...".
func localVariant(side, enum string) string {
	for _, prefix := range []string{"Self::", enum + "::"} {
		if strings.HasPrefix(side, prefix) {
			return identAfter(side, prefix)
		}
	}
	return ""
}

// variantName returns the variant declared by an enum body line such as
// "Fill," or "Other(i32),", or "" if clean does not declare one.
func variantName(clean string) string {
	if !strings.HasSuffix(clean, ",") || strings.HasPrefix(clean, "//") || strings.HasPrefix(clean, "#[") {
		return ""
	}
	head := strings.TrimSuffix(clean, ",")
	if i := strings.IndexAny(head, "({="); i >= 0 {
		head = head[:i]
	}
	return strings.TrimSpace(head)
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "::"); i >= 0 {
		return path[i+2:]
	}
	return path
}
