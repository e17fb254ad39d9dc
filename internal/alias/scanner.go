package alias

import "strings"

// scanFunction walks the body of the function declared on the current line,
// aliasing the foreign calls correlated with its name and the enum variants
// matched against foreign constants.
func (s *state) scanFunction(clean string) {
	header := s.lines[s.pos]
	name := functionName(clean)
	closing := closingOf(header)
	ignored := s.rules.IgnoredFunction(name)

	s.anchor = s.pos
	if !ignored && s.trait != "" {
		if at, ok := s.findTraitMethod(s.trait, name); ok {
			s.anchor = at
		} else {
			s.report(false, "Cannot find `%s` in trait `%s`, putting doc aliases on implementation", name, s.trait)
		}
	}
	// A pending ignore directive covers every alias of this function body.
	defer func() {
		s.anchor = -1
		s.ignoreNext = false
	}()

	// fn name(&self) -> T { ffi::call(...) }
	if strings.HasSuffix(clean, "}") && strings.Count(clean, "{") == strings.Count(clean, "}") {
		if !ignored {
			s.aliasCall(name, clean)
		}
		s.pos++
		return
	}

	s.pos++
	for s.pos < len(s.lines) && s.lines[s.pos] != closing {
		line := s.lines[s.pos]
		if s.enum != "" {
			if arm, ok := parseMatchArm(strings.TrimSpace(line), s.rules.Namespace, s.enum); ok {
				s.aliasVariant(arm)
				s.pos++
				continue
			}
		}
		if !ignored {
			s.aliasCall(name, line)
		}
		s.pos++
	}
	s.pos++
}

// aliasCall adds the alias of the foreign symbol referenced on line to the
// current anchor if it is correlated with function fn.
func (s *state) aliasCall(fn, line string) {
	symbol, ok := s.rules.ExtractSymbol(line)
	if !ok || !s.rules.Correlated(fn, symbol) {
		return
	}
	s.annotate(s.anchor, symbol, fn)
}

// aliasVariant adds the foreign constant of arm above the matching variant of
// the current enum.
func (s *state) aliasVariant(arm matchArm) {
	at, ok := s.findVariant(s.enum, arm.Variant)
	if !ok {
		s.report(false, "Cannot find `%s` in enum `%s`, ignoring it...", arm.Variant, s.enum)
		return
	}
	s.annotate(at, arm.Foreign, s.enum+"::"+arm.Variant)
}

// findTraitMethod returns the line declaring method fn in the recorded trait.
func (s *state) findTraitMethod(trait, fn string) (int, bool) {
	start, ok := s.table.Lookup(KindTrait, trait)
	if !ok {
		return 0, false
	}
	closing := closingOf(s.lines[start])
	for i := start + 1; i < len(s.lines) && s.lines[i] != closing; i++ {
		if functionName(strings.TrimSpace(s.lines[i])) == fn {
			return i, true
		}
	}
	return 0, false
}

// findVariant returns the line declaring variant in the recorded enum.
func (s *state) findVariant(enum, variant string) (int, bool) {
	start, ok := s.table.Lookup(KindEnum, enum)
	if !ok {
		return 0, false
	}
	closing := closingOf(s.lines[start])
	for i := start + 1; i < len(s.lines) && s.lines[i] != closing; i++ {
		if variantName(strings.TrimSpace(s.lines[i])) == variant {
			return i, true
		}
	}
	return 0, false
}
