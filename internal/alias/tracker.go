package alias

import "strings"

// track classifies a line outside of any function body and updates the
// enclosing context. It always advances the cursor.
func (s *state) track(clean string) {
	line := s.lines[s.pos]

	if s.structClose != "" && line == s.structClose {
		s.structClose = ""
	}
	if line == "}" || (s.implClose != "" && line == s.implClose) {
		s.trait, s.enum, s.implClose = "", "", ""
		s.pos++
		return
	}

	if h, ok := parseImplHeader(clean); ok {
		closing := closingOf(line)
		if strings.HasSuffix(clean, "}") {
			closing = ""
		}
		s.enterImpl(h, closing)
		s.pos++
		return
	}
	if name, ok := parseTraitHeader(clean); ok {
		// Extension traits are indexed and skipped: their methods get the
		// aliases found in the implementations.
		if s.rules.IsExtension(name) {
			s.table.Record(KindTrait, name, s.pos)
			s.skipBody(clean)
			return
		}
		s.pos++
		return
	}
	if name, ok := parseEnumHeader(clean); ok {
		s.table.Record(KindEnum, name, s.pos)
		s.skipBody(clean)
		return
	}
	if h, ok := parseStructHeader(clean, s.rules.Namespace); ok {
		s.table.Record(KindStruct, h.Name, s.pos)
		switch {
		case h.Wrapped != "":
			s.annotateDecl(s.pos, h.Wrapped, h.Name)
		case !h.Bodyless && !strings.HasSuffix(clean, "}"):
			s.structClose = closingOf(line)
		}
		s.pos++
		return
	}
	if s.structClose != "" {
		if symbol, ok := parseBitfieldConst(clean, s.rules.Namespace); ok {
			s.annotateDecl(s.pos, symbol, symbol)
			s.pos++
			return
		}
	}
	if name, ok := parsePubConst(clean); ok {
		s.trackConst(name)
		return
	}
	s.pos++
}

// enterImpl updates the context for an impl block closed by the line closing
// and propagates aliases carried by conversion traits onto the converted
// type's declaration.
func (s *state) enterImpl(h implHeader, closing string) {
	ns := s.rules.Namespace
	s.trait, s.enum, s.implClose = "", "", closing
	if s.rules.IsExtension(h.Trait) {
		s.trait = h.Trait
	} else if s.table.Has(KindEnum, h.TargetName()) {
		s.enum = h.TargetName()
	}

	switch {
	// impl From<PdfMetadata> for ffi::cairo_pdf_metadata_t
	case h.Trait == "From" && strings.HasPrefix(h.Target, ns):
		source := genericArg(h.TraitArgs, "From")
		if at, ok := s.table.LookupType(source); ok {
			s.annotateDecl(at, strings.TrimPrefix(h.Target, ns), source)
		}
	// impl FromGlib<ffi::GdkWindowState> for WindowState
	case strings.HasPrefix(h.Trait, "FromGlib") && strings.Contains(h.TraitArgs, ns):
		if at, ok := s.table.LookupType(h.TargetName()); ok {
			s.annotateDecl(at, identAfter(h.TraitArgs, ns), h.TargetName())
		}
	}
}

// skipBody moves the cursor to the line closing the declaration opened on the
// current line. Single-line declarations only advance the cursor.
func (s *state) skipBody(clean string) {
	if strings.HasSuffix(strings.TrimSpace(clean), "}") || strings.HasSuffix(strings.TrimSpace(clean), ";") {
		s.pos++
		return
	}
	closing := closingOf(s.lines[s.pos])
	for s.pos < len(s.lines) && s.lines[s.pos] != closing {
		s.pos++
	}
}

// trackConst handles "pub const NAME: T = ...;", which may span several lines.
func (s *state) trackConst(name string) {
	start := s.pos
	var whole strings.Builder
	for s.pos < len(s.lines) {
		whole.WriteString(strings.TrimSpace(s.lines[s.pos]))
		if strings.HasSuffix(strings.TrimSpace(s.lines[s.pos]), ";") {
			break
		}
		s.pos++
	}
	if symbol := identAfter(whole.String(), s.rules.Namespace); symbol != "" {
		s.annotateDecl(start, symbol, name)
	}
	s.pos++
}
