package alias

import (
	"fmt"
	"slices"
	"strings"
)

// Insertion records one alias added to a file.
type Insertion struct {
	Symbol string
	// Line is the 1-based line of the inserted annotation in the final content.
	Line int
	// Target is the declaration the alias documents (function, type or variant).
	Target string
}

// Diagnostic is a message produced while processing a file.
type Diagnostic struct {
	// Line is the 1-based line the message refers to.
	Line    int
	Message string
	// Error is set for diagnostics that count as file errors.
	Error bool
}

// Result is the outcome of processing one file.
type Result struct {
	// Lines is the (possibly annotated) content.
	Lines []string
	// Added is the number of inserted lines.
	Added       int
	Errors      int
	Insertions  []Insertion
	Diagnostics []Diagnostic
	// Stopped is set when an unknown directive interrupted the pass.
	Stopped bool
}

// Annotator inserts doc aliases into source files.
type Annotator struct {
	rules Rules
}

// New creates an Annotator applying rules.
func New(rules Rules) *Annotator {
	return &Annotator{rules: rules}
}

// Process runs the annotation pass over lines, which may be modified in place.
// path is only used in diagnostics.
func (a *Annotator) Process(path string, lines []string) Result {
	original := len(lines)
	s := &state{
		path:   path,
		rules:  &a.rules,
		lines:  lines,
		table:  NewTable(),
		anchor: -1,
	}
	s.run()
	return Result{
		Lines:       s.lines,
		Added:       len(s.lines) - original,
		Errors:      s.errors,
		Insertions:  s.insertions,
		Diagnostics: s.diagnostics,
		Stopped:     s.stopped,
	}
}

// state is the traversal cursor of one file pass.
type state struct {
	path  string
	rules *Rules
	lines []string
	table *Table

	pos int
	// trait is the extension trait implemented by the current impl block.
	trait string
	// enum is the enum implemented by the current impl block.
	enum string
	// implClose is the line closing the current impl block.
	implClose string
	// structClose is the line closing the struct or bitfield being read.
	structClose string
	// anchor is where function aliases go, -1 outside of a function.
	anchor int
	// ignoreNext suppresses the next annotation target.
	ignoreNext bool

	errors      int
	stopped     bool
	insertions  []Insertion
	diagnostics []Diagnostic
}

func (s *state) run() {
	for s.pos < len(s.lines) && !s.stopped {
		clean := strings.TrimLeft(s.lines[s.pos], " \t")
		switch {
		case isDirective(clean, s.rules.DirectivePrefix):
			s.directive(clean)
			s.pos++
		case functionName(clean) != "":
			if isFunctionDecl(s.lines, s.pos) {
				s.pos++
				continue
			}
			s.scanFunction(clean)
		default:
			s.track(clean)
		}
	}
}

func (s *state) directive(clean string) {
	command := strings.TrimSpace(strings.TrimPrefix(clean, s.rules.DirectivePrefix))
	if command == s.rules.IgnoreDirective {
		s.ignoreNext = true
		return
	}
	s.errors++
	s.stopped = true
	s.report(true, "[%s:%d] Found unknown `checker` command: `%s`", s.path, s.pos+1, strings.TrimSpace(strings.TrimPrefix(clean, "//")))
}

func (s *state) report(isErr bool, format string, args ...any) {
	s.diagnostics = append(s.diagnostics, Diagnostic{
		Line:    s.pos + 1,
		Message: fmt.Sprintf(format, args...),
		Error:   isErr,
	})
}

// annotate inserts the alias of symbol above line at, unless suppressed or
// already present. It reports whether a line was inserted.
func (s *state) annotate(at int, symbol, target string) bool {
	if s.ignoreNext || !s.rules.ValidSymbol(symbol) {
		return false
	}
	alias := Format(symbol)
	if !NeedsAlias(s.lines, at, alias) {
		return false
	}
	s.insert(at, alias)
	s.insertions = append(s.insertions, Insertion{Symbol: symbol, Line: at + 1, Target: target})
	return true
}

// annotateDecl is annotate for declaration-level targets, which consume a
// pending ignore directive.
func (s *state) annotateDecl(at int, symbol, target string) {
	s.annotate(at, symbol, target)
	s.ignoreNext = false
}

// insert adds alias above line at with the same indentation, and moves every
// recorded position at or after at.
func (s *state) insert(at int, alias string) {
	s.lines = slices.Insert(s.lines, at, indentation(s.lines[at])+alias)
	s.table.Shift(at, 1)
	for i := range s.insertions {
		if s.insertions[i].Line-1 >= at {
			s.insertions[i].Line++
		}
	}
	if s.pos >= at {
		s.pos++
	}
	if s.anchor >= at {
		s.anchor++
	}
}

// NeedsAlias reports whether alias is missing from the attributes and comments
// directly above line anchor.
func NeedsAlias(lines []string, anchor int, alias string) bool {
	for i := anchor - 1; i >= 0; i-- {
		clean := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(clean, "#[") && !strings.HasPrefix(clean, "//") {
			return true
		}
		if clean == alias {
			return false
		}
	}
	return true
}
