// Package syntax checks that annotated Rust sources still parse.
package syntax

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

// Verifier parses Rust sources with tree-sitter.
// A Verifier is safe for concurrent use: every call uses its own parser.
type Verifier struct {
	lang *sitter.Language
}

// NewVerifier creates a Verifier for the Rust grammar.
func NewVerifier() *Verifier {
	return &Verifier{lang: sitter.NewLanguage(rust.Language())}
}

// HasErrors reports whether src contains syntax errors.
func (v *Verifier) HasErrors(src []byte) (bool, error) {
	_, found, err := v.FirstError(src)
	return found, err
}

// FirstError returns the 1-based line of the first syntax error in src.
func (v *Verifier) FirstError(src []byte) (int, bool, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(v.lang); err != nil {
		return 0, false, fmt.Errorf("loading rust grammar: %w", err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return 0, false, fmt.Errorf("parsing failed")
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return 0, false, nil
	}
	return int(firstError(root).StartPosition().Row) + 1, true, nil
}

// Regressed reports whether after has syntax errors although before had none.
// Sources that were already broken are never reported.
func (v *Verifier) Regressed(before, after []byte) (bool, error) {
	broken, err := v.HasErrors(before)
	if err != nil || broken {
		return false, err
	}
	return v.HasErrors(after)
}

// firstError descends into the first erroneous child of node.
func firstError(node *sitter.Node) *sitter.Node {
	for {
		if node.IsError() || node.IsMissing() {
			return node
		}
		var next *sitter.Node
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil && (child.HasError() || child.IsMissing()) {
				next = child
				break
			}
		}
		if next == nil {
			return node
		}
		node = next
	}
}
