package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dejo1307/docalias/internal/checks"
	"github.com/dejo1307/docalias/internal/checks/license"
	"github.com/dejo1307/docalias/internal/config"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const header = "// Take a look at the license at the top of the repository in the LICENSE file."

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Checks.Enabled = []string{"license"}
	reg := checks.NewRegistry()
	reg.Register(license.New(header))
	s, err := New(cfg, reg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// crate writes a minimal crate and returns its folder.
func crate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"quark.rs":  header + "\n\npub struct Quark(ffi::GQuark);\n",
		"widget.rs": "impl Widget {\n    pub fn show(&self) {\n        unsafe { ffi::gtk_widget_show(self.0) }\n    }\n}\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(src, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func TestAnnotate_ThenQuery(t *testing.T) {
	s := newTestServer(t)
	dir := crate(t)
	ctx := context.Background()

	res, _, err := s.annotate(ctx, nil, annotateArgs{Path: filepath.Join(dir, "src")})
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	text := resultText(t, res)
	if res.IsError {
		t.Fatalf("annotate reported an error:\n%s", text)
	}
	for _, want := range []string{"Added 2 doc aliases.", "- Aliases added: 2"} {
		if !strings.Contains(text, want) {
			t.Errorf("annotate output misses %q:\n%s", want, text)
		}
	}

	res, _, _ = s.queryAliases(ctx, nil, queryAliasesArgs{Symbol: "widget"})
	text = resultText(t, res)
	if !strings.Contains(text, `"symbol": "gtk_widget_show"`) || strings.Contains(text, "GQuark") {
		t.Errorf("query_aliases returned:\n%s", text)
	}

	res, _, _ = s.showAlias(ctx, nil, showAliasArgs{Symbol: "GQuark"})
	text = resultText(t, res)
	if !strings.Contains(text, `#[doc(alias = "GQuark")]`) {
		t.Errorf("show_alias returned:\n%s", text)
	}
}

func TestAnnotate_DryRun(t *testing.T) {
	s := newTestServer(t)
	dir := crate(t)
	path := filepath.Join(dir, "src", "quark.rs")
	before, _ := os.ReadFile(path)

	res, _, _ := s.annotate(context.Background(), nil, annotateArgs{Path: path, DryRun: true})
	if res.IsError {
		t.Fatalf("annotate failed:\n%s", resultText(t, res))
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Error("dry run modified the file")
	}
	if s.Store().Count() != 1 {
		t.Errorf("store holds %d records, want 1", s.Store().Count())
	}
	if text := resultText(t, res); !strings.Contains(text, "- Would change: 1") || !strings.Contains(text, "- Aliases to add: 1") {
		t.Errorf("dry run summary:\n%s", text)
	}
}

func TestShowAlias_ListsFileDiagnostics(t *testing.T) {
	s := newTestServer(t)
	path := filepath.Join(t.TempDir(), "atom.rs")
	src := `pub enum Atom {
    None,
}

impl IntoGlib for Atom {
    fn into_glib(self) -> i32 {
        match self {
            Self::None => ffi::GDK_NONE,
            Self::Missing => ffi::GDK_MISSING,
        }
    }
}
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if res, _, _ := s.annotate(ctx, nil, annotateArgs{Path: path}); res.IsError {
		t.Fatalf("annotate failed:\n%s", resultText(t, res))
	}

	res, _, _ := s.showAlias(ctx, nil, showAliasArgs{Symbol: "GDK_NONE", ContextLines: 4})
	text := resultText(t, res)
	for _, want := range []string{
		`#[doc(alias = "GDK_NONE")]`,
		"Diagnostics in this file:",
		"(diagnostic): Cannot find `Missing` in enum `Atom`",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("show_alias output misses %q:\n%s", want, text)
		}
	}
}

func TestQueryAliases_Empty(t *testing.T) {
	s := newTestServer(t)
	res, _, _ := s.queryAliases(context.Background(), nil, queryAliasesArgs{})
	if !res.IsError {
		t.Error("expected an error result before any run")
	}
}

func TestCheck(t *testing.T) {
	s := newTestServer(t)
	dir := crate(t)
	ctx := context.Background()

	res, _, _ := s.check(ctx, nil, checkArgs{Folder: dir})
	text := resultText(t, res)
	if !res.IsError || !strings.Contains(text, "xx> Missing header in `") || !strings.HasSuffix(text, "failed\n") {
		t.Errorf("check on widget.rs without header returned:\n%s", text)
	}

	widget := filepath.Join(dir, "src", "widget.rs")
	data, _ := os.ReadFile(widget)
	if err := os.WriteFile(widget, append([]byte(header+"\n\n"), data...), 0o644); err != nil {
		t.Fatal(err)
	}
	res, _, _ = s.check(ctx, nil, checkArgs{Folder: dir, Checks: []string{"license"}})
	if text := resultText(t, res); res.IsError || !strings.HasSuffix(text, "success!\n") {
		t.Errorf("check returned:\n%s", text)
	}

	res, _, _ = s.check(ctx, nil, checkArgs{Folder: dir, Checks: []string{"unknown"}})
	if !res.IsError {
		t.Error("expected an error for an unknown check")
	}
	res, _, _ = s.check(ctx, nil, checkArgs{})
	if !res.IsError {
		t.Error("expected an error without folder")
	}
}

func TestReadSourceWindow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.rs")
	var lines []string
	for i := 1; i <= 10; i++ {
		lines = append(lines, "line "+string(rune('0'+i)))
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		centerLine   int
		contextLines int
		wantStart    int
		wantEnd      int
	}{
		{"center middle", 5, 6, 2, 8},
		{"center at start", 1, 10, 1, 6},
		{"center at end", 10, 10, 5, 10},
		{"context larger than file", 5, 20, 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readSourceWindow(path, tt.centerLine, tt.contextLines)
			if err != nil {
				t.Fatalf("readSourceWindow: %v", err)
			}
			outputLines := strings.Split(strings.TrimRight(got, "\n"), "\n")
			if !strings.Contains(outputLines[0], "│") {
				t.Fatalf("expected line number format with │, got: %s", outputLines[0])
			}
			if want := tt.wantEnd - tt.wantStart + 1; len(outputLines) != want {
				t.Errorf("got %d output lines, want %d (lines %d-%d)",
					len(outputLines), want, tt.wantStart, tt.wantEnd)
			}
		})
	}
}
