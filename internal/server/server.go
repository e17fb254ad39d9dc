package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/dejo1307/docalias/internal/checks"
	"github.com/dejo1307/docalias/internal/config"
	"github.com/dejo1307/docalias/internal/engine"
	"github.com/dejo1307/docalias/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const maxResults = 100

// Server wraps the MCP server and connects it to the annotation engine.
type Server struct {
	mcp      *mcp.Server
	cfg      *config.Config
	checks   *checks.Registry
	verifier engine.Verifier

	// mu serializes annotation runs, which rewrite files and reset the store.
	mu    sync.Mutex
	store *report.Store
}

// New creates a new MCP server. verifier may be nil.
func New(cfg *config.Config, reg *checks.Registry, verifier engine.Verifier) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		checks:   reg,
		verifier: verifier,
		store:    report.NewStore(),
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "docalias",
		Version: "0.1.0",
	}, nil)

	s.mcp = mcpServer
	s.registerResources()
	s.registerTools()

	return s, nil
}

// Store returns the records of the last annotation run.
func (s *Server) Store() *report.Store {
	return s.store
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	log.Println("[server] starting MCP server on stdio transport")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// registerResources adds the MCP resource exposing the last run's records.
func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		URI:         "docalias://report",
		Name:        "Doc Alias Report",
		Description: "Aliases and diagnostics recorded by the last annotation run, in JSONL format",
		MIMEType:    "application/jsonl",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		var buf bytes.Buffer
		if err := s.store.WriteJSONL(&buf); err != nil {
			return nil, fmt.Errorf("encoding report: %w", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: req.Params.URI, Text: buf.String(), MIMEType: "application/jsonl"},
			},
		}, nil
	})
}

// annotateArgs are the arguments for the annotate tool.
type annotateArgs struct {
	Path   string `json:"path,omitempty" jsonschema:"File or folder to annotate. Defaults to the configured paths."`
	DryRun bool   `json:"dry_run,omitempty" jsonschema:"Compute the aliases without rewriting any file"`
}

// checkArgs are the arguments for the check tool.
type checkArgs struct {
	Folder string   `json:"folder" jsonschema:"required,Crate folder containing src/ and the gir file"`
	Checks []string `json:"checks,omitempty" jsonschema:"Checks to run: license, gir-files or manual-traits. Defaults to all enabled checks."`
}

// queryAliasesArgs are the arguments for the query_aliases tool.
type queryAliasesArgs struct {
	Kind   string `json:"kind,omitempty" jsonschema:"Filter by record kind: alias, diagnostic or error"`
	File   string `json:"file,omitempty" jsonschema:"Filter by file path"`
	Symbol string `json:"symbol,omitempty" jsonschema:"Filter by foreign symbol using substring match"`
}

// showAliasArgs are the arguments for the show_alias tool.
type showAliasArgs struct {
	Symbol       string `json:"symbol" jsonschema:"required,Foreign symbol to look up (substring match)"`
	ContextLines int    `json:"context_lines,omitempty" jsonschema:"Number of source lines to show around the alias (default 10)"`
}

// registerTools adds MCP tools for annotation, checks and record querying.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "annotate",
		Description: "Insert missing #[doc(alias = \"...\")] attributes into Rust bindings, using the foreign symbols each item wraps.",
	}, s.annotate)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "check",
		Description: "Run the repository hygiene checks (license headers, gir file indentation, manual traits) on a crate folder.",
	}, s.check)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query_aliases",
		Description: "Query the aliases and diagnostics recorded by the last annotate run. Returns matching records as JSON.",
	}, s.queryAliases)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "show_alias",
		Description: "Show the source around the aliases recorded for a foreign symbol.",
	}, s.showAlias)
}

func (s *Server) annotate(ctx context.Context, req *mcp.CallToolRequest, args annotateArgs) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// stdout carries JSON-RPC: progress goes into the tool result.
	var progress bytes.Buffer
	opts := []engine.Option{
		engine.WithOutput(&progress),
		engine.WithDryRun(args.DryRun),
		engine.WithStore(s.store),
	}
	if s.verifier != nil && s.cfg.VerifySyntax {
		opts = append(opts, engine.WithVerifier(s.verifier))
	}
	eng, err := engine.New(s.cfg, opts...)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid configuration: %v", err)), nil, nil
	}

	var paths []string
	if args.Path != "" {
		paths = []string{args.Path}
	}
	sum, err := eng.Run(ctx, paths)
	if err != nil {
		return errorResult(fmt.Sprintf("annotation failed: %v", err)), nil, nil
	}
	if err := eng.WriteReport(""); err != nil {
		log.Printf("[server] warning: failed to write report: %v", err)
	}

	changed, added := "Changed", "Aliases added"
	if sum.DryRun {
		changed, added = "Would change", "Aliases to add"
	}
	text := fmt.Sprintf(
		"%s\n"+
			"- Files: %d\n"+
			"- %s: %d\n"+
			"- %s: %d\n"+
			"- Errors: %d\n"+
			"- Aborted: %v\n"+
			"- Dry run: %v\n"+
			"- Duration: %s\n\n"+
			"Use query_aliases or the docalias://report resource to inspect the records.",
		progress.String(),
		sum.Files, changed, sum.Changed, added, sum.Added, sum.Errors, sum.Aborted, sum.DryRun, sum.Duration,
	)
	return textResult(text, sum.Errors > 0), nil, nil
}

func (s *Server) check(ctx context.Context, req *mcp.CallToolRequest, args checkArgs) (*mcp.CallToolResult, any, error) {
	if args.Folder == "" {
		return errorResult("folder is required"), nil, nil
	}
	names := args.Checks
	if len(names) == 0 {
		for _, c := range s.checks.All() {
			if s.cfg.IsCheckEnabled(c.Name()) {
				names = append(names, c.Name())
			}
		}
	}
	if len(names) == 0 {
		return errorResult("no check enabled"), nil, nil
	}

	var out bytes.Buffer
	ok, err := s.checks.Run(ctx, []string{args.Folder}, names, &out)
	if err != nil {
		return errorResult(fmt.Sprintf("checks failed to run: %v", err)), nil, nil
	}
	if ok {
		out.WriteString("success!\n")
	} else {
		out.WriteString("failed\n")
	}
	return textResult(out.String(), !ok), nil, nil
}

func (s *Server) queryAliases(ctx context.Context, req *mcp.CallToolRequest, args queryAliasesArgs) (*mcp.CallToolResult, any, error) {
	if s.store.Count() == 0 {
		return errorResult("No records available. Run annotate first."), nil, nil
	}

	results := s.store.Query(args.Kind, args.File, args.Symbol)
	total := len(results)
	if total > maxResults {
		results = results[:maxResults]
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("failed to marshal results: %v", err)), nil, nil
	}

	text := string(data)
	if total > maxResults {
		text += fmt.Sprintf("\n\n... (showing %d of %d results, refine your query)", maxResults, total)
	}
	return textResult(text, false), nil, nil
}

func (s *Server) showAlias(ctx context.Context, req *mcp.CallToolRequest, args showAliasArgs) (*mcp.CallToolResult, any, error) {
	if args.Symbol == "" {
		return errorResult("symbol is required"), nil, nil
	}
	results := s.store.Query(report.KindAlias, "", args.Symbol)
	if len(results) == 0 {
		return errorResult(fmt.Sprintf("No alias matching %q", args.Symbol)), nil, nil
	}

	contextLines := args.ContextLines
	if contextLines <= 0 {
		contextLines = 10
	}
	if len(results) > 5 {
		results = results[:5]
	}

	var sb strings.Builder
	for i, rec := range results {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&sb, "### %s on %s\n", rec.Symbol, rec.Target)
		fmt.Fprintf(&sb, "File: %s  Line: %d\n\n", rec.File, rec.Line)

		source, err := readSourceWindow(rec.File, rec.Line, contextLines)
		if err != nil {
			fmt.Fprintf(&sb, "_Could not read source: %v_\n", err)
			continue
		}
		fmt.Fprintf(&sb, "```rust\n%s```\n", source)

		var notes []report.Record
		for _, r := range s.store.ByFile(rec.File) {
			if r.Kind != report.KindAlias {
				notes = append(notes, r)
			}
		}
		if len(notes) > 0 {
			sb.WriteString("\nDiagnostics in this file:\n")
			for _, r := range notes {
				fmt.Fprintf(&sb, "- line %d (%s): %s\n", r.Line, r.Kind, r.Message)
			}
		}
	}
	return textResult(sb.String(), false), nil, nil
}

// readSourceWindow reads lines from a file centered around the given line number.
func readSourceWindow(path string, centerLine, contextLines int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	lines := strings.Split(string(data), "\n")
	startLine := max(centerLine-contextLines/2, 1)
	endLine := min(centerLine+contextLines/2, len(lines))

	var sb strings.Builder
	for i := startLine; i <= endLine; i++ {
		fmt.Fprintf(&sb, "%4d│ %s\n", i, lines[i-1])
	}
	return sb.String(), nil
}

func textResult(text string, isErr bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: isErr,
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return textResult(msg, true)
}
