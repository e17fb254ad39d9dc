package report

// Record is one event of an annotation run, persisted as a JSONL line.
type Record struct {
	Kind    string `json:"kind"`              // "alias", "diagnostic" or "error"
	Symbol  string `json:"symbol,omitempty"`  // Foreign symbol, for aliases
	File    string `json:"file"`              // Source file as given to the run
	Line    int    `json:"line,omitempty"`    // 1-based line in the annotated file
	Target  string `json:"target,omitempty"`  // Declaration receiving the alias
	Message string `json:"message,omitempty"` // Human readable text, for diagnostics
}

// Record kind constants.
const (
	KindAlias      = "alias"
	KindDiagnostic = "diagnostic"
	KindError      = "error"
)
