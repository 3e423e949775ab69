package core

import "errors"

// Sentinel errors for programmatic checking. Only I/O failures abort a run;
// zero matches for a pass is a valid outcome, never an error.
var (
	ErrRead  = errors.New("reading source file")
	ErrWrite = errors.New("writing source file")
)

// Kind identifies a structural pattern the region matcher recognizes.
type Kind string

const (
	// KindTimerStart is the request-timing capture statement at the top of
	// a handler body.
	KindTimerStart Kind = "timer-start"
	// KindErrorResponse is a direct emission of a fixed status code with a
	// brace-delimited error payload.
	KindErrorResponse Kind = "error-response"
	// KindCatchRegion is a catch block that opens with the duration
	// computation.
	KindCatchRegion Kind = "catch-region"
	// KindEarlyExit is a "not configured / not initialized" guard that logs
	// a warning and emits an error response before the handler's try block.
	KindEarlyExit Kind = "early-exit"
	// KindRouteDecl is a route registration, used to locate the handler
	// enclosing an offset.
	KindRouteDecl Kind = "route-decl"
	// KindPlaceholder is a literal occurrence of the operation-name
	// placeholder token.
	KindPlaceholder Kind = "placeholder"
	// KindHelperCall is a call of the obsolete response helper with its
	// fixed argument order.
	KindHelperCall Kind = "helper-call"
)

// Field is a named sub-span captured inside a match. Offsets are absolute
// into the source the match was found in.
type Field struct {
	Start int
	End   int
	Text  string
}

// Match is one region of source text that matched a pattern kind.
type Match struct {
	Kind   Kind
	Start  int
	End    int
	Fields map[string]Field
}

// Field returns the text of a captured field, or "" when absent.
func (m Match) Field(name string) string {
	return m.Fields[name].Text
}

// HasField reports whether the named field was captured.
func (m Match) HasField(name string) bool {
	_, ok := m.Fields[name]
	return ok
}

// Diagnostic reports a single region the matcher skipped because its
// structure defeated depth-aware capture. Sibling regions are unaffected.
type Diagnostic struct {
	Kind    Kind
	Offset  int
	Message string
}

// Outcome is the per-pass transformation report.
type Outcome struct {
	Pass        string
	Matched     int
	Transformed int
	Skipped     int
	Notes       []string
}

// Config names the symbols the pipeline inserts. It is passed explicitly
// into the pipeline at construction; there is no ambient configuration.
type Config struct {
	ServiceType    string // diagnostics service class, e.g. "DebugService"
	ServiceVar     string // per-handler service handle
	RecordVar      string // debug-info record variable
	GateExpr       string // per-request flag gating record creation
	Placeholder    string // operation-name placeholder token
	Integration    string // integration tag recorded as metadata ("" = none)
	ImportPath     string // module specifier for the service import
	ObsoleteSymbol string // legacy helper stripped from import lists
}

// DefaultConfig returns the symbol names the instrumentation pattern uses.
func DefaultConfig() Config {
	return Config{
		ServiceType:    "DebugService",
		ServiceVar:     "debugService",
		RecordVar:      "debugInfo",
		GateExpr:       "req.debugMode",
		Placeholder:    "OPERATION_PLACEHOLDER",
		ImportPath:     "../../services/DebugService",
		ObsoleteSymbol: "sendDebugResponse",
	}
}
