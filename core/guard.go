package core

import "strings"

// Shape identifies an already-inserted instrumentation form the idempotency
// guard can fingerprint. Passes whose matched region stays matchable after
// the splice consult the guard first so repeated runs never duplicate an
// insertion; passes whose rewrite destroys its own match pattern need no
// fingerprint.
type Shape string

const (
	ShapeRecordDecl     Shape = "record-decl"     // debug-info declaration after the timer start
	ShapeCatchRecording Shape = "catch-recording" // duration/error recording in a catch block
	ShapeWarnRecording  Shape = "warn-recording"  // warning recording in an early-exit guard
	ShapeServiceImport  Shape = "service-import"  // file-level service import
)

// Guard answers "is the target shape already present?" with cheap local text
// scans. A false negative here means a duplicate insertion on the next run,
// which is a correctness bug, so fingerprints are chosen to survive
// reformatting of everything except the inserted lines themselves.
type Guard struct {
	cfg Config
}

// NewGuard returns a guard for the configured symbol names.
func NewGuard(cfg Config) *Guard {
	return &Guard{cfg: cfg}
}

// AlreadyPresent reports whether the region already carries the shape. The
// caller bounds region to the relevant local window; the guard never scans
// beyond what it is given.
func (g *Guard) AlreadyPresent(shape Shape, region string) bool {
	switch shape {
	case ShapeRecordDecl:
		return strings.Contains(region, "const "+g.cfg.RecordVar+" =")
	case ShapeCatchRecording:
		return strings.Contains(region, g.cfg.RecordVar+".duration = duration")
	case ShapeWarnRecording:
		return strings.Contains(region, g.cfg.ServiceVar+".addWarning(")
	case ShapeServiceImport:
		return strings.Contains(region, "import { "+g.cfg.ServiceType+" }")
	}
	return false
}

// HandlerWindow bounds a fingerprint scan to the handler enclosing at: the
// span from at up to the next route declaration, or end of file.
func (g *Guard) HandlerWindow(src string, at int) string {
	if at >= len(src) {
		return ""
	}
	rest := src[at:]
	if loc := reRouteDecl.FindStringIndex(rest); loc != nil {
		return rest[:loc[0]]
	}
	return rest
}
