package core

import (
	"fmt"
	"sort"
	"strings"
)

// Pass is one idempotent text-to-text transformation targeting one region
// kind. Applying a pass to its own output changes nothing; passes see each
// other's insertions as ordinary text only.
type Pass interface {
	Name() string
	Apply(src string) (string, Outcome)
}

// edit is a planned splice. Edits are collected against the original
// offsets of one Apply call and spliced back-to-front so earlier offsets
// stay valid.
type edit struct {
	start, end int
	text       string
}

func applyEdits(src string, edits []edit) string {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
	for _, e := range edits {
		src = src[:e.start] + e.text + src[e.end:]
	}
	return src
}

// lineIndent returns the leading whitespace of the line containing at.
func lineIndent(src string, at int) string {
	if at > len(src) {
		at = len(src)
	}
	start := strings.LastIndexByte(src[:at], '\n') + 1
	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return src[start:end]
}

// initPass (P1) inserts the diagnostics handle and the conditional
// debug-info creation immediately after each recognized timer start. The
// operation name is left as a placeholder for the resolve pass.
type initPass struct {
	cfg     Config
	matcher *Matcher
	guard   *Guard
}

func (p *initPass) Name() string { return "init-diagnostics" }

func (p *initPass) Apply(src string) (string, Outcome) {
	out := Outcome{Pass: p.Name()}
	var edits []edit
	for _, m := range p.matcher.Find(KindTimerStart, src) {
		out.Matched++
		if p.guard.AlreadyPresent(ShapeRecordDecl, p.guard.HandlerWindow(src, m.End)) {
			out.Skipped++
			continue
		}
		edits = append(edits, edit{start: m.End, end: m.End, text: p.initBlock(lineIndent(src, m.Start))})
		out.Transformed++
	}
	return applyEdits(src, edits), out
}

func (p *initPass) initBlock(ind string) string {
	cfg := p.cfg
	var b strings.Builder
	fmt.Fprintf(&b, "\n%sconst %s = new %s();", ind, cfg.ServiceVar, cfg.ServiceType)
	fmt.Fprintf(&b, "\n%sconst requestId = req.id ?? %s.generateRequestId();", ind, cfg.ServiceVar)
	fmt.Fprintf(&b, "\n\n%s// Create debug info once at the start when extended diagnostics are requested", ind)
	fmt.Fprintf(&b, "\n%sconst %s = %s", ind, cfg.RecordVar, cfg.GateExpr)
	fmt.Fprintf(&b, "\n%s  ? %s.createDebugInfo('%s', requestId, 0)", ind, cfg.ServiceVar, cfg.Placeholder)
	fmt.Fprintf(&b, "\n%s  : null;", ind)
	if cfg.Integration != "" {
		fmt.Fprintf(&b, "\n\n%sif (%s) {", ind, cfg.RecordVar)
		fmt.Fprintf(&b, "\n%s  %s.addMetadata(%s, 'integration', '%s');", ind, cfg.ServiceVar, cfg.RecordVar, cfg.Integration)
		fmt.Fprintf(&b, "\n%s}", ind)
	}
	return b.String()
}

// wrapPass (P2) replaces each direct error emission with the canonical
// build-merge-send shape: the payload becomes a named errorResponse, the
// debug-info record is attached when present, and the emission stays on the
// same status code. The matcher is the idempotency guard here: a wrapped
// emission's json argument no longer opens with an error key, so it can
// never match again.
type wrapPass struct {
	cfg     Config
	matcher *Matcher
}

func (p *wrapPass) Name() string { return "wrap-error-responses" }

func (p *wrapPass) Apply(src string) (string, Outcome) {
	out := Outcome{Pass: p.Name()}
	var edits []edit
	for _, m := range p.matcher.Find(KindErrorResponse, src) {
		out.Matched++
		ind := lineIndent(src, m.Start)
		edits = append(edits, edit{start: m.Start, end: m.End, text: wrapEmission(p.cfg, m.Field("statusCode"), m.Field("payload"), ind)})
		out.Transformed++
	}
	return applyEdits(src, edits), out
}

// wrapEmission renders the canonical response shape. The captured payload is
// reused verbatim so nested literals survive byte-for-byte.
func wrapEmission(cfg Config, status, payload, ind string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "const errorResponse = %s;", payload)
	fmt.Fprintf(&b, "\n%sres.status(%s).json(", ind, status)
	fmt.Fprintf(&b, "\n%s  %s ? %s.attachDebugInfo(errorResponse, %s) : errorResponse", ind, cfg.RecordVar, cfg.ServiceVar, cfg.RecordVar)
	fmt.Fprintf(&b, "\n%s);", ind)
	return b.String()
}

// catchPass (P3) records the failure into the debug-info object at the top
// of each catch region: duration, the caught error with a fallback literal
// when the value carries no message, and fresh performance and request
// context snapshots.
type catchPass struct {
	cfg     Config
	matcher *Matcher
	guard   *Guard
}

func (p *catchPass) Name() string { return "instrument-catch-blocks" }

func (p *catchPass) Apply(src string) (string, Outcome) {
	out := Outcome{Pass: p.Name()}
	var edits []edit
	for _, m := range p.matcher.Find(KindCatchRegion, src) {
		out.Matched++
		if p.guard.AlreadyPresent(ShapeCatchRecording, m.Field("body")) {
			out.Skipped++
			continue
		}
		edits = append(edits, edit{start: m.End, end: m.End, text: p.recordBlock(m.Field("errVar"), lineIndent(src, m.End-1))})
		out.Transformed++
	}
	return applyEdits(src, edits), out
}

func (p *catchPass) recordBlock(errVar, ind string) string {
	cfg := p.cfg
	var b strings.Builder
	fmt.Fprintf(&b, "\n\n%sif (%s) {", ind, cfg.RecordVar)
	fmt.Fprintf(&b, "\n%s  %s.duration = duration;", ind, cfg.RecordVar)
	fmt.Fprintf(&b, "\n%s  %s.addError(%s, {", ind, cfg.ServiceVar, cfg.RecordVar)
	fmt.Fprintf(&b, "\n%s    message: `Error: ${%s instanceof Error ? %s.message : 'Unknown error'}`,", ind, errVar, errVar)
	fmt.Fprintf(&b, "\n%s    stack: %s instanceof Error ? %s.stack : undefined,", ind, errVar, errVar)
	fmt.Fprintf(&b, "\n%s    level: 'error',", ind)
	fmt.Fprintf(&b, "\n%s  });", ind)
	fmt.Fprintf(&b, "\n%s  %s.performance = %s.collectPerformanceMetrics();", ind, cfg.RecordVar, cfg.ServiceVar)
	fmt.Fprintf(&b, "\n%s  %s.context = %s.collectRequestContext(req);", ind, cfg.RecordVar, cfg.ServiceVar)
	fmt.Fprintf(&b, "\n%s}", ind)
	return b.String()
}

// earlyExitPass (P4) instruments "not configured / not initialized" guards:
// a warning-recording block goes in front of the guard's response statement,
// and a still-raw response is wrapped exactly as the wrap pass would. Every
// matched guard is instrumented; there is no silent fallthrough.
type earlyExitPass struct {
	cfg     Config
	matcher *Matcher
	guard   *Guard
}

func (p *earlyExitPass) Name() string { return "instrument-early-exits" }

func (p *earlyExitPass) Apply(src string) (string, Outcome) {
	out := Outcome{Pass: p.Name()}
	var edits []edit
	for _, m := range p.matcher.Find(KindEarlyExit, src) {
		out.Matched++
		if p.guard.AlreadyPresent(ShapeWarnRecording, m.Field("body")) {
			out.Skipped++
			continue
		}
		resp := m.Fields["response"]
		ind := lineIndent(src, resp.Start)
		responseText := src[resp.Start:resp.End]
		if m.HasField("payload") {
			responseText = wrapEmission(p.cfg, m.Field("statusCode"), m.Field("payload"), ind)
		}
		text := p.warnBlock(m.Field("condition"), ind) + "\n\n" + ind + responseText
		edits = append(edits, edit{start: resp.Start, end: resp.End, text: text})
		out.Transformed++
	}
	return applyEdits(src, edits), out
}

func (p *earlyExitPass) warnBlock(condition, ind string) string {
	cfg := p.cfg
	var b strings.Builder
	fmt.Fprintf(&b, "if (%s) {", cfg.RecordVar)
	fmt.Fprintf(&b, "\n%s  %s.duration = Date.now() - startTime;", ind, cfg.RecordVar)
	fmt.Fprintf(&b, "\n%s  %s.addWarning(%s, {", ind, cfg.ServiceVar, cfg.RecordVar)
	fmt.Fprintf(&b, "\n%s    message: \"%s\",", ind, warnMessage(cfg.Integration, condition))
	fmt.Fprintf(&b, "\n%s    level: 'warn',", ind)
	fmt.Fprintf(&b, "\n%s  });", ind)
	fmt.Fprintf(&b, "\n%s  %s.performance = %s.collectPerformanceMetrics();", ind, cfg.RecordVar, cfg.ServiceVar)
	fmt.Fprintf(&b, "\n%s  %s.context = %s.collectRequestContext(req);", ind, cfg.RecordVar, cfg.ServiceVar)
	fmt.Fprintf(&b, "\n%s}", ind)
	return b.String()
}

// warnMessage picks the fixed message for a guard from its condition text:
// initialization checks report "not initialized", everything else "not
// configured".
func warnMessage(integration, condition string) string {
	state := "configured"
	if strings.Contains(strings.ToLower(condition), "initialized") {
		state = "initialized"
	}
	if integration == "" {
		return fmt.Sprintf("Integration is not %s", state)
	}
	return fmt.Sprintf("%s integration is not %s", strings.ToUpper(integration[:1])+integration[1:], state)
}

// helperPass replaces calls of the obsolete response helper with the inline
// success-path pattern: duration capture, optional metadata, performance and
// context snapshots, then the attach-and-send emission. The matched call is
// the only occurrence of the symbol outside the import list, so rewriting it
// is what makes the declaration manager's import strip safe.
type helperPass struct {
	cfg     Config
	matcher *Matcher
}

func (p *helperPass) Name() string { return "inline-response-helper" }

func (p *helperPass) Apply(src string) (string, Outcome) {
	out := Outcome{Pass: p.Name()}
	var edits []edit
	for _, m := range p.matcher.Find(KindHelperCall, src) {
		out.Matched++
		edits = append(edits, edit{start: m.Start, end: m.End, text: p.inlineBlock(m, lineIndent(src, m.Start))})
		out.Transformed++
	}
	return applyEdits(src, edits), out
}

func (p *helperPass) inlineBlock(m Match, ind string) string {
	cfg := p.cfg
	data := m.Field("data")
	var b strings.Builder
	fmt.Fprintf(&b, "if (%s) {", cfg.RecordVar)
	fmt.Fprintf(&b, "\n%s  %s.duration = duration;", ind, cfg.RecordVar)
	if key, value, ok := splitMetadata(m.Field("metadata")); ok {
		fmt.Fprintf(&b, "\n%s  %s.addMetadata(%s, '%s', %s);", ind, cfg.ServiceVar, cfg.RecordVar, key, value)
	}
	fmt.Fprintf(&b, "\n%s  %s.performance = %s.collectPerformanceMetrics();", ind, cfg.RecordVar, cfg.ServiceVar)
	fmt.Fprintf(&b, "\n%s  %s.context = %s.collectRequestContext(req);", ind, cfg.RecordVar, cfg.ServiceVar)
	fmt.Fprintf(&b, "\n%s  res.json(%s.attachDebugInfo(%s, %s));", ind, cfg.ServiceVar, data, cfg.RecordVar)
	fmt.Fprintf(&b, "\n%s} else {", ind)
	fmt.Fprintf(&b, "\n%s  res.json(%s);", ind, data)
	fmt.Fprintf(&b, "\n%s}", ind)
	return b.String()
}

// splitMetadata parses a single "key: value" metadata entry. Anything else,
// including an empty body, records no metadata.
func splitMetadata(metadata string) (string, string, bool) {
	parts := strings.Split(metadata, ":")
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}
