package core

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher locates structural regions in raw handler source. It never parses
// the host language: anchors are matched textually and delimited fields are
// captured with a depth-counting scan, so nested object literals inside a
// payload are captured whole instead of being truncated at the first closing
// delimiter. Regions whose delimiters do not balance are skipped and
// reported as diagnostics; they never corrupt sibling regions.
type Matcher struct {
	cfg        Config
	helperCall *regexp.Regexp
	diags      []Diagnostic
}

// NewMatcher returns a matcher for the configured symbol names.
func NewMatcher(cfg Config) *Matcher {
	m := &Matcher{cfg: cfg}
	if cfg.ObsoleteSymbol != "" {
		m.helperCall = regexp.MustCompile(`\b` + regexp.QuoteMeta(cfg.ObsoleteSymbol) + `\s*\(`)
	}
	return m
}

var (
	reTimerStart = regexp.MustCompile(`const startTime = Date\.now\(\);`)
	reErrResp    = regexp.MustCompile(`res\.status\((\d+)\)\.json\(`)
	reCatch      = regexp.MustCompile(`\} catch \((\w+)\) \{\s*const duration = Date\.now\(\) - startTime;`)
	reEarlyExit  = regexp.MustCompile(`if \(!`)
	reRouteDecl  = regexp.MustCompile(`router\.(get|post|put|patch|delete)\(\s*["']([^"'\n]+)["']`)
	rePayload    = regexp.MustCompile(`^\{\s*error\s*:`)
	reHelperArgs = regexp.MustCompile(`^req,\s*res,\s*(\w+),\s*'([^']+)',\s*duration,\s*'([^']+)',\s*\{([^}]*)\}$`)
)

// Find returns every region of src matching the pattern kind, in source
// order. Zero matches is a valid result, never an error.
func (m *Matcher) Find(kind Kind, src string) []Match {
	switch kind {
	case KindTimerStart:
		return m.findByRegexp(kind, reTimerStart, src)
	case KindErrorResponse:
		return m.findErrorResponses(src, 0)
	case KindCatchRegion:
		return m.findCatchRegions(src)
	case KindEarlyExit:
		return m.findEarlyExits(src)
	case KindRouteDecl:
		return m.findRouteDecls(src)
	case KindPlaceholder:
		return m.findPlaceholders(src)
	case KindHelperCall:
		return m.findHelperCalls(src)
	}
	return nil
}

// TakeDiagnostics drains the skipped-region reports accumulated so far.
func (m *Matcher) TakeDiagnostics() []Diagnostic {
	d := m.diags
	m.diags = nil
	return d
}

func (m *Matcher) report(kind Kind, offset int, msg string) {
	m.diags = append(m.diags, Diagnostic{Kind: kind, Offset: offset, Message: msg})
}

func (m *Matcher) findByRegexp(kind Kind, re *regexp.Regexp, src string) []Match {
	var out []Match
	for _, loc := range re.FindAllStringIndex(src, -1) {
		out = append(out, Match{Kind: kind, Start: loc[0], End: loc[1]})
	}
	return out
}

// findErrorResponses matches res.status(NNN).json(<payload>); statements
// whose payload is an object literal opening with an error key. base offsets
// diagnostics when scanning a sub-span of a larger buffer.
func (m *Matcher) findErrorResponses(src string, base int) []Match {
	var out []Match
	for _, loc := range reErrResp.FindAllStringSubmatchIndex(src, -1) {
		start := loc[0]
		openParen := loc[1] - 1 // the '(' of .json(
		closeParen, ok := scanDelim(src, openParen)
		if !ok {
			m.report(KindErrorResponse, base+start, "unbalanced parentheses in response emission")
			continue
		}
		ps, pe := trimSpan(src, openParen+1, closeParen)
		payload := src[ps:pe]
		if !rePayload.MatchString(payload) {
			// Not a direct error payload: plain data responses and
			// already-wrapped emissions both land here.
			continue
		}
		if !balancedBraces(payload) {
			m.report(KindErrorResponse, base+start, "unbalanced braces in error payload")
			continue
		}
		end, ok := statementEnd(src, closeParen+1)
		if !ok {
			continue
		}
		out = append(out, Match{
			Kind:  KindErrorResponse,
			Start: start,
			End:   end,
			Fields: map[string]Field{
				"statusCode": {Start: loc[2], End: loc[3], Text: src[loc[2]:loc[3]]},
				"payload":    {Start: ps, End: pe, Text: payload},
			},
		})
	}
	return out
}

func (m *Matcher) findCatchRegions(src string) []Match {
	var out []Match
	for _, loc := range reCatch.FindAllStringSubmatchIndex(src, -1) {
		matchText := src[loc[0]:loc[1]]
		open := loc[0] + strings.Index(matchText, "{")
		close, ok := scanDelim(src, open)
		if !ok {
			m.report(KindCatchRegion, loc[0], "unbalanced braces in catch block")
			continue
		}
		out = append(out, Match{
			Kind:  KindCatchRegion,
			Start: loc[0],
			End:   loc[1], // insertion point: end of the duration statement
			Fields: map[string]Field{
				"errVar": {Start: loc[2], End: loc[3], Text: src[loc[2]:loc[3]]},
				"body":   {Start: open + 1, End: close, Text: src[open+1 : close]},
			},
		})
	}
	return out
}

// findEarlyExits matches guards of the form `if (!cond) { … }` that warn and
// emit an error response before the handler's try block. The response inside
// the guard may be a raw emission (captured with payload fields) or one that
// an earlier run already wrapped (captured as an anchor only).
func (m *Matcher) findEarlyExits(src string) []Match {
	routes := reRouteDecl.FindAllStringIndex(src, -1)
	var out []Match
	for _, loc := range reEarlyExit.FindAllStringIndex(src, -1) {
		condOpen := loc[1] - 2 // the '(' of the condition
		condClose, ok := scanDelim(src, condOpen)
		if !ok {
			continue
		}
		cond := src[loc[1]:condClose] // everything after the '!'
		bodyOpen := condClose + 1
		for bodyOpen < len(src) && isSpace(src[bodyOpen]) {
			bodyOpen++
		}
		if bodyOpen >= len(src) || src[bodyOpen] != '{' {
			continue
		}
		bodyClose, ok := scanDelim(src, bodyOpen)
		if !ok {
			if strings.Contains(peek(src, bodyOpen, 400), "logger.warn") {
				m.report(KindEarlyExit, loc[0], "unbalanced braces in early-exit guard")
			}
			continue
		}
		body := src[bodyOpen+1 : bodyClose]
		if !strings.Contains(body, "logger.warn") {
			continue
		}
		if withinTryBlock(src, routes, loc[0]) {
			continue
		}
		fields := map[string]Field{
			"condition": {Start: loc[1], End: condClose, Text: cond},
			"body":      {Start: bodyOpen + 1, End: bodyClose, Text: body},
		}
		if resp := m.findErrorResponses(body, bodyOpen+1); len(resp) > 0 {
			r := resp[0]
			fields["response"] = Field{Start: bodyOpen + 1 + r.Start, End: bodyOpen + 1 + r.End, Text: body[r.Start:r.End]}
			fields["statusCode"] = Field{Text: r.Field("statusCode")}
			fields["payload"] = Field{Text: r.Field("payload")}
		} else if idx := strings.Index(body, "const errorResponse"); idx >= 0 {
			at := bodyOpen + 1 + idx
			fields["response"] = Field{Start: at, End: at}
		} else {
			continue // a guard with no response emission is not an early exit
		}
		out = append(out, Match{Kind: KindEarlyExit, Start: loc[0], End: bodyClose + 1, Fields: fields})
	}
	return out
}

func (m *Matcher) findRouteDecls(src string) []Match {
	var out []Match
	for _, loc := range reRouteDecl.FindAllStringSubmatchIndex(src, -1) {
		out = append(out, Match{
			Kind:  KindRouteDecl,
			Start: loc[0],
			End:   loc[1],
			Fields: map[string]Field{
				"method": {Start: loc[2], End: loc[3], Text: src[loc[2]:loc[3]]},
				"path":   {Start: loc[4], End: loc[5], Text: src[loc[4]:loc[5]]},
			},
		})
	}
	return out
}

func (m *Matcher) findPlaceholders(src string) []Match {
	var out []Match
	token := m.cfg.Placeholder
	if token == "" {
		return nil
	}
	for from := 0; ; {
		idx := strings.Index(src[from:], token)
		if idx < 0 {
			break
		}
		start := from + idx
		out = append(out, Match{Kind: KindPlaceholder, Start: start, End: start + len(token)})
		from = start + len(token)
	}
	return out
}

// findHelperCalls matches statements calling the obsolete response helper
// with its fixed argument order: (req, res, <data>, '<operation>', duration,
// '<integration>', { <metadata> }). Arguments are captured depth-aware; a
// call whose arguments defeat capture is skipped and reported, because the
// declaration manager strips the helper's import regardless.
func (m *Matcher) findHelperCalls(src string) []Match {
	if m.helperCall == nil {
		return nil
	}
	var out []Match
	for _, loc := range m.helperCall.FindAllStringIndex(src, -1) {
		openParen := loc[1] - 1
		closeParen, ok := scanDelim(src, openParen)
		if !ok {
			m.report(KindHelperCall, loc[0], "unbalanced parentheses in helper call")
			continue
		}
		end, ok := statementEnd(src, closeParen+1)
		if !ok {
			continue
		}
		as, ae := trimSpan(src, openParen+1, closeParen)
		sub := reHelperArgs.FindStringSubmatchIndex(src[as:ae])
		if sub == nil {
			m.report(KindHelperCall, loc[0], "helper call arguments do not match the fixed order")
			continue
		}
		field := func(i int) Field {
			return Field{Start: as + sub[2*i], End: as + sub[2*i+1], Text: src[as+sub[2*i] : as+sub[2*i+1]]}
		}
		out = append(out, Match{
			Kind:  KindHelperCall,
			Start: loc[0],
			End:   end,
			Fields: map[string]Field{
				"data":        field(1),
				"operation":   field(2),
				"integration": field(3),
				"metadata":    field(4),
			},
		})
	}
	return out
}

// scanDelim returns the index of the delimiter closing the one at open.
// String literals, template literals and comments are opaque to the scan.
func scanDelim(src string, open int) (int, bool) {
	openCh := src[open]
	var closeCh byte
	switch openCh {
	case '(':
		closeCh = ')'
	case '{':
		closeCh = '}'
	case '[':
		closeCh = ']'
	default:
		return 0, false
	}
	depth := 0
	for i := open; i < len(src); {
		switch c := src[i]; {
		case c == '\'' || c == '"' || c == '`':
			j, ok := skipString(src, i)
			if !ok {
				return 0, false
			}
			i = j
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return 0, false
			}
			i += 2 + end + 2
		case c == openCh:
			depth++
			i++
		case c == closeCh:
			depth--
			if depth == 0 {
				return i, true
			}
			i++
		default:
			i++
		}
	}
	return 0, false
}

// skipString advances past the string literal opening at i.
func skipString(src string, i int) (int, bool) {
	quote := src[i]
	for i++; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i + 1, true
		}
	}
	return 0, false
}

// balancedBraces verifies the brace structure of a captured payload so a
// splice never truncates or duplicates a nested literal.
func balancedBraces(s string) bool {
	depth := 0
	for i := 0; i < len(s); {
		switch c := s[i]; c {
		case '\'', '"', '`':
			j, ok := skipString(s, i)
			if !ok {
				return false
			}
			i = j
		case '{':
			depth++
			i++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
			i++
		default:
			i++
		}
	}
	return depth == 0
}

// statementEnd skips whitespace from at and requires a terminating semicolon.
func statementEnd(src string, at int) (int, bool) {
	for at < len(src) {
		switch src[at] {
		case ' ', '\t', '\n', '\r':
			at++
		case ';':
			return at + 1, true
		default:
			return 0, false
		}
	}
	return 0, false
}

// withinTryBlock reports whether a try block opens between the enclosing
// route declaration and at, which disqualifies a guard as an early exit.
func withinTryBlock(src string, routes [][]int, at int) bool {
	handlerStart := 0
	for _, r := range routes {
		if r[0] >= at {
			break
		}
		handlerStart = r[0]
	}
	return strings.Contains(src[handlerStart:at], "try {")
}

// trimSpan shrinks [start,end) past surrounding whitespace.
func trimSpan(src string, start, end int) (int, int) {
	for start < end && isSpace(src[start]) {
		start++
	}
	for end > start && isSpace(src[end-1]) {
		end--
	}
	return start, end
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// peek returns up to n bytes of src starting at from, for diagnostics.
func peek(src string, from, n int) string {
	if from+n > len(src) {
		n = len(src) - from
	}
	return src[from : from+n]
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s at offset %d: %s (region skipped)", d.Kind, d.Offset, d.Message)
}
