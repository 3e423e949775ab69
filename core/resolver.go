package core

import (
	"fmt"
	"strings"
)

// OperationEntry maps one route to its canonical operation name.
type OperationEntry struct {
	Method string
	Path   string
	Name   string
}

// OperationTable is the static route → operation-name mapping. Extending
// coverage means appending entries; the lookup rule never changes.
type OperationTable []OperationEntry

// Resolve returns the canonical operation name for a method and declared
// path pattern. The lookup is exact on the path text: no wildcard or
// path-template interpretation.
func (t OperationTable) Resolve(method, path string) (string, bool) {
	for _, e := range t {
		if strings.EqualFold(e.Method, method) && e.Path == path {
			return e.Name, true
		}
	}
	return "", false
}

// resolvePass (P5) substitutes each remaining operation-name placeholder
// with the table entry for the enclosing handler's method and path.
// Unresolved placeholders are left in place and reported, never dropped.
type resolvePass struct {
	cfg     Config
	matcher *Matcher
	table   OperationTable
}

func (p *resolvePass) Name() string { return "resolve-operation-names" }

func (p *resolvePass) Apply(src string) (string, Outcome) {
	out := Outcome{Pass: p.Name()}
	routes := p.matcher.Find(KindRouteDecl, src)
	var edits []edit
	for _, m := range p.matcher.Find(KindPlaceholder, src) {
		out.Matched++
		route, ok := enclosingRoute(routes, m.Start)
		if !ok {
			out.Skipped++
			out.Notes = append(out.Notes, fmt.Sprintf("offset %d: placeholder outside any route handler", m.Start))
			continue
		}
		method, path := route.Field("method"), route.Field("path")
		name, ok := p.table.Resolve(method, path)
		if !ok {
			out.Skipped++
			out.Notes = append(out.Notes, fmt.Sprintf("%s %s: no operation name in table, placeholder left in place", strings.ToUpper(method), path))
			continue
		}
		edits = append(edits, edit{start: m.Start, end: m.End, text: name})
		out.Transformed++
	}
	return applyEdits(src, edits), out
}

// enclosingRoute returns the last route declared before offset at.
func enclosingRoute(routes []Match, at int) (Match, bool) {
	var found Match
	ok := false
	for _, r := range routes {
		if r.Start >= at {
			break
		}
		found, ok = r, true
	}
	return found, ok
}
