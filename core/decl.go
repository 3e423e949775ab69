package core

import (
	"fmt"
	"regexp"
)

var reImportLine = regexp.MustCompile(`(?m)^import .*$`)

// DeclManager normalizes the file-level support declarations: the
// diagnostics-service import exists exactly once no matter how many passes
// asked for it, and the obsolete legacy helper is stripped from import
// lists.
type DeclManager struct {
	cfg        Config
	guard      *Guard
	obsLeading *regexp.Regexp // "oldHelper, " inside an import list
	obsLast    *regexp.Regexp // ", oldHelper" as the final import entry
}

// NewDeclManager returns a declaration manager for the configured symbols.
func NewDeclManager(cfg Config, guard *Guard) *DeclManager {
	d := &DeclManager{cfg: cfg, guard: guard}
	if cfg.ObsoleteSymbol != "" {
		sym := regexp.QuoteMeta(cfg.ObsoleteSymbol)
		d.obsLeading = regexp.MustCompile(sym + `,\s*`)
		d.obsLast = regexp.MustCompile(`,\s*` + sym + `(\s*})`)
	}
	return d
}

// Ensure inserts the service import once, immediately after the last import
// line, and removes the obsolete helper symbol. Idempotent.
func (d *DeclManager) Ensure(src string) (string, Outcome) {
	out := Outcome{Pass: "ensure-declarations"}

	if d.obsLeading != nil {
		stripped := d.obsLeading.ReplaceAllString(src, "")
		stripped = d.obsLast.ReplaceAllString(stripped, "$1")
		if stripped != src {
			src = stripped
			out.Matched++
			out.Transformed++
		}
	}

	if d.guard.AlreadyPresent(ShapeServiceImport, src) {
		out.Matched++
		out.Skipped++
		return src, out
	}

	decl := fmt.Sprintf("import { %s } from \"%s\";", d.cfg.ServiceType, d.cfg.ImportPath)
	if locs := reImportLine.FindAllStringIndex(src, -1); len(locs) > 0 {
		at := locs[len(locs)-1][1]
		src = src[:at] + "\n" + decl + src[at:]
	} else {
		src = decl + "\n" + src
	}
	out.Transformed++
	return src, out
}
