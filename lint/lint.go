// Package lint is the token-substitution pass family. It is independent of
// the instrumentation pipeline: the fixes here are conservative, regex-level
// rewrites that share nothing with the core contract except the pass shape.
package lint

import (
	"fmt"
	"os"
	"regexp"

	"go.uber.org/zap"

	"github.com/termfx/retrofit/core"
)

// Fix is one conservative token substitution. Every fix is idempotent: its
// own replacement text never re-matches the pattern.
type Fix struct {
	Name    string
	pattern *regexp.Regexp
	repl    string
}

// Apply rewrites src and returns the number of substitutions made.
func (f Fix) Apply(src string) (string, int) {
	n := len(f.pattern.FindAllStringIndex(src, -1))
	if n == 0 {
		return src, 0
	}
	return f.pattern.ReplaceAllString(src, f.repl), n
}

// DefaultFixes returns the full fix set: template-literal number wrapping
// and conservative nullish-coalescing rewrites.
func DefaultFixes() []Fix {
	return append(TemplateNumberFixes(), NullishFixes()...)
}

// TemplateNumberFixes wraps numeric template interpolations in String().
func TemplateNumberFixes() []Fix {
	return []Fix{
		{
			Name:    "template-length-string",
			pattern: regexp.MustCompile(`\$\{([^}]+\.length)\}`),
			repl:    `${String($1)}`,
		},
		{
			Name:    "template-counter-string",
			pattern: regexp.MustCompile(`\$\{(count|total|size|index|page|limit|offset)\}`),
			repl:    `${String($1)}`,
		},
	}
}

// NullishFixes rewrites || to ?? for the unambiguous default cases only.
func NullishFixes() []Fix {
	return []Fix{
		{
			Name:    "nullish-zero",
			pattern: regexp.MustCompile(`(\w+)\s*\|\|\s*0\b`),
			repl:    `$1 ?? 0`,
		},
		{
			Name:    "nullish-empty-double",
			pattern: regexp.MustCompile(`(\w+)\s*\|\|\s*""`),
			repl:    `$1 ?? ""`,
		},
		{
			Name:    "nullish-empty-single",
			pattern: regexp.MustCompile(`(\w+)\s*\|\|\s*''`),
			repl:    `$1 ?? ''`,
		},
	}
}

// FileOutcome reports the fixes applied to one file.
type FileOutcome struct {
	Path    string
	Applied map[string]int
	Changed bool
	Err     error
}

// Total returns the number of substitutions across all fixes.
func (o FileOutcome) Total() int {
	n := 0
	for _, c := range o.Applied {
		n += c
	}
	return n
}

// Runner applies a fix set across many files. Preview mode (the default)
// reports what would change without writing anything.
type Runner struct {
	fixes  []Fix
	write  bool
	writer *core.AtomicWriter
	logger *zap.Logger
}

// NewRunner builds a runner for the given fixes. A nil logger disables
// logging.
func NewRunner(fixes []Fix, write bool, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		fixes:  fixes,
		write:  write,
		writer: core.NewAtomicWriter(false),
		logger: logger,
	}
}

// Run processes every file and returns per-file outcomes. A file that fails
// to read or write is reported in its outcome; the run continues with the
// remaining files.
func (r *Runner) Run(files []string) []FileOutcome {
	outcomes := make([]FileOutcome, 0, len(files))
	for _, path := range files {
		outcomes = append(outcomes, r.runFile(path))
	}
	return outcomes
}

func (r *Runner) runFile(path string) FileOutcome {
	out := FileOutcome{Path: path, Applied: make(map[string]int)}

	data, err := os.ReadFile(path)
	if err != nil {
		out.Err = fmt.Errorf("%w: %v", core.ErrRead, err)
		return out
	}

	src := string(data)
	cur := src
	for _, fix := range r.fixes {
		next, n := fix.Apply(cur)
		if n > 0 {
			out.Applied[fix.Name] = n
			cur = next
		}
	}
	out.Changed = cur != src
	if !out.Changed {
		return out
	}

	r.logger.Debug("lint fixes applied",
		zap.String("file", path),
		zap.Int("substitutions", out.Total()),
		zap.Bool("write", r.write),
	)
	if r.write {
		if err := r.writer.WriteFile(path, cur); err != nil {
			out.Err = fmt.Errorf("%w: %v", core.ErrWrite, err)
		}
	}
	return out
}
